package main

import (
	"os"

	"github.com/fatih/color"

	"workpilot/internal/cli"
	"workpilot/internal/client"
)

func main() {
	if err := cli.Execute(); err != nil {
		_, _ = color.New(color.FgRed).Fprintln(os.Stderr, "error:", client.UserMessage(err))
		os.Exit(1)
	}
}
