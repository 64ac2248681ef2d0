package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
)

var (
	bold    = color.New(color.Bold).SprintFunc()
	green   = color.New(color.FgGreen).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
	heading = color.New(color.Bold, color.Underline).SprintFunc()
)

func newTable(header ...any) *uitable.Table {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	tbl.Wrap = true
	if len(header) > 0 {
		bolded := make([]any, len(header))
		for i, h := range header {
			bolded[i] = bold(h)
		}
		tbl.AddRow(bolded...)
	}
	return tbl
}

func printTable(w io.Writer, tbl *uitable.Table) {
	_, _ = fmt.Fprintln(w, tbl)
}

func okf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, green("✓"), fmt.Sprintf(format, args...))
}

func warnf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintln(w, yellow("!"), fmt.Sprintf(format, args...))
}
