// Package cli is the workpilot command line: it runs the server and talks to a
// running one for timelines, daily-log import, project dedup and exports.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"workpilot/internal/client"
	"workpilot/internal/dedup"
)

const defaultAPIURL = "http://localhost:5000"

type env struct {
	v *viper.Viper
	// newClient is replaced in tests.
	newClient func(baseURL string) *client.Client
}

func (e *env) client() *client.Client {
	return e.newClient(e.v.GetString("api_url"))
}

func New() *cobra.Command {
	return newRoot(&env{v: viper.New(), newClient: client.New})
}

func newRoot(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "workpilot",
		Short:         "Turn daily work logs into weekly reports, OKRs and career assets.",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadSettings(e.v)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().String("api-url", "", "WorkPilot server URL (default "+defaultAPIURL+")")
	_ = e.v.BindPFlag("api_url", cmd.PersistentFlags().Lookup("api-url"))

	addServe(cmd)
	addTimeline(cmd, e)
	addImport(cmd, e)
	addExtract(cmd, e)
	addDedup(cmd, e)
	addExport(cmd, e)
	return cmd
}

// loadSettings reads .workpilot.yaml from WORKPILOT_CONFIG_PATH, the working
// directory or the home directory. Every key can be set as WORKPILOT_<KEY>.
func loadSettings(v *viper.Viper) error {
	v.SetDefault("api_url", defaultAPIURL)
	v.SetDefault("threshold", dedup.DefaultThreshold)
	v.SetConfigName(".workpilot")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("WORKPILOT")
	v.AutomaticEnv()

	if override := os.Getenv("WORKPILOT_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	return nil
}

// Execute runs the root command with a background context.
func Execute() error {
	return New().ExecuteContext(context.Background())
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
