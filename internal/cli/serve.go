package cli

import (
	"github.com/spf13/cobra"

	"workpilot/internal/app"
	"workpilot/internal/config"
)

func addServe(topLevel *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WorkPilot API server",
		Long: `Serve runs the HTTP API and, when Slack is configured, the daily-log reminder.

Settings come from config.yaml (or CONFIG_PATH) and environment variables such as
LISTEN_ADDR, DB_PATH, LLM_PROVIDER, OPENAI_API_KEY and SLACK_BOT_TOKEN.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			ctx, stop := signalContext(commandContext(cmd))
			defer stop()
			return app.Serve(ctx, config.LoadConfig())
		},
	}
	topLevel.AddCommand(cmd)
}
