package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"workpilot/internal/timeline"
)

func addTimeline(topLevel *cobra.Command, e *env) {
	var by string

	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Show work items grouped by year, quarter or month",
		Long: `Timeline lists every work item grouped into periods, newest period first.

Examples:
  workpilot timeline
  workpilot timeline --by quarter`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			g, err := timeline.ParseGranularity(by)
			if err != nil {
				return err
			}
			items, err := e.client().WorkItems(commandContext(cmd))
			if err != nil {
				return err
			}
			renderTimeline(cmd.OutOrStdout(), timeline.Aggregate(items, g))
			return nil
		},
	}
	cmd.Flags().StringVar(&by, "by", string(timeline.Month), "period: year, quarter or month")
	topLevel.AddCommand(cmd)
}

func renderTimeline(w io.Writer, buckets []timeline.Bucket) {
	if len(buckets) == 0 {
		_, _ = fmt.Fprintln(w, "No work items yet.")
		return
	}
	for _, b := range buckets {
		_, _ = fmt.Fprintf(w, "\n%s %s\n", heading(b.Label), faint(fmt.Sprintf("(%d)", len(b.Items))))
		tbl := newTable()
		for _, item := range b.Items {
			project := item.ProjectName
			if project == "" {
				project = faint("-")
			}
			tbl.AddRow(item.RawLogDate, project, item.Action)
		}
		printTable(w, tbl)
	}
}
