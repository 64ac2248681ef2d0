package cli

import (
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"workpilot/internal/client"
	"workpilot/internal/export"
)

var exportKinds = map[string]string{
	"daily":  "daily_reports",
	"weekly": "weekly_reports",
	"okr":    "okr_reports",
}

func addExport(topLevel *cobra.Command, e *env) {
	var format, outDir, start, end string

	cmd := &cobra.Command{
		Use:   "export daily|weekly|okr",
		Short: "Export saved daily reports, weekly reports or OKRs to a file",
		Long: `Export writes saved records to <kind>_<YYYYMMDD>.<ext> in the output directory.
Daily reports default to every saved day; weekly reports can be narrowed with
--start and --end.

Examples:
  workpilot export daily --format csv
  workpilot export weekly --format md --start 2025-07-01 --end 2025-09-30
  workpilot export okr --format txt --out ./exports`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"daily", "weekly", "okr"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			kind, ok := exportKinds[args[0]]
			if !ok {
				return client.Validationf("unknown export kind %q (want daily, weekly or okr)", args[0])
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return client.Validationf("%v", err)
			}
			ctx := commandContext(cmd)
			api := e.client()

			var (
				render func(io.Writer) error
				count  int
			)
			switch args[0] {
			case "daily":
				if start == "" || end == "" {
					dates, err := api.DailyReportDates(ctx)
					if err != nil {
						return err
					}
					if len(dates) == 0 {
						warnf(cmd.OutOrStdout(), "No daily reports to export")
						return nil
					}
					sort.Strings(dates)
					start, end = firstNonEmpty(start, dates[0]), firstNonEmpty(end, dates[len(dates)-1])
				}
				reports, err := api.DailyReportsByRange(ctx, start, end)
				if err != nil {
					return err
				}
				count = len(reports)
				render = func(w io.Writer) error { return export.DailyReports(w, reports, f) }
			case "weekly":
				reports, err := api.WeeklyReports(ctx, start, end)
				if err != nil {
					return err
				}
				count = len(reports)
				render = func(w io.Writer) error { return export.WeeklyReports(w, reports, f) }
			case "okr":
				reports, err := api.OKRReports(ctx)
				if err != nil {
					return err
				}
				count = len(reports)
				render = func(w io.Writer) error { return export.OKRReports(w, reports, f) }
			}
			if count == 0 {
				warnf(cmd.OutOrStdout(), "Nothing to export")
				return nil
			}

			path, err := export.WriteFile(outDir, export.Filename(kind, time.Now(), f), render)
			if err != nil {
				return err
			}
			okf(cmd.OutOrStdout(), "Exported %d records to %s", count, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.Markdown), "csv, md or txt")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&start, "start", "", "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last date (YYYY-MM-DD)")
	topLevel.AddCommand(cmd)
}
