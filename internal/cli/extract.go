package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"workpilot/internal/client"
	"workpilot/internal/domain"
)

func addExtract(topLevel *cobra.Command, e *env) {
	var date, start, end string
	var save bool

	cmd := &cobra.Command{
		Use:   "extract [FILE]",
		Short: "Extract structured work items from a daily log",
		Long: `Extract sends a daily log (a file, or stdin when FILE is - or missing) to the
server and prints the work items found. With --start and --end it extracts every
stored daily log in that range instead.

Examples:
  workpilot extract today.txt --date 2025-08-12 --save
  workpilot extract --start 2025-08-01 --end 2025-08-31 --save`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := commandContext(cmd)
			api := e.client()

			var (
				res client.ExtractionResult
				err error
			)
			if start != "" || end != "" {
				if len(args) > 0 {
					return client.Validationf("give either a FILE or --start/--end, not both")
				}
				res, err = api.ExtractRange(ctx, start, end, save)
			} else {
				var content string
				content, err = readInput(cmd.InOrStdin(), args)
				if err != nil {
					return err
				}
				res, err = api.ExtractWorkItems(ctx, content, date, save)
			}
			if err != nil {
				return err
			}
			renderExtraction(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date of the log (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&start, "start", "", "first date of stored logs to extract")
	cmd.Flags().StringVar(&end, "end", "", "last date of stored logs to extract")
	cmd.Flags().BoolVar(&save, "save", false, "store the extracted work items")
	topLevel.AddCommand(cmd)
}

func readInput(stdin io.Reader, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("read log: %w", err)
	}
	return string(data), nil
}

func renderExtraction(w io.Writer, res client.ExtractionResult) {
	quality := res.ExtractionQuality
	if quality == domain.QualityGood {
		quality = green(quality)
	} else {
		quality = yellow(quality)
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", heading("Extraction"), quality)
	if res.Notes != "" {
		_, _ = fmt.Fprintln(w, faint(res.Notes))
	}
	tbl := newTable("PROJECT", "ACTION", "RESULT", "SKILLS")
	for _, item := range res.WorkItems {
		tbl.AddRow(item.Project, item.Action, item.ResultMetric, strings.Join(item.Skills, ", "))
	}
	printTable(w, tbl)
	if len(res.SavedItems) > 0 {
		okf(w, "Saved %d work items", len(res.SavedItems))
	}
}
