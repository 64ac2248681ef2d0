package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"workpilot/internal/client"
	"workpilot/internal/selection"
)

var errImportCancelled = errors.New("import cancelled")

type importOptions struct {
	start, end  string
	dates       []string
	interactive bool
	generate    bool
	save        bool
	mock        bool
}

func addImport(topLevel *cobra.Command, e *env) {
	o := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Collect daily logs from a date range, optionally drafting the weekly report",
		Long: `Import loads the daily logs of a date range (this Monday to Friday by default),
selects every day that has content and prints them joined in date order.

Examples:
  workpilot import
  workpilot import --start 2025-08-04 --end 2025-08-08 --date 2025-08-05 --date 2025-08-07
  workpilot import --interactive
  workpilot import --generate --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			ctx := commandContext(cmd)
			api := e.client()
			ctrl := selection.New(api, time.Local)
			imp, err := runImport(ctx, ctrl, o, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return finishImport(ctx, api, imp, o, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&o.start, "start", "", "first date of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&o.end, "end", "", "last date of the range (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&o.dates, "date", nil, "only import these dates (repeatable)")
	cmd.Flags().BoolVarP(&o.interactive, "interactive", "i", false, "pick dates at a prompt")
	cmd.Flags().BoolVar(&o.generate, "generate", false, "draft the weekly report from the imported logs")
	cmd.Flags().BoolVar(&o.save, "save", false, "save the drafted weekly report for the imported range")
	cmd.Flags().BoolVar(&o.mock, "mock", false, "use the canned generator instead of the LLM")
	topLevel.AddCommand(cmd)
}

func runImport(ctx context.Context, ctrl *selection.Controller, o *importOptions, in io.Reader, w io.Writer) (selection.Import, error) {
	if err := ctrl.Open(ctx); err != nil {
		if o.start == "" && o.end == "" {
			return selection.Import{}, err
		}
		warnf(w, "Could not load this week: %s", client.UserMessage(err))
	}
	if o.start != "" || o.end != "" {
		snap := ctrl.Snapshot()
		start, end := firstNonEmpty(o.start, snap.Start), firstNonEmpty(o.end, snap.End)
		if err := ctrl.SetRange(ctx, start, end); err != nil {
			return selection.Import{}, err
		}
	}

	if len(o.dates) > 0 {
		ctrl.ClearAll()
		available := map[string]bool{}
		for _, d := range ctrl.Snapshot().Available {
			available[d] = true
		}
		for _, d := range o.dates {
			if !available[d] {
				warnf(w, "No daily log for %s, skipped", d)
				continue
			}
			ctrl.ToggleDate(d)
		}
	}

	if o.interactive {
		if err := promptSelection(ctx, ctrl, in, w); err != nil {
			return selection.Import{}, err
		}
	} else {
		renderSelection(w, ctrl.Snapshot())
	}
	return ctrl.Import()
}

// promptSelection reads commands until an empty line imports or q closes the flow.
func promptSelection(ctx context.Context, ctrl *selection.Controller, in io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		snap := ctrl.Snapshot()
		renderSelection(w, snap)
		_, _ = fmt.Fprint(w, faint("number toggles, a toggles all, r START END changes range, enter imports, q quits> "))
		if !scanner.Scan() {
			ctrl.Close()
			return errImportCancelled
		}
		fields := strings.Fields(scanner.Text())
		switch {
		case len(fields) == 0:
			return nil
		case fields[0] == "q":
			ctrl.Close()
			return errImportCancelled
		case fields[0] == "a":
			ctrl.ToggleAll()
		case fields[0] == "r" && len(fields) == 3:
			if err := ctrl.SetRange(ctx, fields[1], fields[2]); err != nil {
				warnf(w, "%s", client.UserMessage(err))
			}
		default:
			n, err := strconv.Atoi(fields[0])
			if err != nil || n < 1 || n > len(snap.Available) {
				warnf(w, "Unknown choice %q", scanner.Text())
				continue
			}
			ctrl.ToggleDate(snap.Available[n-1])
		}
	}
}

func renderSelection(w io.Writer, snap selection.Snapshot) {
	_, _ = fmt.Fprintf(w, "%s %s ~ %s\n", heading("Daily logs"), snap.Start, snap.End)
	if len(snap.Available) == 0 {
		_, _ = fmt.Fprintln(w, "  No daily logs in this range.")
		return
	}
	selected := map[string]bool{}
	for _, d := range snap.Selected {
		selected[d] = true
	}
	tbl := newTable()
	for i, d := range snap.Available {
		mark := "[ ]"
		if selected[d] {
			mark = green("[x]")
		}
		tbl.AddRow(strconv.Itoa(i+1), mark, d)
	}
	printTable(w, tbl)
}

func finishImport(ctx context.Context, api *client.Client, imp selection.Import, o *importOptions, w io.Writer) error {
	if !o.generate {
		_, _ = fmt.Fprintln(w, imp.Content)
		return nil
	}
	res, err := api.GenerateWeeklyReport(ctx, imp.Content, o.mock)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, res.Report)
	if !res.Validation.Valid {
		warnf(w, "Report structure: missing %v, order valid %t", res.Validation.MissingSections, res.Validation.OrderValid)
	}
	if o.save {
		if err := api.SaveWeeklyReport(ctx, imp.Start, imp.End, res.Report); err != nil {
			return err
		}
		okf(w, "Weekly report saved for %s ~ %s", imp.Start, imp.End)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
