package cli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"workpilot/internal/client"
	"workpilot/internal/dedup"
	"workpilot/internal/domain"
)

func addDedup(topLevel *cobra.Command, e *env) {
	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Find and merge duplicate projects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	addDedupList(cmd, e)
	addDedupSimilar(cmd, e)
	addDedupMerge(cmd, e)
	addDedupCleanup(cmd, e)
	addDedupDelete(cmd, e)
	addDedupDeleteAll(cmd, e)
	topLevel.AddCommand(cmd)
}

func addDedupList(parent *cobra.Command, e *env) {
	parent.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			projects, err := dedup.New(e.client()).LoadProjects(commandContext(cmd))
			if err != nil {
				return err
			}
			tbl := newTable("ID", "NAME", "STATUS")
			for _, p := range projects {
				tbl.AddRow(p.ID, p.Name, p.Status)
			}
			printTable(cmd.OutOrStdout(), tbl)
			return nil
		},
	})
}

func thresholdFlag(cmd *cobra.Command, e *env, value float64) float64 {
	if cmd.Flags().Changed("threshold") {
		return value
	}
	return e.v.GetFloat64("threshold")
}

func addDedupSimilar(parent *cobra.Command, e *env) {
	var threshold float64
	cmd := &cobra.Command{
		Use:   "similar",
		Short: "Show groups of projects with similar names",
		Long: `Similar lists groups of projects whose names look alike. The first column is the
group number used by "dedup merge --group".

Examples:
  workpilot dedup similar
  workpilot dedup similar --threshold 0.8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			groups, err := dedup.New(e.client()).LoadSimilarGroups(commandContext(cmd), thresholdFlag(cmd, e, threshold))
			if err != nil {
				return err
			}
			renderGroups(cmd.OutOrStdout(), groups)
			return nil
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", dedup.DefaultThreshold, "similarity threshold between 0 and 1")
	parent.AddCommand(cmd)
}

func renderGroups(w io.Writer, groups []domain.SimilarityGroup) {
	if len(groups) == 0 {
		_, _ = fmt.Fprintln(w, "No similar projects found.")
		return
	}
	tbl := newTable("GROUP", "TARGET", "MERGES")
	for i, g := range groups {
		var names []string
		for _, p := range g.Projects {
			if p.ID != g.RecommendedTarget.ID {
				names = append(names, fmt.Sprintf("%s (#%d)", p.Name, p.ID))
			}
		}
		tbl.AddRow(i+1, fmt.Sprintf("%s (#%d)", g.RecommendedTarget.Name, g.RecommendedTarget.ID), strings.Join(names, ", "))
	}
	printTable(w, tbl)
}

func addDedupMerge(parent *cobra.Command, e *env) {
	var target int64
	var group int
	var threshold float64

	cmd := &cobra.Command{
		Use:   "merge [SOURCE_ID...]",
		Short: "Merge projects into a target",
		Long: `Merge moves the work items of the source projects into the target and deletes
the sources. Use --group to merge a group from "dedup similar" into its
recommended target.

Examples:
  workpilot dedup merge --target 3 7 9
  workpilot dedup merge --group 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx := commandContext(cmd)
			wf := dedup.New(e.client())

			var (
				res domain.MergeResult
				err error
			)
			switch {
			case group > 0:
				groups, lerr := wf.LoadSimilarGroups(ctx, thresholdFlag(cmd, e, threshold))
				if lerr != nil {
					return lerr
				}
				if group > len(groups) {
					return client.Validationf("group %d does not exist, there are %d groups", group, len(groups))
				}
				res, err = wf.Merge(ctx, groups[group-1])
			case target > 0:
				sources, perr := parseIDs(args)
				if perr != nil {
					return perr
				}
				res, err = wf.MergeInto(ctx, target, sources)
			default:
				return client.Validationf("give --target with source ids, or --group")
			}
			if err != nil {
				return err
			}
			okf(cmd.OutOrStdout(), "%s (moved %d work items, removed %d projects)", res.Message, res.MergedCount, res.DeletedProjects)
			if snap := wf.Snapshot(); snap.ReloadErr != nil {
				warnf(cmd.OutOrStdout(), "Merged, but refreshing the project list failed: %s", client.UserMessage(snap.ReloadErr))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&target, "target", 0, "project id that receives the work items")
	cmd.Flags().IntVar(&group, "group", 0, "group number from dedup similar")
	cmd.Flags().Float64Var(&threshold, "threshold", dedup.DefaultThreshold, "similarity threshold used with --group")
	parent.AddCommand(cmd)
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, client.Validationf("invalid project id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func addDedupCleanup(parent *cobra.Command, e *env) {
	parent.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Move work items without a usable project into " + domain.FallbackProjectName,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			res, err := dedup.New(e.client()).CleanupUnassigned(commandContext(cmd))
			if err != nil {
				return err
			}
			okf(cmd.OutOrStdout(), "%s (moved %d work items, removed %d projects)", res.Message, res.MergedCount, res.DeletedProjects)
			return nil
		},
	})
}

func addDedupDelete(parent *cobra.Command, e *env) {
	parent.AddCommand(&cobra.Command{
		Use:   "delete PROJECT_ID",
		Short: "Delete one project and its work items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := dedup.New(e.client()).DeleteProject(commandContext(cmd), ids[0]); err != nil {
				return err
			}
			okf(cmd.OutOrStdout(), "Project #%d deleted", ids[0])
			return nil
		},
	})
}

func addDedupDeleteAll(parent *cobra.Command, e *env) {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-all",
		Short: "Delete every project and work item",
		Long: `Delete-all removes every project and every work item. It asks for the word
"delete" first unless --yes is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			wf := dedup.New(e.client())
			token, err := wf.RequestDeleteAll()
			if err != nil {
				return err
			}
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), `This deletes ALL projects and work items. Type "delete" to continue: `, "delete") {
				wf.CancelDeleteAll()
				warnf(cmd.OutOrStdout(), "Cancelled, nothing was deleted")
				return nil
			}
			res, err := wf.ConfirmDeleteAll(commandContext(cmd), token)
			if err != nil {
				return err
			}
			okf(cmd.OutOrStdout(), "Deleted %d projects and %d work items", res.DeletedProjects, res.DeletedWorkItems)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	parent.AddCommand(cmd)
}

func confirm(in io.Reader, w io.Writer, prompt, want string) bool {
	_, _ = fmt.Fprint(w, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.TrimSpace(line) == want
}
