package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tanko/internal/pipeline"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var yes bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the catalog against bucket contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, cleanup, err := ctx.newPipeline()
			if err != nil {
				return err
			}
			defer cleanup()

			// Always survey first; the apply pass only runs once the
			// findings are confirmed.
			report, err := p.Reconcile(cmd.Context(), true)
			if err != nil {
				return err
			}

			if jsonOutput && dryRun {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			pending := printReconcileReport(cmd, report, jsonOutput)
			if dryRun || pending == 0 {
				if pending == 0 && !jsonOutput {
					fmt.Fprintln(out, "Catalog matches bucket contents")
				}
				return nil
			}

			if !yes && !confirm(cmd, fmt.Sprintf("Apply %d catalog change(s)?", pending)) {
				fmt.Fprintln(out, "Aborted")
				return nil
			}

			applied, err := p.Reconcile(cmd.Context(), false)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, applied)
			}
			fmt.Fprintf(out, "Applied %d change(s), %d failure(s)\n", applied.Applied, applied.Failed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report differences without writing")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Apply changes without confirmation")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")
	return cmd
}

// printReconcileReport renders the findings and returns how many entries need
// a catalog write.
func printReconcileReport(cmd *cobra.Command, report *pipeline.ReconcileReport, jsonOutput bool) int {
	pending := 0
	rows := make([][]string, 0, len(report.Entries))
	for _, entry := range report.Entries {
		if entry.State == pipeline.StateMissingFromDB || entry.State == pipeline.StateNeedsUpdate {
			pending++
		}
		rows = append(rows, []string{
			entry.Slug,
			fmt.Sprintf("%d", entry.Volume),
			string(entry.State),
			fmt.Sprintf("%d", entry.Objects),
			fmt.Sprintf("%d", entry.Pages),
		})
	}
	if !jsonOutput && len(rows) > 0 {
		fmt.Fprintln(cmd.OutOrStdout(), renderTable(
			cmd.OutOrStdout(),
			[]string{"Manga", "Vol", "State", "Objects", "Pages"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight},
		))
	}
	return pending
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
