package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatsCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show triage statistics for the plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			planID, err := cctx.resolvePlanID(cfg)
			if err != nil {
				return err
			}

			engine := cctx.buildEngine(cfg, cctx.newLogger(os.Stderr))
			if err := engine.LoadPlan(cmd.Context(), planID); err != nil {
				return err
			}

			stats := engine.Store().Statistics()
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Total", "Accepted", "Rejected", "Pending", "Acceptance", "Avg Confidence"},
				[][]string{{
					strconv.Itoa(stats.Total),
					strconv.Itoa(stats.Accepted),
					strconv.Itoa(stats.Rejected),
					strconv.Itoa(stats.Pending),
					fmt.Sprintf("%.2f%%", stats.AcceptanceRate),
					fmt.Sprintf("%.2f", stats.AverageConfidence),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
			))

			counts := engine.Store().FieldCounts()
			if len(counts) == 0 {
				return nil
			}
			fields := make([]string, 0, len(counts))
			for f := range counts {
				fields = append(fields, f)
			}
			sort.Strings(fields)
			rows := make([][]string, 0, len(fields))
			for _, f := range fields {
				rows = append(rows, []string{f, strconv.Itoa(counts[f])})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Field", "Pending"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}
