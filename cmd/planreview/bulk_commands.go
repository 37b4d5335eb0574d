package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fwojciec/planreview/triage"
)

// runBulk loads the plan, runs one bulk operation, and reports the count.
func runBulk(cctx *commandContext, cmd *cobra.Command, fn func(ctx context.Context, engine *triage.Engine) (int, error)) error {
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

	updated, err := fn(cmd.Context(), engine)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d change(s) updated\n", updated)
	return nil
}

func newAcceptAllCommand(cctx *commandContext) *cobra.Command {
	var sceneID string
	cmd := &cobra.Command{
		Use:   "accept-all",
		Short: "Accept every pending change, optionally limited to one scene",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBulk(cctx, cmd, func(ctx context.Context, engine *triage.Engine) (int, error) {
				return engine.AcceptAll(ctx, sceneID)
			})
		},
	}
	cmd.Flags().StringVar(&sceneID, "scene", "", "limit to a single scene id")
	return cmd
}

func newRejectAllCommand(cctx *commandContext) *cobra.Command {
	var sceneID string
	cmd := &cobra.Command{
		Use:   "reject-all",
		Short: "Reject every pending change, optionally limited to one scene",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBulk(cctx, cmd, func(ctx context.Context, engine *triage.Engine) (int, error) {
				return engine.RejectAll(ctx, sceneID)
			})
		},
	}
	cmd.Flags().StringVar(&sceneID, "scene", "", "limit to a single scene id")
	return cmd
}

func newAcceptConfidenceCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "accept-confidence <threshold>",
		Short: "Accept every pending change at or above a confidence threshold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid threshold %q: %w", args[0], err)
			}
			return runBulk(cctx, cmd, func(ctx context.Context, engine *triage.Engine) (int, error) {
				return engine.AcceptByConfidence(ctx, threshold)
			})
		},
	}
}

func newAcceptFieldCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "accept-field <field>",
		Short: "Accept every pending change for a field across all scenes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBulk(cctx, cmd, func(ctx context.Context, engine *triage.Engine) (int, error) {
				return engine.AcceptByField(ctx, args[0])
			})
		},
	}
}

func newRejectFieldCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reject-field <field>",
		Short: "Reject every pending change for a field across all scenes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBulk(cctx, cmd, func(ctx context.Context, engine *triage.Engine) (int, error) {
				return engine.RejectByField(ctx, args[0])
			})
		},
	}
}
