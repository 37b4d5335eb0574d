package main

import (
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fwojciec/planreview"
	"github.com/fwojciec/planreview/bubbletea"
	"github.com/fwojciec/planreview/config"
	"github.com/fwojciec/planreview/lipgloss"
	"github.com/fwojciec/planreview/valuediff"
	"github.com/fwojciec/planreview/ws"
)

func newReviewCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Interactively triage the plan's proposed changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			planID, err := cctx.resolvePlanID(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger := cctx.newLogger(io.Discard)
			engine := cctx.buildEngine(cfg, logger)
			if err := engine.LoadPlan(ctx, planID); err != nil {
				return err
			}

			var opts []bubbletea.ReviewModelOption
			if cfg.Backend.WebsocketURL != "" {
				refresh := make(chan struct{}, 1)
				opts = append(opts, bubbletea.WithRefreshSignal(refresh))
				listener := ws.NewListener(cfg.Backend.WebsocketURL, ws.WithLogger(logger))
				go func() {
					// The refetch itself happens inside the TUI's update
					// loop; the listener only signals that one is due.
					_ = listener.Listen(ctx, "plan/"+planID, func([]byte) {
						select {
						case refresh <- struct{}{}:
						default:
						}
					})
				}()
			}

			viewer := bubbletea.NewViewer(themeFor(cfg))
			return viewer.Review(ctx, engine, valuediff.NewDiffer(), opts...)
		},
	}
}

func themeFor(cfg *config.Config) planreview.Theme {
	if cfg.UI.Theme == "light" {
		return lipgloss.LightTheme()
	}
	return lipgloss.DarkTheme()
}
