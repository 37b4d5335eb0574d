package main

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fwojciec/planreview/config"
	"github.com/fwojciec/planreview/httpapi"
	"github.com/fwojciec/planreview/mem"
	"github.com/fwojciec/planreview/triage"
)

// commandContext carries the configuration and wiring shared by subcommands.
type commandContext struct {
	configPath string
	planID     string
	verbose    bool

	cfg *config.Config
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// resolvePlanID prefers the --plan flag over the configured default.
func (c *commandContext) resolvePlanID(cfg *config.Config) (string, error) {
	planID := c.planID
	if planID == "" {
		planID = cfg.Review.PlanID
	}
	if planID == "" {
		return "", errors.New("no plan id: pass --plan or set review.plan_id in the config")
	}
	return planID, nil
}

// newLogger builds the logger for non-TUI commands. logWriter lets the review
// command silence logging so it cannot corrupt the alternate screen.
func (c *commandContext) newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// buildEngine wires the store, backend client, and engine for a plan.
func (c *commandContext) buildEngine(cfg *config.Config, logger *slog.Logger) *triage.Engine {
	client := httpapi.NewClient(cfg.Backend.URL,
		httpapi.WithToken(cfg.Backend.APIToken),
		httpapi.WithLogger(logger),
	)
	opts := []triage.Option{
		triage.WithLogger(logger),
		triage.WithHistoryLimit(cfg.Review.HistoryLimit),
	}
	if cfg.Review.SyncOnUndo {
		opts = append(opts, triage.WithSyncOnUndo())
	}
	return triage.NewEngine(mem.NewStore(), client, opts...)
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/planreview/config.toml"
	}
	return "config.toml"
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	cmd := &cobra.Command{
		Use:           "planreview",
		Short:         "Review machine-proposed scene metadata changes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&ctx.configPath, "config", defaultConfigPath(), "path to the config file")
	cmd.PersistentFlags().StringVar(&ctx.planID, "plan", "", "plan id to operate on")
	cmd.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newReviewCommand(ctx),
		newStatsCommand(ctx),
		newExportCommand(ctx),
		newAcceptAllCommand(ctx),
		newRejectAllCommand(ctx),
		newAcceptConfidenceCommand(ctx),
		newAcceptFieldCommand(ctx),
		newRejectFieldCommand(ctx),
	)
	return cmd
}
