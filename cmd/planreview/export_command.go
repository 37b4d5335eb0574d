package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fwojciec/planreview/export"
)

func newExportCommand(cctx *commandContext) *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the accepted changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			planID, err := cctx.resolvePlanID(cfg)
			if err != nil {
				return err
			}
			if format == "" {
				format = cfg.Export.Format
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			engine := cctx.buildEngine(cfg, cctx.newLogger(os.Stderr))
			if err := engine.LoadPlan(cmd.Context(), planID); err != nil {
				return err
			}

			content, err := export.NewExporter(engine.Store()).Export(f)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(content)
				return err
			}
			return os.WriteFile(output, content, 0o644)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "export format: json, csv, markdown, or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}
