package main

import (
	"strings"

	"github.com/spf13/cobra"

	"hanziblur/internal/analysis"
	"hanziblur/internal/deps"
	"hanziblur/internal/preflight"
	"hanziblur/internal/services"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report external tools, OCR backends and directory access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			runCtx := cmd.Context()

			tools := preflight.CheckSystemDeps(runCtx, cfg)
			checks := preflight.RunAll(runCtx, cfg)
			engineName := "none"
			if engine := analysis.EngineFromConfig(cfg, logger); engine != nil {
				engineName = engine.Name()
			}

			if jsonOutput {
				if err := writeJSON(cmd, map[string]any{
					"tools":      tools,
					"checks":     checks,
					"ocr_engine": engineName,
				}); err != nil {
					return err
				}
			} else {
				renderCheckReport(cmd, tools, checks, engineName)
			}

			missing := deps.Missing(tools)
			failed := preflight.Failed(checks)
			if len(missing) > 0 || len(failed) > 0 {
				names := make([]string, 0, len(missing)+len(failed))
				for _, m := range missing {
					names = append(names, m.Name)
				}
				for _, f := range failed {
					names = append(names, f.Name)
				}
				return services.Wrap(services.ErrExternalTool, "check", "", strings.Join(names, ", "), nil)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	return cmd
}

func renderCheckReport(cmd *cobra.Command, tools []deps.Status, checks []preflight.Result, engine string) {
	report := newStatusReport(cmd.OutOrStdout())

	report.section("Tools")
	for _, t := range tools {
		msg := t.Command
		if t.Detail != "" {
			msg = t.Detail
		}
		report.line(t.Name, toolStatus(t), msg)
	}

	report.section("Checks")
	for _, c := range checks {
		kind := statusOK
		if !c.Passed {
			kind = statusError
		}
		report.line(c.Name, kind, c.Detail)
	}

	report.section("OCR")
	if engine == "none" {
		report.line("Backend", statusWarn, "none available; fallback band only")
	} else {
		report.line("Backend", statusOK, engine)
	}
}

// toolStatus downgrades a missing optional tool to a warning.
func toolStatus(s deps.Status) statusKind {
	switch {
	case s.Available:
		return statusOK
	case s.Optional:
		return statusWarn
	default:
		return statusError
	}
}
