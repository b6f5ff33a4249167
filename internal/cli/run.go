package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// StageResult pairs a stage name with its payload for the run summary.
type StageResult struct {
	Stage   string `json:"stage"`
	Skipped bool   `json:"skipped,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// RunResult holds the full-pipeline summary.
type RunResult struct {
	Stages []StageResult `json:"stages"`
}

// NewRunCommand creates the run command: all five stages in pipeline order,
// stopping at the first failure.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline (validate, taxonomy, seed, merge, coverage)",
		Long: `Run every pipeline stage in the fixed order: validate the inventory, build
the technique master, seed the scaffold, merge verification records, and
compute coverage.

The merge stage is skipped when no verification records file exists yet, so
a fresh workspace can be bootstrapped end to end.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			result := &RunResult{}
			progress := func(stage string, data any) {
				result.Stages = append(result.Stages, StageResult{Stage: stage, Data: data})
				if formatter.Format != "json" {
					fmt.Fprintf(formatter.Writer, "[%d/5] %s done\n", len(result.Stages), stage)
				}
			}

			validateRes, err := stageValidate(formatter, cfg)
			if err != nil {
				return err
			}
			progress("validate", validateRes)

			taxonomyRes, err := stageTaxonomy(formatter, cfg)
			if err != nil {
				return err
			}
			progress("taxonomy", taxonomyRes)

			seedRes, err := stageSeed(ctx, formatter, cfg)
			if err != nil {
				return err
			}
			progress("seed", seedRes)

			if _, statErr := os.Stat(cfg.Verification.Records); statErr == nil {
				mergeRes, err := stageMerge(ctx, formatter, cfg)
				if err != nil {
					return err
				}
				progress("merge", mergeRes)
			} else {
				result.Stages = append(result.Stages, StageResult{Stage: "merge", Skipped: true})
				if formatter.Format != "json" {
					fmt.Fprintf(formatter.Writer, "[%d/5] merge skipped (no verification records at %s)\n",
						len(result.Stages), cfg.Verification.Records)
				}
			}

			coverageRes, err := stageCoverage(ctx, formatter, cfg)
			if err != nil {
				return err
			}
			progress("coverage", coverageRes)

			if formatter.Format == "json" {
				return formatter.Success(result)
			}
			fmt.Fprintln(formatter.Writer, "✓ pipeline complete")
			return nil
		},
	}
}
