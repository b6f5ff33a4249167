package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arminjalali/soc-usecase-factory/internal/config"
	"github.com/arminjalali/soc-usecase-factory/internal/coverage"
	"github.com/arminjalali/soc-usecase-factory/internal/store"
	"github.com/arminjalali/soc-usecase-factory/internal/taxonomy"
)

// CoverageResult holds coverage roll-up results.
type CoverageResult struct {
	Rows      []coverage.Row `json:"rows"`
	Overall   coverage.Row   `json:"overall"`
	Gaps      []string       `json:"gaps,omitempty"`
	OutputDir string         `json:"output_dir"`
}

// NewCoverageCommand creates the coverage command (pipeline stage 5).
func NewCoverageCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "coverage",
		Short: "Roll the scaffold up into coverage tables and layers",
		Long: `Group mapping cells by tactic and emit the coverage matrix, per-technique
detail, and ATT&CK Navigator layers.

Tactics appear in the taxonomy's canonical execution-flow order, not
alphabetically.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			result, err := stageCoverage(cmd.Context(), formatter, cfg)
			if err != nil {
				return err
			}
			return outputCoverageSuccess(formatter, result)
		},
	}
}

func stageCoverage(ctx context.Context, formatter *OutputFormatter, cfg *config.Config) (*CoverageResult, error) {
	master, err := taxonomy.LoadMaster(cfg.Generated.Dir)
	if err != nil {
		return nil, commandError(formatter, ErrCodeRead, fmt.Sprintf("loading technique master (run taxonomy first?): %v", err))
	}

	st, err := store.Open(cfg.Generated.Database)
	if err != nil {
		return nil, commandError(formatter, ErrCodeRead, fmt.Sprintf("opening scaffold database: %v", err))
	}
	defer st.Close()

	cells, err := st.ListCells(ctx)
	if err != nil {
		return nil, commandError(formatter, ErrCodeRead, fmt.Sprintf("reading scaffold: %v", err))
	}
	formatter.VerboseLog("Aggregating %d cell(s) over %d technique(s)", len(cells), len(master.Techniques))

	report, err := coverage.Aggregate(master, cells)
	if err != nil {
		return nil, dataError(formatter, "COVERAGE_AGGREGATE", err.Error(), nil)
	}

	if err := report.WriteArtifacts(cfg.Generated.Dir); err != nil {
		return nil, commandError(formatter, ErrCodeWrite, fmt.Sprintf("writing coverage artifacts: %v", err))
	}

	return &CoverageResult{
		Rows:      report.Rows,
		Overall:   report.Overall,
		Gaps:      report.Gaps,
		OutputDir: cfg.Generated.Dir,
	}, nil
}

func outputCoverageSuccess(formatter *OutputFormatter, result *CoverageResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ coverage computed → %s\n", result.OutputDir)
	for _, row := range result.Rows {
		fmt.Fprintf(formatter.Writer, "  %-22s total=%d verified=%d seeded-only=%d gaps=%d\n",
			row.Tactic, row.Total, row.Verified, row.SeededOnly, row.Gaps)
	}
	row := result.Overall
	fmt.Fprintf(formatter.Writer, "  %-22s total=%d verified=%d seeded-only=%d gaps=%d\n",
		row.Tactic, row.Total, row.Verified, row.SeededOnly, row.Gaps)
	return nil
}
