package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/arminjalali/soc-usecase-factory/internal/config"
	"github.com/arminjalali/soc-usecase-factory/internal/taxonomy"
)

// TaxonomyResult holds technique-master build results.
type TaxonomyResult struct {
	Techniques    int    `json:"techniques"`
	Tactics       int    `json:"tactics"`
	AttackVersion string `json:"attack_version"`
	RunID         string `json:"run_id"`
	OutputDir     string `json:"output_dir"`
}

// NewTaxonomyCommand creates the taxonomy command (pipeline stage 2).
func NewTaxonomyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "taxonomy",
		Short: "Build the technique master from the ATT&CK STIX bundle",
		Long: `Flatten the external STIX 2.1 ATT&CK bundle into the technique master
table, the technique/tactic lookups, and the canonical tactic ordering.

Output is sorted by technique id so regenerated artifacts diff cleanly.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			result, err := stageTaxonomy(formatter, cfg)
			if err != nil {
				return err
			}
			return outputTaxonomySuccess(formatter, result)
		},
	}
}

func stageTaxonomy(formatter *OutputFormatter, cfg *config.Config) (*TaxonomyResult, error) {
	data, err := os.ReadFile(cfg.Taxonomy.Bundle)
	if err != nil {
		return nil, commandError(formatter, ErrCodeRead, fmt.Sprintf("reading taxonomy bundle: %v", err))
	}
	formatter.VerboseLog("Read %d byte(s) from %s", len(data), cfg.Taxonomy.Bundle)

	master, err := taxonomy.Build(data)
	if err != nil {
		if taxonomy.IsFormatError(err) {
			return nil, dataError(formatter, "TAXONOMY_FORMAT", err.Error(), nil)
		}
		return nil, commandError(formatter, ErrCodeRead, fmt.Sprintf("building technique master: %v", err))
	}
	formatter.VerboseLog("Flattened %d technique(s) across %d tactic(s)", len(master.Techniques), len(master.Tactics))

	runID := uuid.NewString()
	if err := master.WriteArtifacts(cfg.Generated.Dir, runID, time.Now()); err != nil {
		return nil, commandError(formatter, ErrCodeWrite, fmt.Sprintf("writing taxonomy artifacts: %v", err))
	}

	return &TaxonomyResult{
		Techniques:    len(master.Techniques),
		Tactics:       len(master.Tactics),
		AttackVersion: master.Version,
		RunID:         runID,
		OutputDir:     cfg.Generated.Dir,
	}, nil
}

func outputTaxonomySuccess(formatter *OutputFormatter, result *TaxonomyResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ technique master built (%d techniques, %d tactics) → %s\n",
		result.Techniques, result.Tactics, result.OutputDir)
	return nil
}
