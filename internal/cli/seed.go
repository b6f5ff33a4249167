package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arminjalali/soc-usecase-factory/internal/config"
	"github.com/arminjalali/soc-usecase-factory/internal/inventory"
	"github.com/arminjalali/soc-usecase-factory/internal/scaffold"
	"github.com/arminjalali/soc-usecase-factory/internal/store"
	"github.com/arminjalali/soc-usecase-factory/internal/taxonomy"
)

// SeedResult holds scaffold seeding results.
type SeedResult struct {
	*scaffold.SeedResult
	Families    []string `json:"families"`
	ScaffoldCSV string   `json:"scaffold_csv"`
}

// NewSeedCommand creates the seed command (pipeline stage 3).
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the technique/family mapping scaffold",
		Long: `Ensure a mapping cell exists for every technique and log-source family.

Existing cells keep their status, so re-seeding never erases prior
verification. A stored family missing from the current inventory is a stale
reference and fails the stage.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			result, err := stageSeed(cmd.Context(), formatter, cfg)
			if err != nil {
				return err
			}
			return outputSeedSuccess(formatter, result)
		},
	}
}

func stageSeed(ctx context.Context, formatter *OutputFormatter, cfg *config.Config) (*SeedResult, error) {
	sources, err := inventory.Load(cfg.Inventory.Devices)
	if err != nil {
		return nil, commandError(formatter, ErrCodeRead, fmt.Sprintf("loading inventory: %v", err))
	}
	families := inventory.Families(sources)

	master, err := taxonomy.LoadMaster(cfg.Generated.Dir)
	if err != nil {
		return nil, commandError(formatter, ErrCodeRead, fmt.Sprintf("loading technique master (run taxonomy first?): %v", err))
	}
	formatter.VerboseLog("Seeding %d technique(s) x %d family(ies)", len(master.Techniques), len(families))

	st, err := store.Open(cfg.Generated.Database)
	if err != nil {
		return nil, commandError(formatter, ErrCodeRead, fmt.Sprintf("opening scaffold database: %v", err))
	}
	defer st.Close()

	res, err := scaffold.Seed(ctx, st, master, families)
	if err != nil {
		var ce *scaffold.ConflictError
		if errors.As(err, &ce) {
			return nil, dataError(formatter, string(ce.Code), ce.Message, ce.Details)
		}
		return nil, commandError(formatter, ErrCodeWrite, fmt.Sprintf("seeding scaffold: %v", err))
	}
	for _, orphan := range res.OrphanTechniques {
		formatter.VerboseLog("Warning: technique %s is no longer in the master; cells preserved", orphan)
	}

	if err := scaffold.WriteCSV(ctx, st, cfg.ScaffoldCSV()); err != nil {
		return nil, commandError(formatter, ErrCodeWrite, fmt.Sprintf("exporting scaffold: %v", err))
	}

	return &SeedResult{SeedResult: res, Families: families, ScaffoldCSV: cfg.ScaffoldCSV()}, nil
}

func outputSeedSuccess(formatter *OutputFormatter, result *SeedResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ scaffold seeded (%d cells: %d new, %d preserved) → %s\n",
		result.CellsTotal, result.CellsInserted, result.CellsPreserved, result.ScaffoldCSV)
	if len(result.OrphanTechniques) > 0 {
		fmt.Fprintf(formatter.Writer, "  %d orphaned technique(s) preserved: %v\n",
			len(result.OrphanTechniques), result.OrphanTechniques)
	}
	return nil
}
