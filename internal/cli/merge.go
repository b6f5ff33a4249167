package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arminjalali/soc-usecase-factory/internal/config"
	"github.com/arminjalali/soc-usecase-factory/internal/scaffold"
	"github.com/arminjalali/soc-usecase-factory/internal/store"
)

// MergeResult holds verification merge results.
type MergeResult struct {
	*scaffold.MergeResult
	ScaffoldCSV string `json:"scaffold_csv"`
}

// NewMergeCommand creates the merge command (pipeline stage 4).
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Merge proof-of-telemetry records into the scaffold",
		Long: `Merge verification records into the mapping scaffold, upgrading matching
seeded cells to verified.

The merge is transactional: any unmapped or conflicting record rolls the
whole merge back and the scaffold is left unchanged.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			result, err := stageMerge(cmd.Context(), formatter, cfg)
			if err != nil {
				return err
			}
			return outputMergeSuccess(formatter, result)
		},
	}
}

func stageMerge(ctx context.Context, formatter *OutputFormatter, cfg *config.Config) (*MergeResult, error) {
	records, err := scaffold.LoadRecords(cfg.Verification.Records)
	if err != nil {
		return nil, commandError(formatter, ErrCodeRead, fmt.Sprintf("loading verification records: %v", err))
	}
	formatter.VerboseLog("Loaded %d verification record(s) from %s", len(records), cfg.Verification.Records)

	st, err := store.Open(cfg.Generated.Database)
	if err != nil {
		return nil, commandError(formatter, ErrCodeRead, fmt.Sprintf("opening scaffold database: %v", err))
	}
	defer st.Close()

	res, err := scaffold.Merge(ctx, st, records)
	if err != nil {
		var ce *scaffold.ConflictError
		if errors.As(err, &ce) {
			return nil, dataError(formatter, string(ce.Code), ce.Error(), ce.Details)
		}
		return nil, commandError(formatter, ErrCodeWrite, fmt.Sprintf("merging records: %v", err))
	}

	if err := scaffold.WriteCSV(ctx, st, cfg.ScaffoldCSV()); err != nil {
		return nil, commandError(formatter, ErrCodeWrite, fmt.Sprintf("exporting scaffold: %v", err))
	}

	return &MergeResult{MergeResult: res, ScaffoldCSV: cfg.ScaffoldCSV()}, nil
}

func outputMergeSuccess(formatter *OutputFormatter, result *MergeResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ merged %d record(s): %d upgraded, %d already verified → %s\n",
		result.Records, result.Upgraded, result.Idempotent, result.ScaffoldCSV)
	return nil
}
