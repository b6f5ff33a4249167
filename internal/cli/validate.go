package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arminjalali/soc-usecase-factory/internal/config"
	"github.com/arminjalali/soc-usecase-factory/internal/inventory"
)

// ValidateResult holds inventory validation results.
type ValidateResult struct {
	Valid    bool                `json:"valid"`
	Sources  int                 `json:"sources"`
	Families []string            `json:"families"`
	Warnings int                 `json:"warnings"`
	Findings []inventory.Finding `json:"findings,omitempty"`
}

// NewValidateCommand creates the validate command (pipeline stage 1).
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the log-source inventory",
		Long: `Validate the log-source inventory for structural completeness.

Checks required columns, duplicate source ids, and that every source marked
SIEM-ingestion-proven carries both a raw and a parsed sample reference.
Warnings (unknown sourcetypes, malformed technique ids) do not fail the run.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			result, err := stageValidate(formatter, cfg)
			if err != nil {
				return err
			}
			return outputValidateSuccess(formatter, result)
		},
	}
}

func stageValidate(formatter *OutputFormatter, cfg *config.Config) (*ValidateResult, error) {
	sources, err := inventory.Load(cfg.Inventory.Devices)
	if err != nil {
		// An incomplete header is an inventory defect, not a read
		// failure: report it like any other validation error.
		var headerErr *inventory.HeaderError
		if errors.As(err, &headerErr) {
			return nil, outputFindings(formatter, &ValidateResult{Findings: headerErr.Findings()})
		}
		return nil, commandError(formatter, ErrCodeRead, fmt.Sprintf("loading inventory: %v", err))
	}
	formatter.VerboseLog("Loaded %d inventory row(s) from %s", len(sources), cfg.Inventory.Devices)

	// The sourcetype lookup is advisory; a missing file just skips the
	// unknown-sourcetype warnings.
	var known map[string]bool
	if _, statErr := os.Stat(cfg.Inventory.Sourcetypes); statErr == nil {
		known, err = inventory.LoadSourcetypes(cfg.Inventory.Sourcetypes)
		if err != nil {
			return nil, commandError(formatter, ErrCodeRead, fmt.Sprintf("loading sourcetype lookup: %v", err))
		}
		formatter.VerboseLog("Sourcetype lookup: %d known sourcetype(s)", len(known))
	} else {
		formatter.VerboseLog("Sourcetype lookup %s not present; skipping sourcetype warnings", cfg.Inventory.Sourcetypes)
	}

	findings := inventory.Validate(sources, known)
	result := &ValidateResult{
		Sources:  len(sources),
		Families: inventory.Families(sources),
		Findings: findings,
		Warnings: len(findings) - inventory.CountErrors(findings),
	}
	result.Valid = inventory.CountErrors(findings) == 0

	if !result.Valid {
		return nil, outputFindings(formatter, result)
	}
	return result, nil
}

func outputValidateSuccess(formatter *OutputFormatter, result *ValidateResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ inventory valid (%d sources, %d families, %d warnings)\n",
		result.Sources, len(result.Families), result.Warnings)
	for _, f := range result.Findings {
		fmt.Fprintf(formatter.Writer, "  [%s] line %d: %s\n", f.Code, f.Line, f.Message)
	}
	return nil
}

func outputFindings(formatter *OutputFormatter, result *ValidateResult) error {
	errCount := inventory.CountErrors(result.Findings)

	if formatter.Format == "json" {
		_ = formatter.Error("VALIDATION_FAILED",
			fmt.Sprintf("inventory validation failed with %d error(s)", errCount), result)
		return NewExitError(ExitFailure, fmt.Sprintf("inventory validation failed with %d error(s)", errCount))
	}

	fmt.Fprintln(formatter.Writer, "✗ inventory validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, f := range result.Findings {
		fmt.Fprintf(formatter.Writer, "  [%s] %s line %d", f.Code, f.Severity, f.Line)
		if f.Field != "" {
			fmt.Fprintf(formatter.Writer, " (%s)", f.Field)
		}
		fmt.Fprintf(formatter.Writer, ": %s\n", f.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("inventory validation failed with %d error(s)", errCount))
}

// commandError emits a command-level error and returns the matching
// ExitError (exit code 2).
func commandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// dataError emits a data-level error and returns the matching ExitError
// (exit code 1).
func dataError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", code, message))
}
