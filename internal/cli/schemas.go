package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arminjalali/soc-usecase-factory/internal/inventory"
	"github.com/arminjalali/soc-usecase-factory/internal/schemas"
)

// SchemasOptions holds flags for the schemas command.
type SchemasOptions struct {
	*RootOptions
	Templates string
}

// SchemasResult holds schema generation results.
type SchemasResult struct {
	Written   int    `json:"written"`
	OutputDir string `json:"output_dir"`
}

// NewSchemasCommand creates the schemas command.
func NewSchemasCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemasOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "Generate per-sourcetype field-schema YAML files",
		Long: `Generate one field-schema YAML per distinct inventory sourcetype, bucketed
by family, with family-specific default field sets.

A template at <templates>/<family>/<file> or <templates>/<file> wins over
the generated defaults.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}

			sources, err := inventory.Load(cfg.Inventory.Devices)
			if err != nil {
				return commandError(formatter, ErrCodeRead, fmt.Sprintf("loading inventory: %v", err))
			}

			written, err := schemas.Generate(sources, cfg.Inventory.SchemasDir, opts.Templates)
			if err != nil {
				return commandError(formatter, ErrCodeWrite, fmt.Sprintf("generating schemas: %v", err))
			}

			result := &SchemasResult{Written: written, OutputDir: cfg.Inventory.SchemasDir}
			if formatter.Format == "json" {
				return formatter.Success(result)
			}
			fmt.Fprintf(formatter.Writer, "✓ wrote %d schema file(s) under %s\n", result.Written, result.OutputDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Templates, "templates", "", "directory with YAML templates overriding generated defaults")

	return cmd
}
