// Package config loads the workspace configuration: the conventional file
// locations every pipeline stage reads from and writes to.
//
// The config file is YAML, validated against an embedded CUE schema before
// decoding so unknown keys and empty paths are reported with their CUE path
// instead of being silently ignored.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// DefaultFile is the conventional config filename at the workspace root.
const DefaultFile = "socfactory.yaml"

// Config holds the workspace file locations. Zero-valued keys fall back to
// the conventional defaults.
type Config struct {
	Inventory    InventoryPaths    `yaml:"inventory"`
	Taxonomy     TaxonomyPaths     `yaml:"taxonomy"`
	Generated    GeneratedPaths    `yaml:"generated"`
	Verification VerificationPaths `yaml:"verification"`
}

type InventoryPaths struct {
	Devices     string `yaml:"devices"`
	Sourcetypes string `yaml:"sourcetypes"`
	SchemasDir  string `yaml:"schemas_dir"`
	SamplesDir  string `yaml:"samples_dir"`
}

type TaxonomyPaths struct {
	Bundle string `yaml:"bundle"`
}

type GeneratedPaths struct {
	Dir      string `yaml:"dir"`
	Database string `yaml:"database"`
}

type VerificationPaths struct {
	Records string `yaml:"records"`
}

// Default returns the conventional workspace layout.
func Default() *Config {
	return &Config{
		Inventory: InventoryPaths{
			Devices:     filepath.Join("inventory", "devices.csv"),
			Sourcetypes: filepath.Join("inventory", "botsv3_sourcetypes.csv"),
			SchemasDir:  filepath.Join("inventory", "schemas"),
			SamplesDir:  filepath.Join("inventory", "samples"),
		},
		Taxonomy: TaxonomyPaths{
			Bundle: filepath.Join("mappings", "raw", "enterprise-attack.json"),
		},
		Generated: GeneratedPaths{
			Dir:      filepath.Join("mappings", "generated"),
			Database: filepath.Join("mappings", "generated", "mappings.db"),
		},
		Verification: VerificationPaths{
			Records: filepath.Join("mappings", "verification_records.csv"),
		},
	}
}

// Load reads and validates a config file, layering it over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := validateSchema(path, data); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads the given path if non-empty, otherwise the
// conventional socfactory.yaml if present, otherwise plain defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return Load(DefaultFile)
	}
	return Default(), nil
}

// validateSchema unifies the YAML document with the embedded CUE schema.
func validateSchema(filename string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if !def.Exists() {
		return fmt.Errorf("config schema has no #Config definition")
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("parse config YAML: %w", err)
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("build config value: %w", err)
	}

	if err := def.Unify(doc).Validate(cue.Concrete(false)); err != nil {
		return fmt.Errorf("config schema violation: %w", err)
	}
	return nil
}

// ScaffoldCSV is the derived scaffold export location.
func (c *Config) ScaffoldCSV() string {
	return filepath.Join(c.Generated.Dir, "mapping_scaffold.csv")
}
