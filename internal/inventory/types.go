// Package inventory loads and validates the hand-maintained log-source
// inventory (devices.csv) and the known-sourcetype lookup.
package inventory

import (
	"regexp"
	"sort"
	"strings"
)

// RequiredColumns is the column set devices.csv must carry. Extra columns
// are allowed; missing ones fail validation.
var RequiredColumns = []string{
	"source_id", "vendor", "product", "family",
	"log_transport", "log_format", "index", "sourcetype",
	"enabled", "owner_group", "siem_proven",
	"sample_raw", "sample_parsed", "mitre_techniques", "notes",
}

// techniqueIDPattern matches ATT&CK technique ids, e.g. T1059 or T1059.001.
var techniqueIDPattern = regexp.MustCompile(`^T\d{4}(\.\d{3})?$`)

// LogSource is one inventoried emitter of telemetry.
//
// Enabled and SIEMProven are kept as raw strings so the validator can warn
// about non-boolean values instead of losing them at decode time.
type LogSource struct {
	SourceID        string
	Vendor          string
	Product         string
	Family          string
	LogTransport    string
	LogFormat       string
	Index           string
	Sourcetype      string
	Enabled         string
	OwnerGroup      string
	SIEMProven      string
	SampleRaw       string
	SampleParsed    string
	MitreTechniques string
	Notes           string

	// Line is the 1-based line number in devices.csv, for diagnostics.
	Line int
}

// EffectiveFamily returns the declared family, or the family classified
// from the sourcetype when the column is blank.
func (s LogSource) EffectiveFamily() string {
	if f := strings.TrimSpace(s.Family); f != "" {
		return f
	}
	return ClassifyFamily(s.Sourcetype)
}

// TechniqueHints returns the curated technique ids attached to the source.
func (s LogSource) TechniqueHints() []string {
	var ids []string
	for _, part := range strings.Split(s.MitreTechniques, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// isBoolish reports whether a raw flag value is one of the accepted
// boolean spellings.
func isBoolish(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "false", "yes", "no", "1", "0":
		return true
	}
	return false
}

// boolValue interprets an accepted boolean spelling. Unrecognized values
// read as false; the validator has already warned about them.
func boolValue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "1":
		return true
	}
	return false
}

// SIEMProvenBool reports whether the source is marked SIEM-ingestion-proven.
func (s LogSource) SIEMProvenBool() bool { return boolValue(s.SIEMProven) }

// EnabledBool reports whether the source is marked enabled.
func (s LogSource) EnabledBool() bool { return boolValue(s.Enabled) }

// Families returns the distinct effective families across sources with a
// non-empty sourcetype, sorted ascending.
func Families(sources []LogSource) []string {
	seen := map[string]bool{}
	for _, s := range sources {
		if strings.TrimSpace(s.Sourcetype) == "" {
			continue
		}
		seen[s.EffectiveFamily()] = true
	}
	families := make([]string, 0, len(seen))
	for f := range seen {
		families = append(families, f)
	}
	sort.Strings(families)
	return families
}
