package inventory

import (
	"fmt"
)

// Validation finding codes. V0xx are errors (exit 1), V1xx are warnings.
const (
	ErrDuplicateSourceID    = "V001"
	ErrEmptyRequiredField   = "V002"
	ErrProvenWithoutSamples = "V003"
	ErrMissingColumn        = "V004"
	WarnUnknownSourcetype   = "V101"
	WarnBadTechniqueID      = "V102"
	WarnNonBooleanFlag      = "V103"
)

// Severity classifies a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one validation diagnostic for an inventory row.
type Finding struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Line     int      `json:"line,omitempty"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
}

// requiredRowFields are the per-row fields that must be non-empty.
var requiredRowFields = []struct {
	name  string
	value func(LogSource) string
}{
	{"source_id", func(s LogSource) string { return s.SourceID }},
	{"vendor", func(s LogSource) string { return s.Vendor }},
	{"product", func(s LogSource) string { return s.Product }},
	{"index", func(s LogSource) string { return s.Index }},
	{"sourcetype", func(s LogSource) string { return s.Sourcetype }},
	{"enabled", func(s LogSource) string { return s.Enabled }},
}

// Validate checks inventory rows for structural completeness. It reports
// every finding rather than stopping at the first, so one run gives the
// operator the full repair list. knownSourcetypes may be nil, which skips
// the unknown-sourcetype warning.
func Validate(sources []LogSource, knownSourcetypes map[string]bool) []Finding {
	var findings []Finding

	seen := map[string]int{} // source_id -> first line
	for _, src := range sources {
		for _, req := range requiredRowFields {
			if req.value(src) == "" {
				findings = append(findings, Finding{
					Code:     ErrEmptyRequiredField,
					Severity: SeverityError,
					Line:     src.Line,
					Field:    req.name,
					Message:  fmt.Sprintf("required field %q is empty", req.name),
				})
			}
		}

		if src.SourceID != "" {
			if first, dup := seen[src.SourceID]; dup {
				findings = append(findings, Finding{
					Code:     ErrDuplicateSourceID,
					Severity: SeverityError,
					Line:     src.Line,
					Field:    "source_id",
					Message:  fmt.Sprintf("duplicate source_id %q (first seen on line %d)", src.SourceID, first),
				})
			} else {
				seen[src.SourceID] = src.Line
			}
		}

		// A source claimed ingestion-proven must carry both sample refs.
		if src.SIEMProvenBool() && (src.SampleRaw == "" || src.SampleParsed == "") {
			findings = append(findings, Finding{
				Code:     ErrProvenWithoutSamples,
				Severity: SeverityError,
				Line:     src.Line,
				Field:    "siem_proven",
				Message:  "siem_proven=true but sample_raw and/or sample_parsed is missing",
			})
		}

		for _, flag := range []struct{ name, value string }{
			{"enabled", src.Enabled},
			{"siem_proven", src.SIEMProven},
		} {
			if flag.value != "" && !isBoolish(flag.value) {
				findings = append(findings, Finding{
					Code:     WarnNonBooleanFlag,
					Severity: SeverityWarning,
					Line:     src.Line,
					Field:    flag.name,
					Message:  fmt.Sprintf("%s=%q is not boolean-ish", flag.name, flag.value),
				})
			}
		}

		if knownSourcetypes != nil && src.Sourcetype != "" && !knownSourcetypes[src.Sourcetype] {
			findings = append(findings, Finding{
				Code:     WarnUnknownSourcetype,
				Severity: SeverityWarning,
				Line:     src.Line,
				Field:    "sourcetype",
				Message:  fmt.Sprintf("sourcetype %q not in the known-sourcetype lookup", src.Sourcetype),
			})
		}

		for _, id := range src.TechniqueHints() {
			if !techniqueIDPattern.MatchString(id) {
				findings = append(findings, Finding{
					Code:     WarnBadTechniqueID,
					Severity: SeverityWarning,
					Line:     src.Line,
					Field:    "mitre_techniques",
					Message:  fmt.Sprintf("malformed technique id %q", id),
				})
			}
		}
	}

	return findings
}

// CountErrors returns the number of error-severity findings.
func CountErrors(findings []Finding) int {
	n := 0
	for _, f := range findings {
		if f.Severity == SeverityError {
			n++
		}
	}
	return n
}
