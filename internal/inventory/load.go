package inventory

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// HeaderError reports required columns absent from the inventory header.
// It is an inventory defect, not a read failure: callers render it as
// error findings against the header line rather than aborting the command.
type HeaderError struct {
	Missing []string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("inventory header missing required column(s): %s", strings.Join(e.Missing, ", "))
}

// Findings renders the missing columns as error-severity findings.
func (e *HeaderError) Findings() []Finding {
	findings := make([]Finding, 0, len(e.Missing))
	for _, name := range e.Missing {
		findings = append(findings, Finding{
			Code:     ErrMissingColumn,
			Severity: SeverityError,
			Line:     1,
			Field:    name,
			Message:  fmt.Sprintf("required column %q is missing from the header", name),
		})
	}
	return findings
}

// Load reads devices.csv. Column order is free; all RequiredColumns must be
// present. Rows shorter than the header are padded with empty fields so the
// validator can report them instead of the reader aborting.
func Load(path string) ([]LogSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inventory: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses inventory rows from r.
func Read(r io.Reader) ([]LogSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("inventory is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read inventory header: %w", err)
	}

	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &HeaderError{Missing: missing}
	}

	field := func(record []string, name string) string {
		i := col[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var sources []LogSource
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read inventory line %d: %w", line+1, err)
		}
		line++
		sources = append(sources, LogSource{
			SourceID:        field(record, "source_id"),
			Vendor:          field(record, "vendor"),
			Product:         field(record, "product"),
			Family:          field(record, "family"),
			LogTransport:    field(record, "log_transport"),
			LogFormat:       field(record, "log_format"),
			Index:           field(record, "index"),
			Sourcetype:      field(record, "sourcetype"),
			Enabled:         field(record, "enabled"),
			OwnerGroup:      field(record, "owner_group"),
			SIEMProven:      field(record, "siem_proven"),
			SampleRaw:       field(record, "sample_raw"),
			SampleParsed:    field(record, "sample_parsed"),
			MitreTechniques: field(record, "mitre_techniques"),
			Notes:           field(record, "notes"),
			Line:            line,
		})
	}
	return sources, nil
}

// LoadSourcetypes reads the known-sourcetype lookup. The file only needs a
// column whose name is "sourcetype" (case-insensitive); the first column is
// used as a fallback, matching the historical lookup format.
func LoadSourcetypes(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sourcetype lookup: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sourcetype lookup header: %w", err)
	}

	idx := 0
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "sourcetype") {
			idx = i
			break
		}
	}

	known := map[string]bool{}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read sourcetype lookup: %w", err)
		}
		if idx < len(record) {
			if st := strings.TrimSpace(record[idx]); st != "" {
				known[st] = true
			}
		}
	}
	return known, nil
}
