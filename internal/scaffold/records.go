package scaffold

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"
)

var recordHeader = []string{
	"technique_id", "family", "raw_sample_ref", "parsed_sample_ref", "timestamp",
}

var techniqueIDPattern = regexp.MustCompile(`^T\d{4}(\.\d{3})?$`)

// LoadRecords reads verification records (one row per proof-of-telemetry
// search result). Malformed rows are rejected here, before any state is
// touched, so a bad record file cannot half-apply.
func LoadRecords(path string) ([]VerificationRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open verification records: %w", err)
	}
	defer f.Close()
	return ReadRecords(f)
}

// ReadRecords parses verification records from r.
func ReadRecords(r io.Reader) ([]VerificationRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return []VerificationRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read records header: %w", err)
	}
	if len(header) != len(recordHeader) {
		return nil, fmt.Errorf("records header mismatch: got %v, want %v", header, recordHeader)
	}
	for i := range header {
		if strings.TrimSpace(header[i]) != recordHeader[i] {
			return nil, fmt.Errorf("records header mismatch: got %v, want %v", header, recordHeader)
		}
	}

	var records []VerificationRecord
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read records line %d: %w", line+1, err)
		}
		line++

		rec := VerificationRecord{
			TechniqueID:     strings.TrimSpace(row[0]),
			Family:          strings.TrimSpace(row[1]),
			RawSampleRef:    strings.TrimSpace(row[2]),
			ParsedSampleRef: strings.TrimSpace(row[3]),
		}
		if !techniqueIDPattern.MatchString(rec.TechniqueID) {
			return nil, fmt.Errorf("records line %d: malformed technique id %q", line, rec.TechniqueID)
		}
		if rec.Family == "" {
			return nil, fmt.Errorf("records line %d: empty family", line)
		}
		// Both refs must resolve to evidence before a cell may be verified.
		if rec.RawSampleRef == "" || rec.ParsedSampleRef == "" {
			return nil, fmt.Errorf("records line %d: both raw_sample_ref and parsed_sample_ref are required", line)
		}
		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(row[4]))
		if err != nil {
			return nil, fmt.Errorf("records line %d: bad timestamp %q: %w", line, row[4], err)
		}
		rec.Timestamp = ts

		records = append(records, rec)
	}
	return records, nil
}
