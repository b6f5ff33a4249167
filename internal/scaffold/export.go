package scaffold

import (
	"bytes"
	"context"
	"encoding/csv"

	"github.com/arminjalali/soc-usecase-factory/internal/artifact"
	"github.com/arminjalali/soc-usecase-factory/internal/store"
)

// ScaffoldHeader is the column set of the exported scaffold CSV.
var ScaffoldHeader = []string{
	"technique_id", "family", "status",
	"raw_evidence_ref", "parsed_evidence_ref", "verified_at",
}

// ExportCSV renders the scaffold in store order (technique_id, family).
// Store ordering plus the atomic artifact write makes two exports of the
// same state byte-identical.
func ExportCSV(ctx context.Context, st *store.Store) ([]byte, error) {
	cells, err := st.ListCells(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write(ScaffoldHeader)
	for _, c := range cells {
		w.Write([]string{
			c.TechniqueID,
			c.Family,
			string(c.Status),
			c.RawEvidenceRef,
			c.ParsedEvidenceRef,
			c.VerifiedAt,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV exports the scaffold to path atomically.
func WriteCSV(ctx context.Context, st *store.Store, path string) error {
	data, err := ExportCSV(ctx, st)
	if err != nil {
		return err
	}
	return artifact.WriteFile(path, data)
}
