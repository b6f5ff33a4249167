package scaffold

import (
	"context"
	"fmt"
	"time"

	"github.com/arminjalali/soc-usecase-factory/internal/store"
)

// MergeResult summarizes one verification merge.
type MergeResult struct {
	Records    int `json:"records"`
	Upgraded   int `json:"upgraded"`
	Idempotent int `json:"idempotent"`
}

// Merge applies verification records to the scaffold in a single
// transaction. Any conflict rolls the whole merge back, so a failed merge
// leaves the scaffold exactly as it was.
//
// Per record:
//   - no cell for (technique, family): UNMAPPED_EVIDENCE
//   - cell seeded: upgraded to verified with the record's evidence refs
//   - cell verified with matching refs: accepted idempotently
//   - cell verified with different refs: EVIDENCE_CONFLICT
func Merge(ctx context.Context, st *store.Store, records []VerificationRecord) (*MergeResult, error) {
	tx, err := st.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result := &MergeResult{Records: len(records)}
	for _, rec := range records {
		cell, found, err := tx.GetCell(ctx, rec.TechniqueID, rec.Family)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, NewUnmappedEvidenceError(rec.TechniqueID, rec.Family)
		}

		switch cell.Status {
		case store.StatusSeeded:
			upgraded, err := tx.VerifyCell(ctx,
				rec.TechniqueID, rec.Family,
				rec.RawSampleRef, rec.ParsedSampleRef,
				rec.Timestamp.UTC().Format(time.RFC3339),
			)
			if err != nil {
				return nil, err
			}
			if !upgraded {
				// The rank guard refused a write the status said was legal.
				return nil, fmt.Errorf("cell (%s, %s) refused upgrade", rec.TechniqueID, rec.Family)
			}
			result.Upgraded++

		case store.StatusVerified:
			if cell.RawEvidenceRef != rec.RawSampleRef {
				return nil, NewEvidenceConflictError(rec.TechniqueID, rec.Family,
					"raw evidence ref", cell.RawEvidenceRef, rec.RawSampleRef)
			}
			if cell.ParsedEvidenceRef != rec.ParsedSampleRef {
				return nil, NewEvidenceConflictError(rec.TechniqueID, rec.Family,
					"parsed evidence ref", cell.ParsedEvidenceRef, rec.ParsedSampleRef)
			}
			result.Idempotent++

		default:
			return nil, fmt.Errorf("cell (%s, %s) has unexpected status %q", rec.TechniqueID, rec.Family, cell.Status)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit merge: %w", err)
	}
	return result, nil
}
