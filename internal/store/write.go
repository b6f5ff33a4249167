package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Tx groups scaffold mutations so a stage either commits its full effect or
// leaves the database untouched.
type Tx struct {
	tx *sql.Tx
}

// Begin starts a write transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin scaffold tx: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction. No-op if already committed.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err == sql.ErrTxDone {
		return nil
	}
	return err
}

// SeedCell inserts a seeded cell if absent and reports whether a row was
// inserted. Existing cells are left untouched regardless of status, so a
// re-seed never erases prior verification (idempotent re-seed).
func (t *Tx) SeedCell(ctx context.Context, techniqueID, family string) (inserted bool, err error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO mapping_cells (technique_id, family, status, status_rank)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(technique_id, family) DO NOTHING
	`, techniqueID, family, string(StatusSeeded), StatusSeeded.Rank())
	if err != nil {
		return false, fmt.Errorf("seed cell: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("seed cell: rows affected: %w", err)
	}
	return n > 0, nil
}

// GetCell returns the cell for a technique/family pair, if present.
func (t *Tx) GetCell(ctx context.Context, techniqueID, family string) (Cell, bool, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT technique_id, family, status, raw_evidence_ref, parsed_evidence_ref, verified_at
		FROM mapping_cells
		WHERE technique_id = ? AND family = ?
	`, techniqueID, family)

	cell, err := scanCell(row)
	if err == sql.ErrNoRows {
		return Cell{}, false, nil
	}
	if err != nil {
		return Cell{}, false, fmt.Errorf("get cell: %w", err)
	}
	return cell, true, nil
}

// VerifyCell upgrades a cell to verified and records its evidence refs.
// The WHERE guard only matches cells below verified rank: a replayed
// upgrade or any attempted regression affects zero rows and returns
// upgraded=false. The cell must exist; callers check that first.
func (t *Tx) VerifyCell(ctx context.Context, techniqueID, family, rawRef, parsedRef, verifiedAt string) (upgraded bool, err error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE mapping_cells
		SET status = ?, status_rank = ?,
		    raw_evidence_ref = ?, parsed_evidence_ref = ?, verified_at = ?
		WHERE technique_id = ? AND family = ? AND status_rank < ?
	`,
		string(StatusVerified), StatusVerified.Rank(),
		rawRef, parsedRef, verifiedAt,
		techniqueID, family, StatusVerified.Rank(),
	)
	if err != nil {
		return false, fmt.Errorf("verify cell: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("verify cell: rows affected: %w", err)
	}
	return n > 0, nil
}
