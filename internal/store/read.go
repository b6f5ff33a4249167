package store

import (
	"context"
	"fmt"
)

// scanner abstracts sql.Row / sql.Rows for scanCell.
type scanner interface {
	Scan(dest ...any) error
}

func scanCell(s scanner) (Cell, error) {
	var cell Cell
	var status string
	if err := s.Scan(
		&cell.TechniqueID,
		&cell.Family,
		&status,
		&cell.RawEvidenceRef,
		&cell.ParsedEvidenceRef,
		&cell.VerifiedAt,
	); err != nil {
		return Cell{}, err
	}
	parsed, err := ParseStatus(status)
	if err != nil {
		return Cell{}, err
	}
	cell.Status = parsed
	return cell, nil
}

// ListCells returns every cell with deterministic ordering:
// ORDER BY technique_id ASC, family ASC, COLLATE BINARY.
//
// Returns an empty slice (not nil) if the scaffold is empty.
func (s *Store) ListCells(ctx context.Context) ([]Cell, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT technique_id, family, status, raw_evidence_ref, parsed_evidence_ref, verified_at
		FROM mapping_cells
		ORDER BY technique_id COLLATE BINARY ASC, family COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query cells: %w", err)
	}
	defer rows.Close()

	cells := []Cell{}
	for rows.Next() {
		cell, err := scanCell(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		cells = append(cells, cell)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cells: %w", err)
	}
	return cells, nil
}

// ListFamilies returns the distinct families present in the scaffold,
// sorted ascending.
func (s *Store) ListFamilies(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT family FROM mapping_cells
		ORDER BY family COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query families: %w", err)
	}
	defer rows.Close()

	families := []string{}
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		families = append(families, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate families: %w", err)
	}
	return families, nil
}

// FamilyCellCount returns the number of cells stored for a family.
func (s *Store) FamilyCellCount(ctx context.Context, family string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM mapping_cells WHERE family = ?`, family,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count family cells: %w", err)
	}
	return n, nil
}
