package scaffold

import (
	"context"
	"fmt"

	"github.com/arminjalali/soc-usecase-factory/internal/store"
	"github.com/arminjalali/soc-usecase-factory/internal/taxonomy"
)

// SeedResult summarizes one seeding pass.
type SeedResult struct {
	CellsTotal     int `json:"cells_total"`
	CellsInserted  int `json:"cells_inserted"`
	CellsPreserved int `json:"cells_preserved"`
	// OrphanTechniques lists stored techniques absent from the current
	// master. Their cells are preserved, not dropped: a taxonomy refresh
	// must never silently discard verification evidence.
	OrphanTechniques []string `json:"orphan_techniques,omitempty"`
}

// Seed ensures a cell exists for every technique x family pair. Existing
// cells keep their status, so re-running the seeder is idempotent and never
// erases prior verification.
//
// A stored family that no longer appears in the inventory is a stale
// reference: Seed fails with a SEED_CONFLICT ConflictError before writing
// anything.
func Seed(ctx context.Context, st *store.Store, master *taxonomy.Master, families []string) (*SeedResult, error) {
	if len(families) == 0 {
		return nil, fmt.Errorf("inventory has no log-source families")
	}

	current := map[string]bool{}
	for _, f := range families {
		current[f] = true
	}

	// Stale-family check runs before the write transaction.
	stored, err := st.ListFamilies(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range stored {
		if !current[f] {
			n, err := st.FamilyCellCount(ctx, f)
			if err != nil {
				return nil, err
			}
			return nil, NewSeedConflictError(f, n)
		}
	}

	known := map[string]bool{}
	for _, t := range master.Techniques {
		known[t.ID] = true
	}
	var orphans []string
	seenOrphan := map[string]bool{}
	cells, err := st.ListCells(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range cells {
		if !known[c.TechniqueID] && !seenOrphan[c.TechniqueID] {
			seenOrphan[c.TechniqueID] = true
			orphans = append(orphans, c.TechniqueID)
		}
	}

	tx, err := st.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	result := &SeedResult{OrphanTechniques: orphans}
	for _, t := range master.Techniques {
		for _, f := range families {
			inserted, err := tx.SeedCell(ctx, t.ID, f)
			if err != nil {
				return nil, err
			}
			result.CellsTotal++
			if inserted {
				result.CellsInserted++
			} else {
				result.CellsPreserved++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit seed: %w", err)
	}
	return result, nil
}
