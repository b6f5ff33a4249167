// Package coverage rolls the mapping scaffold up into per-tactic coverage
// tables and ATT&CK Navigator layers.
package coverage

import (
	"fmt"
	"sort"

	"github.com/arminjalali/soc-usecase-factory/internal/store"
	"github.com/arminjalali/soc-usecase-factory/internal/taxonomy"
)

// Row is the aggregated result for one tactic.
// Invariant: Verified + SeededOnly + Gaps == Total.
type Row struct {
	Tactic     string `json:"tactic"`
	Total      int    `json:"total_techniques"`
	Verified   int    `json:"verified_count"`
	SeededOnly int    `json:"seeded_only_count"`
	Gaps       int    `json:"gap_count"`
}

// TechniqueCoverage is the per-technique detail behind a Row.
type TechniqueCoverage struct {
	TechniqueID      string
	Name             string
	Tactic           string
	Verified         bool
	VerifiedFamilies []string
	SeededFamilies   []string
}

// Report is the full roll-up: one Row per tactic in canonical matrix order,
// an overall totals row, and per-technique detail.
type Report struct {
	Rows       []Row
	Overall    Row
	Techniques []TechniqueCoverage
	// Gaps lists technique ids with no cells at all, in master order.
	Gaps []string
}

// Aggregate groups cells by each technique's primary tactic and counts
// statuses. A technique is verified if any family cell is verified,
// seeded-only if it has cells but none verified, and a gap if it has no
// cells. Each technique is counted exactly once, which is what makes the
// row identity hold.
func Aggregate(master *taxonomy.Master, cells []store.Cell) (*Report, error) {
	byTechnique := map[string][]store.Cell{}
	for _, c := range cells {
		byTechnique[c.TechniqueID] = append(byTechnique[c.TechniqueID], c)
	}

	rows := map[string]*Row{}
	for _, t := range master.Tactics {
		rows[t.ID] = &Row{Tactic: t.ID}
	}

	report := &Report{}
	for _, t := range master.Techniques {
		row, ok := rows[t.Tactic]
		if !ok {
			return nil, fmt.Errorf("technique %s has tactic %q outside the canonical order", t.ID, t.Tactic)
		}
		row.Total++
		report.Overall.Total++

		tc := TechniqueCoverage{TechniqueID: t.ID, Name: t.Name, Tactic: t.Tactic}
		for _, c := range byTechnique[t.ID] {
			switch c.Status {
			case store.StatusVerified:
				tc.VerifiedFamilies = append(tc.VerifiedFamilies, c.Family)
			case store.StatusSeeded:
				tc.SeededFamilies = append(tc.SeededFamilies, c.Family)
			}
		}
		sort.Strings(tc.VerifiedFamilies)
		sort.Strings(tc.SeededFamilies)
		tc.Verified = len(tc.VerifiedFamilies) > 0

		switch {
		case tc.Verified:
			row.Verified++
			report.Overall.Verified++
		case len(tc.SeededFamilies) > 0:
			row.SeededOnly++
			report.Overall.SeededOnly++
		default:
			row.Gaps++
			report.Overall.Gaps++
			report.Gaps = append(report.Gaps, t.ID)
		}
		report.Techniques = append(report.Techniques, tc)
	}

	// Canonical matrix order, not alphabetical.
	for _, t := range master.Tactics {
		report.Rows = append(report.Rows, *rows[t.ID])
	}
	report.Overall.Tactic = "TOTAL"
	return report, nil
}
