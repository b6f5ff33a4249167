package coverage

import (
	"fmt"
	"sort"
	"strings"
)

// Navigator layer constants. The gradient colors match the layers the
// original curation workflow published, so regenerated layers diff cleanly
// against historical ones.
const (
	layerVersion = "4.5"
	layerDomain  = "enterprise-attack"
	gradientLow  = "#d9e8fb"
	gradientHigh = "#0a66ff"
)

// OverallLayer builds the Navigator layer for all verified coverage.
// Score is the number of families with verified telemetry for the
// technique; techniques with no verified families are omitted.
func (r *Report) OverallLayer() map[string]any {
	var techniques []map[string]any
	maxScore := 1
	for _, tc := range r.Techniques {
		if len(tc.VerifiedFamilies) == 0 {
			continue
		}
		if len(tc.VerifiedFamilies) > maxScore {
			maxScore = len(tc.VerifiedFamilies)
		}
		techniques = append(techniques, map[string]any{
			"techniqueID": tc.TechniqueID,
			"score":       len(tc.VerifiedFamilies),
			"comment":     strings.Join(tc.VerifiedFamilies, ", "),
		})
	}
	return layerDoc("Coverage - Overall", "Verified telemetry coverage", techniques, maxScore)
}

// FamilyLayer builds the Navigator layer for one family: score 1 for each
// technique verified through that family.
func (r *Report) FamilyLayer(family string) map[string]any {
	var techniques []map[string]any
	for _, tc := range r.Techniques {
		for _, f := range tc.VerifiedFamilies {
			if f == family {
				techniques = append(techniques, map[string]any{
					"techniqueID": tc.TechniqueID,
					"score":       1,
					"comment":     family,
				})
				break
			}
		}
	}
	return layerDoc(
		fmt.Sprintf("Coverage - %s", family),
		fmt.Sprintf("Verified telemetry coverage for %s", family),
		techniques, 1,
	)
}

// VerifiedFamilies returns the distinct families with at least one verified
// cell, in sorted order.
func (r *Report) VerifiedFamilies() []string {
	seen := map[string]bool{}
	var families []string
	for _, tc := range r.Techniques {
		for _, f := range tc.VerifiedFamilies {
			if !seen[f] {
				seen[f] = true
				families = append(families, f)
			}
		}
	}
	sort.Strings(families)
	return families
}

func layerDoc(name, description string, techniques []map[string]any, maxScore int) map[string]any {
	if techniques == nil {
		techniques = []map[string]any{}
	}
	return map[string]any{
		"version":     layerVersion,
		"name":        name,
		"domain":      layerDomain,
		"description": description,
		"techniques":  techniques,
		"gradient": map[string]any{
			"colors":   []string{gradientLow, gradientHigh},
			"minValue": 0,
			"maxValue": maxScore,
		},
	}
}
