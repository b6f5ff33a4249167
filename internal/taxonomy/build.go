package taxonomy

import (
	"sort"
	"strings"
)

// Technique is one flattened taxonomy technique node.
type Technique struct {
	ID             string
	Name           string
	IsSubtechnique bool
	ParentID       string
	// Tactic is the primary tactic: the technique's first tactic in
	// canonical matrix order. Coverage roll-ups count each technique once,
	// under this tactic.
	Tactic string
	// Tactics lists every tactic the technique appears under, in canonical
	// matrix order.
	Tactics   []string
	Platforms []string
}

// Tactic is one taxonomy tactic with its canonical position.
type Tactic struct {
	ID    string // shortname, e.g. "execution"
	Name  string
	Order int
}

// Master is the flattened taxonomy: techniques in deterministic order plus
// the canonical tactic ordering.
type Master struct {
	Techniques []Technique
	Tactics    []Tactic
	Version    string
	Objects    int
}

// TacticOrder maps tactic shortname to canonical position.
func (m *Master) TacticOrder() map[string]int {
	order := make(map[string]int, len(m.Tactics))
	for _, t := range m.Tactics {
		order[t.ID] = t.Order
	}
	return order
}

// TechniqueByID maps technique id to technique.
func (m *Master) TechniqueByID() map[string]Technique {
	byID := make(map[string]Technique, len(m.Techniques))
	for _, t := range m.Techniques {
		byID[t.ID] = t
	}
	return byID
}

// Build flattens a raw STIX 2.1 bundle into a Master.
//
// Revoked and deprecated objects are skipped. Tactic ordering comes from
// the bundle's matrix object (tactic_refs), which carries the published
// execution-flow order; a bundle without one is a FormatError rather than
// a silent alphabetical fallback. A technique whose tactics cannot be
// resolved, directly or through its parent, is a FormatError.
func Build(data []byte) (*Master, error) {
	bundle, err := decodeBundle(data)
	if err != nil {
		return nil, err
	}

	// Tactic objects, keyed by STIX id for matrix ref resolution.
	type tacticDef struct {
		shortname string
		name      string
	}
	tacticsByRef := map[string]tacticDef{}
	for _, o := range bundle.Objects {
		if o.Type != "x-mitre-tactic" || o.Revoked || o.XMitreDeprecated {
			continue
		}
		shortname := o.XMitreShortname
		if shortname == "" {
			shortname = strings.ToLower(strings.ReplaceAll(o.Name, " ", "-"))
		}
		tacticsByRef[o.ID] = tacticDef{shortname: shortname, name: o.Name}
	}

	// Canonical order from the matrix tactic_refs.
	var matrixRefs []string
	for _, o := range bundle.Objects {
		if o.Type == "x-mitre-matrix" && !o.Revoked && !o.XMitreDeprecated {
			matrixRefs = o.TacticRefs
			break
		}
	}
	if len(matrixRefs) == 0 {
		return nil, &FormatError{Message: "bundle has no matrix object; canonical tactic order unavailable"}
	}

	var tactics []Tactic
	for _, ref := range matrixRefs {
		def, ok := tacticsByRef[ref]
		if !ok {
			return nil, &FormatError{Message: "matrix references unknown tactic", Subject: ref}
		}
		tactics = append(tactics, Tactic{ID: def.shortname, Name: def.name, Order: len(tactics)})
	}
	tacticRank := map[string]int{}
	for _, t := range tactics {
		tacticRank[t.ID] = t.Order
	}

	// Techniques and sub-techniques.
	tacticsOf := map[string][]string{}
	var techniques []Technique
	for _, o := range bundle.Objects {
		if o.Type != "attack-pattern" || o.Revoked || o.XMitreDeprecated {
			continue
		}
		id := o.externalID("mitre-attack")
		if id == "" || !strings.HasPrefix(id, "T") {
			continue
		}

		var parentID string
		isSub := false
		if dot := strings.Index(id, "."); dot >= 0 {
			parentID = id[:dot]
			isSub = true
		}

		var phases []string
		for _, p := range o.KillChainPhases {
			if p.KillChainName == "mitre-attack" && p.PhaseName != "" {
				phases = append(phases, p.PhaseName)
			}
		}

		platforms := append([]string(nil), o.XMitrePlatforms...)
		sort.Strings(platforms)

		tacticsOf[id] = phases
		techniques = append(techniques, Technique{
			ID:             id,
			Name:           o.Name,
			IsSubtechnique: isSub,
			ParentID:       parentID,
			Platforms:      platforms,
		})
	}

	// Resolve tactics, inheriting from the parent for bare sub-techniques.
	for i := range techniques {
		t := &techniques[i]
		phases := tacticsOf[t.ID]
		if len(phases) == 0 && t.ParentID != "" {
			phases = tacticsOf[t.ParentID]
		}
		if len(phases) == 0 {
			return nil, &FormatError{Message: "technique has no resolvable tactic", Subject: t.ID}
		}
		for _, phase := range phases {
			if _, known := tacticRank[phase]; !known {
				return nil, &FormatError{Message: "technique references tactic outside the matrix", Subject: t.ID + "/" + phase}
			}
		}
		ordered := append([]string(nil), phases...)
		sort.Slice(ordered, func(a, b int) bool {
			return tacticRank[ordered[a]] < tacticRank[ordered[b]]
		})
		t.Tactics = dedupe(ordered)
		t.Tactic = t.Tactics[0]
	}

	// Deterministic output order: parent-major technique id ascending,
	// so T1059 sorts before T1059.001 before T1060.
	sort.Slice(techniques, func(i, j int) bool {
		bi, bj := baseID(techniques[i].ID), baseID(techniques[j].ID)
		if bi != bj {
			return bi < bj
		}
		return techniques[i].ID < techniques[j].ID
	})

	version := bundle.SpecVersion
	if version == "" {
		version = "unknown"
	}

	return &Master{
		Techniques: techniques,
		Tactics:    tactics,
		Version:    version,
		Objects:    len(bundle.Objects),
	}, nil
}

func baseID(id string) string {
	if dot := strings.Index(id, "."); dot >= 0 {
		return id[:dot]
	}
	return id
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for _, s := range sorted {
		if len(out) == 0 || out[len(out)-1] != s {
			out = append(out, s)
		}
	}
	return out
}
