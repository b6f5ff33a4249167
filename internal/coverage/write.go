package coverage

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/arminjalali/soc-usecase-factory/internal/artifact"
)

// Coverage artifact filenames under the generated dir.
const (
	MatrixFile       = "coverage_matrix.csv"
	ByTechniqueFile  = "coverage_by_technique.csv"
	NavigatorDirName = "navigator"
	OverallLayerFile = "coverage_overall.layer.json"
)

// WriteArtifacts writes the coverage matrix, per-technique detail and
// Navigator layers under genDir. Layer JSON is canonical; everything is
// written atomically.
func (r *Report) WriteArtifacts(genDir string) error {
	if err := artifact.WriteFile(filepath.Join(genDir, MatrixFile), r.matrixCSV()); err != nil {
		return err
	}
	if err := artifact.WriteFile(filepath.Join(genDir, ByTechniqueFile), r.byTechniqueCSV()); err != nil {
		return err
	}

	navDir := filepath.Join(genDir, NavigatorDirName)
	overall, err := artifact.MarshalIndent(r.OverallLayer())
	if err != nil {
		return fmt.Errorf("marshal overall layer: %w", err)
	}
	if err := artifact.WriteFile(filepath.Join(navDir, OverallLayerFile), overall); err != nil {
		return err
	}

	for _, family := range r.VerifiedFamilies() {
		layer, err := artifact.MarshalIndent(r.FamilyLayer(family))
		if err != nil {
			return fmt.Errorf("marshal %s layer: %w", family, err)
		}
		name := fmt.Sprintf("coverage_%s.layer.json", sanitizeFamily(family))
		if err := artifact.WriteFile(filepath.Join(navDir, name), layer); err != nil {
			return err
		}
	}
	return nil
}

func (r *Report) matrixCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"tactic", "total_techniques", "verified_count", "seeded_only_count", "gap_count"})
	for _, row := range r.Rows {
		writeRow(w, row)
	}
	writeRow(w, r.Overall)
	w.Flush()
	return buf.Bytes()
}

func writeRow(w *csv.Writer, row Row) {
	w.Write([]string{
		row.Tactic,
		strconv.Itoa(row.Total),
		strconv.Itoa(row.Verified),
		strconv.Itoa(row.SeededOnly),
		strconv.Itoa(row.Gaps),
	})
}

func (r *Report) byTechniqueCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"technique_id", "technique_name", "tactic", "verified", "verified_families", "seeded_families"})
	for _, tc := range r.Techniques {
		w.Write([]string{
			tc.TechniqueID,
			tc.Name,
			tc.Tactic,
			strconv.FormatBool(tc.Verified),
			strings.Join(tc.VerifiedFamilies, ","),
			strings.Join(tc.SeededFamilies, ","),
		})
	}
	w.Flush()
	return buf.Bytes()
}

// sanitizeFamily makes a family name filesystem-safe for layer filenames.
func sanitizeFamily(family string) string {
	var b strings.Builder
	for _, r := range family {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
