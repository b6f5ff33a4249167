package taxonomy

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/arminjalali/soc-usecase-factory/internal/artifact"
)

// Generated artifact filenames under the generated dir.
const (
	MasterFile      = "attack_techniques_master.csv"
	TechniquesFile  = "lookups/mitre_techniques.csv"
	TacticOrderFile = "lookups/mitre_tactic_order.csv"
	MetadataFile    = "attack_metadata.json"
)

var masterHeader = []string{
	"technique_id", "technique_name", "is_subtechnique",
	"parent_technique_id", "tactic", "tactics_csv", "platforms_csv",
}

// WriteArtifacts writes the technique master, the lookup tables and the run
// metadata under genDir. All writes are atomic; the metadata JSON is
// canonical.
func (m *Master) WriteArtifacts(genDir, runID string, generatedAt time.Time) error {
	if err := artifact.WriteFile(filepath.Join(genDir, MasterFile), m.masterCSV()); err != nil {
		return err
	}
	if err := artifact.WriteFile(filepath.Join(genDir, TechniquesFile), m.techniquesCSV()); err != nil {
		return err
	}
	if err := artifact.WriteFile(filepath.Join(genDir, TacticOrderFile), m.tacticOrderCSV()); err != nil {
		return err
	}

	meta, err := artifact.MarshalIndent(map[string]any{
		"attack_version": m.Version,
		"objects":        m.Objects,
		"techniques":     len(m.Techniques),
		"tactics":        len(m.Tactics),
		"run_id":         runID,
		"generated_utc":  generatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	return artifact.WriteFile(filepath.Join(genDir, MetadataFile), meta)
}

func (m *Master) masterCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write(masterHeader)
	for _, t := range m.Techniques {
		w.Write([]string{
			t.ID,
			t.Name,
			strconv.FormatBool(t.IsSubtechnique),
			t.ParentID,
			t.Tactic,
			strings.Join(t.Tactics, ","),
			strings.Join(t.Platforms, ","),
		})
	}
	w.Flush()
	return buf.Bytes()
}

func (m *Master) techniquesCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"technique_id", "technique_name", "tactics"})
	for _, t := range m.Techniques {
		w.Write([]string{t.ID, t.Name, strings.Join(t.Tactics, ",")})
	}
	w.Flush()
	return buf.Bytes()
}

func (m *Master) tacticOrderCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{"tactic_id", "tactic_name", "order"})
	for _, t := range m.Tactics {
		w.Write([]string{t.ID, t.Name, strconv.Itoa(t.Order)})
	}
	w.Flush()
	return buf.Bytes()
}
