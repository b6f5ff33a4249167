package taxonomy

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadMaster reads the generated technique master and tactic order back
// from genDir. Later stages consume the generated artifacts, not the raw
// bundle, so taxonomy parsing happens exactly once per run sequence.
func LoadMaster(genDir string) (*Master, error) {
	tactics, err := loadTacticOrder(filepath.Join(genDir, TacticOrderFile))
	if err != nil {
		return nil, err
	}
	techniques, err := loadTechniques(filepath.Join(genDir, MasterFile))
	if err != nil {
		return nil, err
	}
	return &Master{Techniques: techniques, Tactics: tactics}, nil
}

func loadTacticOrder(path string) ([]Tactic, error) {
	records, err := readCSV(path, []string{"tactic_id", "tactic_name", "order"})
	if err != nil {
		return nil, err
	}
	var tactics []Tactic
	for i, rec := range records {
		order, err := strconv.Atoi(rec[2])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: bad order %q", path, i+2, rec[2])
		}
		tactics = append(tactics, Tactic{ID: rec[0], Name: rec[1], Order: order})
	}
	return tactics, nil
}

func loadTechniques(path string) ([]Technique, error) {
	records, err := readCSV(path, masterHeader)
	if err != nil {
		return nil, err
	}
	var techniques []Technique
	for _, rec := range records {
		techniques = append(techniques, Technique{
			ID:             rec[0],
			Name:           rec[1],
			IsSubtechnique: rec[2] == "true",
			ParentID:       rec[3],
			Tactic:         rec[4],
			Tactics:        splitList(rec[5]),
			Platforms:      splitList(rec[6]),
		})
	}
	return techniques, nil
}

func readCSV(path string, wantHeader []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: file is empty", path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}
	if len(header) != len(wantHeader) {
		return nil, fmt.Errorf("%s: header mismatch: got %v, want %v", path, header, wantHeader)
	}
	for i := range header {
		if header[i] != wantHeader[i] {
			return nil, fmt.Errorf("%s: header mismatch: got %v, want %v", path, header, wantHeader)
		}
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
