package scaffold

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arminjalali/soc-usecase-factory/internal/store"
	"github.com/arminjalali/soc-usecase-factory/internal/taxonomy"
)

func testMaster() *taxonomy.Master {
	return &taxonomy.Master{
		Techniques: []taxonomy.Technique{
			{ID: "T1041", Name: "Exfiltration Over C2 Channel", Tactic: "exfiltration", Tactics: []string{"exfiltration"}},
			{ID: "T1047", Name: "Windows Management Instrumentation", Tactic: "execution", Tactics: []string{"execution"}},
			{ID: "T1059", Name: "Command and Scripting Interpreter", Tactic: "execution", Tactics: []string{"execution"}},
		},
		Tactics: []taxonomy.Tactic{
			{ID: "execution", Name: "Execution", Order: 0},
			{ID: "exfiltration", Name: "Exfiltration", Order: 1},
		},
	}
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "scaffold.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

var testFamilies = []string{"proxy", "windows-security"}

func TestSeed_FreshScaffold(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	result, err := Seed(ctx, st, testMaster(), testFamilies)
	require.NoError(t, err)
	assert.Equal(t, 6, result.CellsTotal)
	assert.Equal(t, 6, result.CellsInserted)
	assert.Zero(t, result.CellsPreserved)
	assert.Empty(t, result.OrphanTechniques)
}

func TestSeed_Idempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := Seed(ctx, st, testMaster(), testFamilies)
	require.NoError(t, err)
	first, err := ExportCSV(ctx, st)
	require.NoError(t, err)

	result, err := Seed(ctx, st, testMaster(), testFamilies)
	require.NoError(t, err)
	assert.Zero(t, result.CellsInserted)
	assert.Equal(t, 6, result.CellsPreserved)

	second, err := ExportCSV(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second), "re-seed must leave the export byte-identical")
}

func TestSeed_PreservesVerifiedCells(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := Seed(ctx, st, testMaster(), testFamilies)
	require.NoError(t, err)
	verifyOne(t, st, "T1059", "windows-security")

	before, err := ExportCSV(ctx, st)
	require.NoError(t, err)

	_, err = Seed(ctx, st, testMaster(), testFamilies)
	require.NoError(t, err)

	after, err := ExportCSV(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestSeed_StaleFamilyIsSeedConflict(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := Seed(ctx, st, testMaster(), testFamilies)
	require.NoError(t, err)

	// The proxy source disappeared from the inventory; its cells remain.
	_, err = Seed(ctx, st, testMaster(), []string{"windows-security"})
	require.Error(t, err)
	assert.True(t, IsSeedConflict(err))
	assert.Contains(t, err.Error(), "proxy")

	// Nothing was written and nothing was dropped.
	cells, listErr := st.ListCells(ctx)
	require.NoError(t, listErr)
	assert.Len(t, cells, 6)
}

func TestSeed_NewFamilyExtendsScaffold(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := Seed(ctx, st, testMaster(), testFamilies)
	require.NoError(t, err)

	result, err := Seed(ctx, st, testMaster(), []string{"cloud", "proxy", "windows-security"})
	require.NoError(t, err)
	assert.Equal(t, 9, result.CellsTotal)
	assert.Equal(t, 3, result.CellsInserted)
	assert.Equal(t, 6, result.CellsPreserved)
}

func TestSeed_OrphanTechniquesFlaggedAndPreserved(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := Seed(ctx, st, testMaster(), testFamilies)
	require.NoError(t, err)

	// A refreshed taxonomy dropped T1041.
	trimmed := testMaster()
	trimmed.Techniques = trimmed.Techniques[1:]

	result, err := Seed(ctx, st, trimmed, testFamilies)
	require.NoError(t, err)
	assert.Equal(t, []string{"T1041"}, result.OrphanTechniques)

	cells, err := st.ListCells(ctx)
	require.NoError(t, err)
	assert.Len(t, cells, 6, "orphan cells stay in the scaffold")
}

func TestSeed_NoFamilies(t *testing.T) {
	st := openTestStore(t)
	_, err := Seed(context.Background(), st, testMaster(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no log-source families")
}

func TestExportCSV_Golden(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, err := Seed(ctx, st, testMaster(), testFamilies)
	require.NoError(t, err)
	verifyOne(t, st, "T1059", "windows-security")

	data, err := ExportCSV(ctx, st)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "scaffold_export", data)
}

func verifyOne(t *testing.T, st *store.Store, techniqueID, family string) {
	t.Helper()
	_, err := Merge(context.Background(), st, []VerificationRecord{{
		TechniqueID:     techniqueID,
		Family:          family,
		RawSampleRef:    "raw://a",
		ParsedSampleRef: "parsed://b",
		Timestamp:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}})
	require.NoError(t, err)
}
