package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arminjalali/soc-usecase-factory/internal/coverage"
	"github.com/arminjalali/soc-usecase-factory/internal/taxonomy"
	"github.com/arminjalali/soc-usecase-factory/internal/testutil"
)

const testDevicesCSV = `source_id,vendor,product,family,log_transport,log_format,index,sourcetype,enabled,owner_group,siem_proven,sample_raw,sample_parsed,mitre_techniques,notes
SRC-001,Microsoft,Windows,windows-security,wef,xml,wineventlog,WinEventLog:Security,true,secops,true,samples/raw_win.log,samples/parsed_win.json,T1059,
SRC-002,Squid,Proxy,proxy,syslog,kv,proxy,squid:access,true,netops,false,,,,
`

const testRecordsCSV = `technique_id,family,raw_sample_ref,parsed_sample_ref,timestamp
T1059,windows-security,samples/raw_win.log,samples/parsed_win.json,2026-01-02T03:04:05Z
`

// testBundleJSON is a minimal enterprise bundle: execution before
// exfiltration in the matrix, three root techniques and one sub-technique.
const testBundleJSON = `{
  "type": "bundle",
  "id": "bundle--test",
  "spec_version": "2.1",
  "objects": [
    {
      "type": "x-mitre-matrix",
      "id": "x-mitre-matrix--ent",
      "name": "Enterprise ATT&CK",
      "tactic_refs": ["x-mitre-tactic--exec", "x-mitre-tactic--exfil"]
    },
    {"type": "x-mitre-tactic", "id": "x-mitre-tactic--exec", "name": "Execution", "x_mitre_shortname": "execution"},
    {"type": "x-mitre-tactic", "id": "x-mitre-tactic--exfil", "name": "Exfiltration", "x_mitre_shortname": "exfiltration"},
    {
      "type": "attack-pattern",
      "id": "attack-pattern--t1059",
      "name": "Command and Scripting Interpreter",
      "external_references": [{"source_name": "mitre-attack", "external_id": "T1059"}],
      "kill_chain_phases": [{"kill_chain_name": "mitre-attack", "phase_name": "execution"}]
    },
    {
      "type": "attack-pattern",
      "id": "attack-pattern--t1059-001",
      "name": "PowerShell",
      "external_references": [{"source_name": "mitre-attack", "external_id": "T1059.001"}]
    },
    {
      "type": "attack-pattern",
      "id": "attack-pattern--t1047",
      "name": "Windows Management Instrumentation",
      "external_references": [{"source_name": "mitre-attack", "external_id": "T1047"}],
      "kill_chain_phases": [{"kill_chain_name": "mitre-attack", "phase_name": "execution"}]
    },
    {
      "type": "attack-pattern",
      "id": "attack-pattern--t1041",
      "name": "Exfiltration Over C2 Channel",
      "external_references": [{"source_name": "mitre-attack", "external_id": "T1041"}],
      "kill_chain_phases": [{"kill_chain_name": "mitre-attack", "phase_name": "exfiltration"}]
    }
  ]
}`

// setupWorkspace lays out a conventional workspace in a temp dir and chdirs
// into it so the default config paths resolve.
func setupWorkspace(t *testing.T, withRecords bool) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, filepath.Join("inventory", "devices.csv"), testDevicesCSV)
	testutil.WriteFile(t, dir, filepath.Join("mappings", "raw", "enterprise-attack.json"), testBundleJSON)
	if withRecords {
		testutil.WriteFile(t, dir, filepath.Join("mappings", "verification_records.csv"), testRecordsCSV)
	}
	testutil.Chdir(t, dir)
	return dir
}

func TestPipeline_RunEndToEnd(t *testing.T) {
	dir := setupWorkspace(t, true)

	out, _, err := execRoot(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "pipeline complete")

	genDir := filepath.Join(dir, "mappings", "generated")
	for _, name := range []string{
		taxonomy.MasterFile,
		taxonomy.TechniquesFile,
		taxonomy.TacticOrderFile,
		taxonomy.MetadataFile,
		"mapping_scaffold.csv",
		coverage.MatrixFile,
		coverage.ByTechniqueFile,
		filepath.Join(coverage.NavigatorDirName, coverage.OverallLayerFile),
	} {
		assert.FileExists(t, filepath.Join(genDir, name), name)
	}

	// 4 techniques x 2 families; T1059/windows-security verified.
	matrix := testutil.ReadFile(t, filepath.Join(genDir, coverage.MatrixFile))
	assert.Equal(t,
		"tactic,total_techniques,verified_count,seeded_only_count,gap_count\n"+
			"execution,3,1,2,0\n"+
			"exfiltration,1,0,1,0\n"+
			"TOTAL,4,1,3,0\n",
		matrix)

	scaffoldCSV := testutil.ReadFile(t, filepath.Join(genDir, "mapping_scaffold.csv"))
	assert.Contains(t, scaffoldCSV, "T1059,windows-security,verified,samples/raw_win.log,samples/parsed_win.json,2026-01-02T03:04:05Z")
}

func TestPipeline_RunSkipsMergeWithoutRecords(t *testing.T) {
	setupWorkspace(t, false)

	out, _, err := execRoot(t, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "merge skipped")

	// Everything stays seeded.
	scaffoldCSV := testutil.ReadFile(t, filepath.Join("mappings", "generated", "mapping_scaffold.csv"))
	assert.NotContains(t, scaffoldCSV, "verified")
}

func TestPipeline_RunJSONEnvelope(t *testing.T) {
	setupWorkspace(t, true)

	out, _, err := execRoot(t, "--format", "json", "run")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result RunResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Stages, 5)
	assert.Equal(t, "validate", result.Stages[0].Stage)
	assert.Equal(t, "coverage", result.Stages[4].Stage)
}

func TestPipeline_ReseedIsByteIdentical(t *testing.T) {
	setupWorkspace(t, true)

	_, _, err := execRoot(t, "run")
	require.NoError(t, err)
	scaffoldPath := filepath.Join("mappings", "generated", "mapping_scaffold.csv")
	first := testutil.ReadFile(t, scaffoldPath)

	_, _, err = execRoot(t, "seed")
	require.NoError(t, err)
	second := testutil.ReadFile(t, scaffoldPath)
	assert.Equal(t, first, second, "re-seed must reproduce the scaffold byte for byte")
}

func TestPipeline_ConflictingMergeLeavesScaffoldUnchanged(t *testing.T) {
	dir := setupWorkspace(t, true)

	_, _, err := execRoot(t, "run")
	require.NoError(t, err)
	scaffoldPath := filepath.Join(dir, "mappings", "generated", "mapping_scaffold.csv")
	before := testutil.ReadFile(t, scaffoldPath)

	// Same cell, different evidence refs.
	testutil.WriteFile(t, dir, filepath.Join("mappings", "verification_records.csv"),
		"technique_id,family,raw_sample_ref,parsed_sample_ref,timestamp\n"+
			"T1059,windows-security,samples/other.log,samples/parsed_win.json,2026-01-03T00:00:00Z\n")

	out, _, err := execRoot(t, "merge")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "EVIDENCE_CONFLICT")

	after := testutil.ReadFile(t, scaffoldPath)
	assert.Equal(t, before, after)
}

func TestPipeline_UnmappedRecordFails(t *testing.T) {
	dir := setupWorkspace(t, false)

	_, _, err := execRoot(t, "run")
	require.NoError(t, err)

	// T1566 is not in the bundle, so it has no cells.
	testutil.WriteFile(t, dir, filepath.Join("mappings", "verification_records.csv"),
		"technique_id,family,raw_sample_ref,parsed_sample_ref,timestamp\n"+
			"T1566,windows-security,samples/a.log,samples/b.json,2026-01-02T03:04:05Z\n")

	out, _, err := execRoot(t, "merge")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "UNMAPPED_EVIDENCE")
}

func TestPipeline_ValidationFailureStopsRun(t *testing.T) {
	dir := setupWorkspace(t, false)
	// Duplicate source id.
	testutil.WriteFile(t, dir, filepath.Join("inventory", "devices.csv"),
		"source_id,vendor,product,family,log_transport,log_format,index,sourcetype,enabled,owner_group,siem_proven,sample_raw,sample_parsed,mitre_techniques,notes\n"+
			"SRC-001,Microsoft,Windows,windows-security,wef,xml,main,WinEventLog:Security,true,secops,false,,,,\n"+
			"SRC-001,Squid,Proxy,proxy,syslog,kv,net,squid:access,true,netops,false,,,,\n")

	out, _, err := execRoot(t, "run")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "V001")
	assert.NoFileExists(t, filepath.Join(dir, "mappings", "generated", taxonomy.MasterFile),
		"later stages must not run after a validation failure")
}

func TestPipeline_MissingColumnIsValidationFailure(t *testing.T) {
	dir := setupWorkspace(t, false)
	testutil.WriteFile(t, dir, filepath.Join("inventory", "devices.csv"),
		"source_id,vendor\nSRC-001,Microsoft\n")

	out, _, err := execRoot(t, "validate")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err),
		"an incomplete header is an inventory defect, not a read failure")
	assert.Contains(t, out, "V004")
	assert.Contains(t, out, "sourcetype")
	assert.Contains(t, out, "inventory validation failed")
}

func TestPipeline_MissingBundleIsCommandFailure(t *testing.T) {
	dir := setupWorkspace(t, false)
	require.NoError(t, os.Remove(filepath.Join(dir, "mappings", "raw", "enterprise-attack.json")))

	_, _, err := execRoot(t, "taxonomy")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPipeline_MalformedBundleIsDataFailure(t *testing.T) {
	dir := setupWorkspace(t, false)
	// No matrix object: the canonical tactic order is unavailable.
	testutil.WriteFile(t, dir, filepath.Join("mappings", "raw", "enterprise-attack.json"),
		`{"type":"bundle","id":"bundle--x","spec_version":"2.1","objects":[]}`)

	out, _, err := execRoot(t, "taxonomy")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "TAXONOMY_FORMAT")
}

func TestPipeline_SchemasCommand(t *testing.T) {
	dir := setupWorkspace(t, false)

	_, _, err := execRoot(t, "schemas")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "inventory", "schemas", "windows-security", "wineventlog_security.yaml"))
	assert.FileExists(t, filepath.Join(dir, "inventory", "schemas", "proxy", "squid_access.yaml"))
}

func TestPipeline_SeedBeforeTaxonomyFails(t *testing.T) {
	setupWorkspace(t, false)

	out, _, err := execRoot(t, "seed")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "run taxonomy first")
}
