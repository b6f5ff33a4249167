package inventory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inventoryHeader = "source_id,vendor,product,family,log_transport,log_format,index,sourcetype,enabled,owner_group,siem_proven,sample_raw,sample_parsed,mitre_techniques,notes\n"

func loadInventory(t *testing.T, rows ...string) []LogSource {
	t.Helper()
	sources, err := Read(strings.NewReader(inventoryHeader + strings.Join(rows, "\n")))
	require.NoError(t, err)
	return sources
}

func findingCodes(findings []Finding) []string {
	codes := make([]string, len(findings))
	for i, f := range findings {
		codes[i] = f.Code
	}
	return codes
}

func TestValidate_CleanInventory(t *testing.T) {
	sources := loadInventory(t,
		"SRC-001,Microsoft,Windows,windows,wef,xml,wineventlog,WinEventLog:Security,true,secops,true,raw.log,parsed.json,T1059,",
		"SRC-002,Squid,Proxy,network,syslog,kv,proxy,squid:access,true,netops,false,,,,",
	)
	findings := Validate(sources, nil)
	assert.Empty(t, findings)
}

func TestValidate_DuplicateSourceID(t *testing.T) {
	sources := loadInventory(t,
		"SRC-001,Microsoft,Windows,windows,wef,xml,main,WinEventLog:Security,true,secops,false,,,,",
		"SRC-001,Cisco,ASA,network,syslog,kv,net,cisco:asa,true,netops,false,,,,",
	)
	findings := Validate(sources, nil)
	require.Len(t, findings, 1)
	assert.Equal(t, ErrDuplicateSourceID, findings[0].Code)
	assert.Equal(t, SeverityError, findings[0].Severity)
	assert.Equal(t, 3, findings[0].Line)
}

func TestValidate_EmptyRequiredFields(t *testing.T) {
	sources := loadInventory(t,
		",Microsoft,,windows,wef,xml,main,WinEventLog:Security,true,secops,false,,,,",
	)
	findings := Validate(sources, nil)
	codes := findingCodes(findings)
	assert.Contains(t, codes, ErrEmptyRequiredField)
	assert.Equal(t, 2, CountErrors(findings), "source_id and product are both empty")
}

func TestValidate_ProvenRequiresBothSamples(t *testing.T) {
	// Proven with only a raw sample: error. Proven with both: clean.
	sources := loadInventory(t,
		"SRC-001,Microsoft,Windows,windows,wef,xml,main,WinEventLog:Security,true,secops,true,raw.log,,,",
		"SRC-002,Microsoft,Windows,windows,wef,xml,main,XmlWinEventLog:Sysmon,true,secops,true,raw.log,parsed.json,,",
	)
	findings := Validate(sources, nil)
	require.Len(t, findings, 1)
	assert.Equal(t, ErrProvenWithoutSamples, findings[0].Code)
	assert.Equal(t, 2, findings[0].Line)
}

func TestValidate_SuccessIffProvenRowsHaveSamples(t *testing.T) {
	// The validator succeeds iff every proven row has both refs and no
	// source id repeats.
	clean := loadInventory(t,
		"SRC-001,Microsoft,Windows,windows,wef,xml,main,WinEventLog:Security,true,secops,true,raw.log,parsed.json,,",
	)
	assert.Zero(t, CountErrors(Validate(clean, nil)))

	broken := loadInventory(t,
		"SRC-001,Microsoft,Windows,windows,wef,xml,main,WinEventLog:Security,true,secops,true,,parsed.json,,",
	)
	assert.NotZero(t, CountErrors(Validate(broken, nil)))
}

func TestValidate_Warnings(t *testing.T) {
	sources := loadInventory(t,
		"SRC-001,Microsoft,Windows,windows,wef,xml,main,WinEventLog:Security,maybe,secops,false,,,T1059;T99,",
	)
	known := map[string]bool{"squid:access": true}
	findings := Validate(sources, known)

	codes := findingCodes(findings)
	assert.Contains(t, codes, WarnNonBooleanFlag, "enabled=maybe")
	assert.Contains(t, codes, WarnUnknownSourcetype)
	assert.Contains(t, codes, WarnBadTechniqueID, "T1059;T99 is not a valid id list entry")
	assert.Zero(t, CountErrors(findings), "warnings must not fail validation")
}

func TestValidate_ReportsAllFindings(t *testing.T) {
	sources := loadInventory(t,
		",Microsoft,,windows,wef,xml,,WinEventLog:Security,true,secops,false,,,,",
		"SRC-001,Cisco,ASA,network,syslog,kv,net,cisco:asa,true,netops,true,,,,",
	)
	findings := Validate(sources, nil)
	// 3 empty-field errors on row one, proven-without-samples on row two.
	assert.Equal(t, 4, CountErrors(findings))
}

func TestFamilies(t *testing.T) {
	sources := loadInventory(t,
		"SRC-001,Microsoft,Windows,windows-security,wef,xml,main,WinEventLog:Security,true,secops,false,,,,",
		"SRC-002,Squid,Proxy,proxy,syslog,kv,net,squid:access,true,netops,false,,,,",
		"SRC-003,Microsoft,Windows,windows-security,wef,xml,main,XmlWinEventLog:Sysmon,true,secops,false,,,,",
		// Blank family: classified from the sourcetype.
		"SRC-004,AWS,CloudTrail,,https,json,cloud,aws:cloudtrail,true,cloudops,false,,,,",
	)
	assert.Equal(t, []string{"cloud", "proxy", "windows-security"}, Families(sources))
}

func TestRead_MissingColumn(t *testing.T) {
	_, err := Read(strings.NewReader("source_id,vendor\nSRC-001,Microsoft\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column")
	assert.Contains(t, err.Error(), "sourcetype")

	var headerErr *HeaderError
	require.ErrorAs(t, err, &headerErr)
	assert.Contains(t, headerErr.Missing, "product")
	assert.Contains(t, headerErr.Missing, "sourcetype")

	findings := headerErr.Findings()
	require.Len(t, findings, len(headerErr.Missing))
	for _, f := range findings {
		assert.Equal(t, ErrMissingColumn, f.Code)
		assert.Equal(t, SeverityError, f.Severity)
		assert.Equal(t, 1, f.Line)
	}
}

func TestRead_ShortRowsPadded(t *testing.T) {
	sources, err := Read(strings.NewReader(inventoryHeader + "SRC-001,Microsoft\n"))
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "SRC-001", sources[0].SourceID)
	assert.Empty(t, sources[0].Sourcetype)
}
