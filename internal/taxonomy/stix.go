// Package taxonomy flattens a STIX 2.1 ATT&CK bundle into the technique
// master and the canonical tactic ordering used by the rest of the pipeline.
// The bundle is treated as an external, read-only dataset.
package taxonomy

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var bundleSchema string

// stixBundle is the decoded subset of a STIX 2.1 bundle this pipeline reads.
type stixBundle struct {
	Type        string       `json:"type"`
	ID          string       `json:"id"`
	SpecVersion string       `json:"spec_version"`
	Objects     []stixObject `json:"objects"`
}

type stixObject struct {
	Type               string              `json:"type"`
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Revoked            bool                `json:"revoked"`
	ExternalReferences []externalReference `json:"external_references"`
	KillChainPhases    []killChainPhase    `json:"kill_chain_phases"`
	XMitreShortname    string              `json:"x_mitre_shortname"`
	XMitreDeprecated   bool                `json:"x_mitre_deprecated"`
	XMitrePlatforms    []string            `json:"x_mitre_platforms"`
	XMitreVersion      string              `json:"x_mitre_version"`
	TacticRefs         []string            `json:"tactic_refs"`
}

type externalReference struct {
	SourceName string `json:"source_name"`
	ExternalID string `json:"external_id"`
}

type killChainPhase struct {
	KillChainName string `json:"kill_chain_name"`
	PhaseName     string `json:"phase_name"`
}

// externalID returns the external id for a source name ("mitre-attack"),
// or "" if absent.
func (o stixObject) externalID(sourceName string) string {
	for _, ref := range o.ExternalReferences {
		if ref.SourceName == sourceName && ref.ExternalID != "" {
			return ref.ExternalID
		}
	}
	return ""
}

// decodeBundle validates the raw bundle against the embedded JSON Schema
// and decodes it. Schema violations are FormatErrors so the operator sees
// a taxonomy problem, not a Go decoding stack.
func decodeBundle(data []byte) (*stixBundle, error) {
	schemaLoader := gojsonschema.NewStringLoader(bundleSchema)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, &FormatError{Message: fmt.Sprintf("bundle is not valid JSON: %v", err)}
	}
	if !result.Valid() {
		var details []string
		for i, desc := range result.Errors() {
			if i >= 5 {
				details = append(details, "...")
				break
			}
			details = append(details, desc.String())
		}
		return nil, &FormatError{
			Message: "bundle violates STIX schema: " + strings.Join(details, "; "),
		}
	}

	var bundle stixBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, &FormatError{Message: fmt.Sprintf("decode bundle: %v", err)}
	}
	return &bundle, nil
}
