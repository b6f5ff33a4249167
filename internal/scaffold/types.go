// Package scaffold maintains the technique/family mapping scaffold: the set
// of cells recording, for each ATT&CK technique and log-source family,
// whether telemetry coverage is merely hypothesized (seeded) or confirmed by
// an ingested sample pair (verified). Cell state lives in the store; this
// package owns the seeding and merging rules around it.
package scaffold

import "time"

// VerificationRecord is one proof-of-telemetry search result: evidence that
// a family emits events usable for a technique, backed by a raw and a parsed
// sample reference.
type VerificationRecord struct {
	TechniqueID     string
	Family          string
	RawSampleRef    string
	ParsedSampleRef string
	Timestamp       time.Time
}
