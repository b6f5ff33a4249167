package store

import "fmt"

// Status is the lifecycle state of a mapping cell.
//
// A cell's status only moves forward (seeded -> verified), never back.
// "Unseeded" is the absence of a cell, not a stored status. The store's
// write boundary enforces the forward-only rule; callers cannot regress a
// cell even by replaying old inputs.
type Status string

const (
	StatusSeeded   Status = "seeded"
	StatusVerified Status = "verified"
)

// Rank orders statuses for the upgrade-only guard. Higher rank wins.
func (s Status) Rank() int {
	switch s {
	case StatusSeeded:
		return 1
	case StatusVerified:
		return 2
	}
	return 0
}

// ParseStatus parses a stored status string.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusSeeded, StatusVerified:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown mapping cell status %q", s)
}

// Cell is one technique/family intersection in the scaffold.
type Cell struct {
	TechniqueID       string
	Family            string
	Status            Status
	RawEvidenceRef    string
	ParsedEvidenceRef string
	VerifiedAt        string // RFC 3339 UTC, empty until verified
}
