package scaffold

import (
	"errors"
	"fmt"
)

// ConflictError represents a fatal inconsistency detected while seeding or
// merging the scaffold. The invoking stage aborts without writing output.
type ConflictError struct {
	// Code identifies the error category.
	Code ConflictCode

	// Message is a human-readable description.
	Message string

	// TechniqueID identifies the affected technique, when cell-scoped.
	TechniqueID string

	// Family identifies the affected log-source family.
	Family string

	// Details contains additional context.
	Details map[string]string
}

// ConflictCode categorizes scaffold conflicts.
type ConflictCode string

const (
	// ErrCodeSeedConflict indicates the stored scaffold references a family
	// that no longer exists in the inventory.
	ErrCodeSeedConflict ConflictCode = "SEED_CONFLICT"

	// ErrCodeEvidenceConflict indicates a verification record contradicts
	// the evidence already recorded for a verified cell.
	ErrCodeEvidenceConflict ConflictCode = "EVIDENCE_CONFLICT"

	// ErrCodeUnmappedEvidence indicates a verification record references a
	// technique/family pair that was never seeded.
	ErrCodeUnmappedEvidence ConflictCode = "UNMAPPED_EVIDENCE"
)

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.TechniqueID != "" && e.Family != "" {
		return fmt.Sprintf("%s: %s (technique=%s, family=%s)", e.Code, e.Message, e.TechniqueID, e.Family)
	}
	if e.Family != "" {
		return fmt.Sprintf("%s: %s (family=%s)", e.Code, e.Message, e.Family)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsSeedConflict reports whether err is a stale-family seed conflict.
// Uses errors.As to handle wrapped errors.
func IsSeedConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.Code == ErrCodeSeedConflict
}

// IsEvidenceConflict reports whether err is a contradictory-evidence error.
func IsEvidenceConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.Code == ErrCodeEvidenceConflict
}

// IsUnmappedEvidence reports whether err is an unmapped-evidence error.
func IsUnmappedEvidence(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce) && ce.Code == ErrCodeUnmappedEvidence
}

// NewSeedConflictError creates a ConflictError for a scaffold family that is
// absent from the current inventory.
func NewSeedConflictError(family string, cells int) *ConflictError {
	return &ConflictError{
		Code:    ErrCodeSeedConflict,
		Message: "scaffold references family missing from inventory",
		Family:  family,
		Details: map[string]string{
			"cells": fmt.Sprintf("%d", cells),
		},
	}
}

// NewEvidenceConflictError creates a ConflictError for a record whose
// evidence references disagree with an already-verified cell.
func NewEvidenceConflictError(techniqueID, family, field, stored, incoming string) *ConflictError {
	return &ConflictError{
		Code:        ErrCodeEvidenceConflict,
		Message:     fmt.Sprintf("verified cell has conflicting %s", field),
		TechniqueID: techniqueID,
		Family:      family,
		Details: map[string]string{
			"stored":   stored,
			"incoming": incoming,
		},
	}
}

// NewUnmappedEvidenceError creates a ConflictError for evidence referencing
// a pair that was never seeded.
func NewUnmappedEvidenceError(techniqueID, family string) *ConflictError {
	return &ConflictError{
		Code:        ErrCodeUnmappedEvidence,
		Message:     "no seeded cell for evidence",
		TechniqueID: techniqueID,
		Family:      family,
	}
}
