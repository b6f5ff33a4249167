package taxonomy

import (
	"errors"
	"fmt"
)

// FormatError indicates the taxonomy bundle cannot be resolved into a
// technique master: structural schema violations, techniques with no
// resolvable tactic, or a bundle without a matrix ordering.
type FormatError struct {
	// Message describes what could not be resolved.
	Message string

	// Subject names the offending object (technique id, object id), when known.
	Subject string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("taxonomy format: %s (%s)", e.Message, e.Subject)
	}
	return fmt.Sprintf("taxonomy format: %s", e.Message)
}

// IsFormatError reports whether err is a taxonomy FormatError.
// Uses errors.As to handle wrapped errors.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
