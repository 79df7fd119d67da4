package farm

import (
	"errors"
	"fmt"

	"github.com/tilthlabs/tilth/internal/storage/storeerr"
)

// UserMessage translates storage errors into messages suitable for CLI
// output and API responses. Unrecognized errors pass through unchanged.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, storeerr.ErrNotFound):
		return "not found"
	case errors.Is(err, storeerr.ErrDuplicatePlanting):
		return "this crop already has an active planting in that bed"
	case errors.Is(err, storeerr.ErrBedCapacity):
		return "the bed does not have room for that many plants"
	case errors.Is(err, storeerr.ErrInvalidTransition):
		return "the planting's current stage does not allow that operation"
	case errors.Is(err, storeerr.ErrBedOccupied):
		return "the bed still holds active plantings"
	case errors.Is(err, storeerr.ErrWrongLocationKind):
		return "nursery sowings need a location of kind nursery"
	default:
		return err.Error()
	}
}

// IsUserError reports whether the error maps to a client mistake rather
// than a server fault. The HTTP layer uses this to pick status codes.
func IsUserError(err error) bool {
	return errors.Is(err, storeerr.ErrNotFound) ||
		errors.Is(err, storeerr.ErrDuplicatePlanting) ||
		errors.Is(err, storeerr.ErrBedCapacity) ||
		errors.Is(err, storeerr.ErrInvalidTransition) ||
		errors.Is(err, storeerr.ErrBedOccupied) ||
		errors.Is(err, storeerr.ErrWrongLocationKind)
}

// IsNotFound reports whether the error is a missing-record error
func IsNotFound(err error) bool {
	return errors.Is(err, storeerr.ErrNotFound)
}

// wrap adds operation context while preserving the sentinel chain
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
