// Package storeerr defines the typed errors shared by storage backends.
// Both the SQLite and Postgres backends translate their native
// constraint and business-rule failures into these sentinels so the
// service layer can map them to user-facing messages with errors.Is.
package storeerr

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicatePlanting indicates the bed already has an active
	// planting of the same crop variety
	ErrDuplicatePlanting = errors.New("bed already has an active planting of this crop")

	// ErrBedCapacity indicates the bed cannot hold the requested
	// quantity on top of its active plantings
	ErrBedCapacity = errors.New("bed capacity exceeded")

	// ErrInvalidTransition indicates the planting is not in a stage
	// that allows the requested lifecycle operation
	ErrInvalidTransition = errors.New("invalid stage transition")

	// ErrBedOccupied indicates a bed cannot be deleted while it holds
	// active plantings
	ErrBedOccupied = errors.New("bed has active plantings")

	// ErrWrongLocationKind indicates a nursery operation referenced a
	// location that is not a nursery
	ErrWrongLocationKind = errors.New("location is not a nursery")
)
