package store

import "errors"

// Failure taxonomy surfaced to callers. Lookup misses and bad input are
// typed, never silently defaulted. Unreadable photo resources are not here:
// the renderer recovers those inline so one bad image never voids a report.
var (
	// ErrNotFound reports a lookup miss (report, component, user).
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials reports an authentication miss. Unknown user
	// and wrong password are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrValidation reports missing or malformed required fields before a
	// write.
	ErrValidation = errors.New("missing required fields")

	// ErrIntegrity reports a constraint violation on insert, such as a
	// duplicate step number racing past the find step.
	ErrIntegrity = errors.New("constraint violation")
)
