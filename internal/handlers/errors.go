package handlers

import "errors"

// Sentinel errors bubbled out of transaction closures so callers can
// map them to the right HTTP status.
var (
	errInvalidHourlyRate = errors.New("hourly rate must be non-negative")
	errVersionConflict   = errors.New("version conflict")
	errInvalidState      = errors.New("invalid state for this operation")
	errNotOwner          = errors.New("caller does not own this resource")
	errDuplicate         = errors.New("duplicate resource")
)
