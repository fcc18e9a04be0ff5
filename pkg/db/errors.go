package db

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")

	errFailedOpenDB      = errors.New("failed to open database")
	errFailedToEnableWAL = errors.New("failed to enable WAL mode")
	errFailedToInit      = errors.New("failed to initialize schema")
	errFailedToQuery     = errors.New("failed to query")
	errFailedToScan      = errors.New("failed to scan row")
	errFailedToInsert    = errors.New("failed to insert")
	errFailedToUpdate    = errors.New("failed to update")
	errFailedToDelete    = errors.New("failed to delete")
	errFailedToTrim      = errors.New("failed to trim samples")
)
