package store

import "errors"

// Sentinel errors for identifiers that fail to resolve inside a workflow
// transaction. The API layer maps these to 404 responses.
var (
	ErrItemNotFound    = errors.New("item not found")
	ErrRequestNotFound = errors.New("request not found")
)

// ErrRequestImmutable is returned when a status change targets a request
// that has already been completed.
var ErrRequestImmutable = errors.New("request is completed and cannot change status")
