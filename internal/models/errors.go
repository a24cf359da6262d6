package models

import "errors"

var (
	// ErrMalformedInput marks a request that is missing a required field or cannot be parsed
	ErrMalformedInput = errors.New("malformed input")

	// ErrBackendUnavailable marks a failed call to the search index or event store
	ErrBackendUnavailable = errors.New("backend unavailable")
)
