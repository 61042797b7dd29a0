package domain

import "errors"

// Request-level failures. Stores and services wrap these so handlers can map
// them with errors.Is. Structural problems in a graph are never errors; they
// are reported as data on UBOResult and ValidationResult.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
