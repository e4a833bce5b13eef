package budget

import "errors"

// Input-validation errors. Always surfaced to the caller with enough
// detail to fix the input, never silently defaulted.
var (
	ErrUnknownPool   = errors.New("unknown pool")
	ErrInvalidDate   = errors.New("invalid date")
	ErrFileNotFound  = errors.New("file not found")
	ErrCacheMiss     = errors.New("cache miss")
	ErrEmptyCacheKey = errors.New("cache key is required")
)
