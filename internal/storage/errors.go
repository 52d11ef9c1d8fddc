package storage

import "errors"

var (
	// ErrAPIKeyNotFound is returned when no API key row matches the query.
	// Owner-scoped lookups return this both for missing rows and rows owned
	// by someone else, so callers cannot tell the two apart.
	ErrAPIKeyNotFound = errors.New("API key not found")

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateKey is returned when a credential string collides with an
	// existing row (unique constraint on api_keys.key)
	ErrDuplicateKey = errors.New("duplicate API key credential")

	// ErrLimitExceeded is returned by ConsumeUsage when the key exists but
	// its usage has reached the configured limit
	ErrLimitExceeded = errors.New("usage limit exceeded")
)
