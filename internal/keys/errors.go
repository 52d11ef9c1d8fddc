package keys

import "errors"

var (
	// ErrNotFound is returned when the key does not exist or is owned by
	// someone else; the two cases are deliberately indistinguishable
	ErrNotFound = errors.New("API key not found")

	// ErrInvalidName is returned when the key name is missing
	ErrInvalidName = errors.New("name is required")

	// ErrInvalidEnvironment is returned for an unknown environment class
	ErrInvalidEnvironment = errors.New("type must be \"dev\" or \"prod\"")

	// ErrInvalidLimit is returned for a negative usage limit
	ErrInvalidLimit = errors.New("limit must be non-negative")

	// ErrInvalidKey is returned when an update supplies an empty credential
	ErrInvalidKey = errors.New("key is required")

	// ErrTransient is returned when credential generation collided twice in
	// a row, which should never happen outside a store malfunction
	ErrTransient = errors.New("could not issue a unique credential, try again")
)
