package training

import "errors"

var (
	// ErrBackendUnavailable marks connectivity/auth failures against the
	// persistence backend. Callers must not confuse it with an empty scope.
	ErrBackendUnavailable = errors.New("persistence backend unavailable")

	// ErrNotFound is returned when a record id does not exist in the live
	// model. Removal paths treat it as non-fatal.
	ErrNotFound = errors.New("training record not found")

	// ErrMalformedRecord marks a record with no content.
	ErrMalformedRecord = errors.New("training record has no content")

	// ErrConfirmationRequired guards destructive administrative actions.
	ErrConfirmationRequired = errors.New("destructive operation requires explicit confirmation")
)
