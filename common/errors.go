package common

import "errors"

// Error kinds surfaced by the report job. Every stage wraps its failures with one
// of these so callers can classify them with errors.Is.
var (
	// ErrArgumentFormat is returned for malformed command line or config values.
	ErrArgumentFormat = errors.New("invalid argument format")

	// ErrAuthentication is returned when credentials cannot be loaded, refreshed,
	// obtained through the consent flow or persisted.
	ErrAuthentication = errors.New("authentication failure")

	// ErrRemoteQuery is returned for any error surfaced by the analytics API call.
	ErrRemoteQuery = errors.New("remote query failure")

	// ErrSchemaMismatch is returned when the analytics response does not have the expected shape.
	ErrSchemaMismatch = errors.New("report schema mismatch")

	// ErrIO is returned when the local report file cannot be written.
	ErrIO = errors.New("local file failure")

	// ErrUpload is returned when the report file cannot be transferred to object storage.
	ErrUpload = errors.New("upload failure")
)
