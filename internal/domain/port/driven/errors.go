package driven

import "errors"

// Sentinel errors shared across the driven ports. Adapters wrap these with
// fmt.Errorf("...: %w", ...) context; callers classify with errors.Is.
// Plain transport failures carry no sentinel and propagate wrapped as-is.
var (
	// ErrRequestFormat indicates the request URL could not be constructed.
	ErrRequestFormat = errors.New("request format invalid")

	// ErrNotFound indicates the remote resource does not exist (404).
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the request was rejected as unauthorized (401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrCancelled indicates the request was explicitly aborted, typically
	// because a newer operation superseded it. Never surfaced to users.
	ErrCancelled = errors.New("cancelled")

	// ErrResponseFormat indicates a page body could not be decoded.
	ErrResponseFormat = errors.New("response format invalid")

	// ErrMalformedRecord indicates a fetched record is missing its integer
	// identifier or cannot be decoded at all.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrStorageFailure indicates a durability error in the persisted store.
	ErrStorageFailure = errors.New("storage failure")
)
