package db

import "errors"

// Domain error kinds. Handlers map these onto the HTTP boundary; none of
// them is fatal to the process.
var (
	// ErrNotFound indicates the referenced row does not exist or is soft-deleted.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates a visibility rule denies access. The API layer
	// presents it identically to ErrNotFound so existence is not leaked.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState indicates an operation against an object whose state
	// machine does not permit it (rating a resolved note, editing past the
	// edit window).
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidCursor indicates a malformed pagination token. Callers treat
	// it as "start from the beginning" rather than failing the request.
	ErrInvalidCursor = errors.New("invalid cursor")
)
