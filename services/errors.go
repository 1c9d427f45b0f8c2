package services

import (
	"errors"
)

// Sentinel errors shared by the services. Handlers map these to user-facing
// messages; anything not matching one of them is treated as a storage failure
// (logged, surfaced as a generic failure, never retried).
var (
	// ErrBadFormat means free-text input does not match the expected shape.
	// Recoverable: the same step is re-prompted.
	ErrBadFormat = errors.New("input does not match the expected format")

	// ErrNotAllowed means the allow-list rejected a registration attempt.
	ErrNotAllowed = errors.New("identity is not on the allow-list")

	// ErrDuplicate means the record already exists (re-registration,
	// duplicate event sign-up). The existing state is the desired state.
	ErrDuplicate = errors.New("record already exists")

	// ErrNotFound means a referenced user/group/event/application is absent.
	ErrNotFound = errors.New("record not found")
)
