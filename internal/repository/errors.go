package repository

import "errors"

// ErrNotFound indicates an entity was not located.
var ErrNotFound = errors.New("repository: not found")

// ErrConflict indicates a unique constraint rejected a write. This is the
// authoritative uniqueness signal; service-level pre-checks only narrow the
// error message.
var ErrConflict = errors.New("repository: unique constraint violation")

// ErrInvalidArgument indicates the caller passed unusable input.
var ErrInvalidArgument = errors.New("repository: invalid argument")
