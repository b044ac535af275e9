// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios.  For
// example, ErrForbidden indicates that the current user is not authorized
// to perform an operation on a resource owned by someone else, while
// ErrNotFound signals that a referenced row does not exist.
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.  Handlers should
// translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers should translate this into an HTTP
// 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrEmailExists is returned when registering a user whose email address
// is already taken.  Handlers should translate this into an HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrIDExists is returned when an insert with an explicit primary key
// collides with an existing row.  Callers that generate random ids may
// retry on this error; anything else is a real failure.
var ErrIDExists = errors.New("id already exists")
