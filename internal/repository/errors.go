// Package repository implements the persistence layer: thin structs over
// *sql.DB issuing explicit queries. The sentinel errors below are the only
// failure vocabulary exposed upward; handlers translate them to HTTP
// statuses and no raw driver error ever reaches a client.
package repository

import "errors"

// ErrNotFound is returned when a row does not exist. The service layer also
// uses it to mask sessions that exist but are not owned by the caller, so
// non-owners cannot probe for existence.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an operation violates current state, such as
// writing clinical content to a completed session.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when registering a user with an email that is
// already taken.
var ErrEmailExists = errors.New("email already exists")

// ErrValidation is returned for malformed input or dangling foreign keys,
// such as creating a session for a client that does not exist.
var ErrValidation = errors.New("validation failed")

// ErrForbidden is returned when the caller is authenticated but their role
// or ownership disallows the operation.
var ErrForbidden = errors.New("forbidden")
