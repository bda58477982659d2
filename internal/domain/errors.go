// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrForbidden indicates the caller may not perform the action on this surface.
var ErrForbidden = errors.New("forbidden")

// ErrValidation indicates malformed input (request shape, arguments).
var ErrValidation = errors.New("validation failed")
