package domain

import "errors"

// Sentinel errors the auth engine wraps with %w. Handlers discriminate
// with errors.Is to pick a status code without seeing infrastructure errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)
