// Package apperr defines the closed set of failures the vault engine reports.
package apperr

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidPath  = errors.New("invalid path")
	ErrInvalidQuery = errors.New("invalid query")
	ErrConflict     = errors.New("conflict")
	ErrUpstream     = errors.New("upstream failure")
)
