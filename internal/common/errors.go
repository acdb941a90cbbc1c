// Package common defines sentinel errors and small helpers shared by the
// token store, its repositories and the CLI. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")

	// Token store error kinds.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrStorage         = errors.New("storage error")
	ErrHash            = errors.New("hash error")

	// Connection identifier errors.
	ErrUnsupportedScheme = errors.New("unsupported connection scheme")
)
