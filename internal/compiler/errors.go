package compiler

import "errors"

var (
	// ErrSyntax is returned when a sheet cannot be parsed.
	ErrSyntax = errors.New("syntax error")

	// ErrDerive is returned when a derive specifier of the compiled sheet
	// cannot be resolved.
	ErrDerive = errors.New("cannot resolve derive")
)
