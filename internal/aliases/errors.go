package aliases

import "errors"

// Errors returned while locating and decoding alias configurations.
//
// These can be checked with errors.Is:
//
//	if errors.Is(err, aliases.ErrConfigNotFound) {
//	    // the --luaurc path given on the command line does not exist
//	}
var (
	// ErrConfigNotFound is returned when an explicitly requested
	// configuration path does not exist.
	ErrConfigNotFound = errors.New("alias configuration not found")

	// ErrInvalidConfig is returned when a configuration cannot be decoded.
	ErrInvalidConfig = errors.New("invalid alias configuration")

	// ErrMissingAliases is returned when a configuration decodes but has
	// no top-level "aliases" object.
	ErrMissingAliases = errors.New("alias configuration has no aliases")
)
