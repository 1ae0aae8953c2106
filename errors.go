package filestorage

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrNotAllowed is wrapped by PolicyError when a filter rejects a file.
	ErrNotAllowed = errors.New("file not allowed")
	// ErrExtensionNotAllowed is wrapped by PolicyError when a file's
	// extension is outside the configured allow-list.
	ErrExtensionNotAllowed = errors.New("file extension not allowed")
	// ErrSyncNotAllowed is returned from the blocking entry points of a
	// handler configured with allow_sync_methods = false.
	ErrSyncNotAllowed = errors.New("blocking methods not allowed")
	// ErrNotSupported is returned when a backend lacks an optional
	// capability such as size or modification-time reporting.
	ErrNotSupported = errors.New("operation not supported")
	// ErrNoData is returned when a save is attempted with no content.
	ErrNoData = errors.New("no file data")
)

// ConfigError reports a problem with store configuration: a bad settings
// key, an unknown handler or filter name, an illegal state transition on a
// container, or a validation failure at finalize time.
type ConfigError struct {
	// Address is the dotted address of the offending node, e.g.
	// "store['media']" or "store.handler.filters[1]".
	Address string
	// Key is the offending settings key, when one is known.
	Key string
	// Msg describes what went wrong.
	Msg string
	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	s := e.Msg
	if e.Address != "" {
		s = fmt.Sprintf("%s: %s", e.Address, s)
	}
	if e.Key != "" {
		s = fmt.Sprintf("%s (key %q)", s, e.Key)
	}
	if e.Err != nil {
		s = fmt.Sprintf("%s: %v", s, e.Err)
	}
	return s
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErrorf(address, format string, args ...any) *ConfigError {
	return &ConfigError{Address: address, Msg: fmt.Sprintf(format, args...)}
}

// PolicyError reports that a filter rejected a file's name or content.
// It is distinct from ConfigError so callers can present it to end users
// rather than treating it as a deployment problem.
type PolicyError struct {
	Filename string
	Err      error
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

// Unwrap returns the underlying error.
func (e *PolicyError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether an error indicates a configuration problem.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsPolicyError reports whether an error indicates a file was rejected by
// a filter.
func IsPolicyError(err error) bool {
	var pe *PolicyError
	return errors.As(err, &pe)
}

// IsNotAllowed reports whether an error indicates a file was refused
// outright, by name, extension or pattern.
func IsNotAllowed(err error) bool {
	return errors.Is(err, ErrNotAllowed) || errors.Is(err, ErrExtensionNotAllowed)
}
