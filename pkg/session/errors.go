package session

import "github.com/pkg/errors"

var (
	// ErrEnumeration means the device list could not be queried or parsed.
	ErrEnumeration = errors.New("device enumeration failed")

	// ErrSpawn means a watcher process could not be started for a device.
	ErrSpawn = errors.New("watcher spawn failed")

	// ErrQuery means a lock-state or display command failed.
	ErrQuery = errors.New("session query failed")
)

// kindError tags a wrapped error with one of the sentinel kinds above
// while keeping the underlying cause in the message.
type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string { return e.kind.Error() + ": " + e.cause.Error() }

func (e *kindError) Is(target error) bool { return target == e.kind }

func (e *kindError) Unwrap() error { return e.cause }

// Cause implements the pkg/errors causer interface.
func (e *kindError) Cause() error { return e.cause }

// Mark tags err with kind so errors.Is(err, kind) holds.
// A nil err stays nil.
func Mark(err error, kind error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: kind, cause: err}
}
