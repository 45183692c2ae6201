// Package wpkgerr defines the error kinds shared across this module's
// packages, independent of any one package's naming convention.
//
// Grounded on the teacher's own fmt.Errorf("...: %w", err) wrapping
// idiom (used throughout deb/, apt/, manifest/), generalized into a
// single Kind-tagged error type so that callers across package
// boundaries can errors.As into one common shape instead of each
// package inventing its own sentinel.
package wpkgerr

import "fmt"

// Kind classifies the failure independent of which package raised it.
type Kind int

const (
	// InvalidParameter: a caller-supplied string failed a syntactic check.
	InvalidParameter Kind = iota
	// InvalidField: a field-file structural error.
	InvalidField
	// InvalidArchive: an archive-codec structural error.
	InvalidArchive
	// InvalidVersion: a version string was rejected.
	InvalidVersion
	// Undefined: a named entity (field, variable, package) is not present.
	Undefined
	// Cyclic: a transformation or dependency cycle was detected.
	Cyclic
	// Compatibility: an encoding or format is unsupported on this platform.
	Compatibility
	// IoError: a filesystem, network, or subprocess failure.
	IoError
	// Locked: another transaction holds the admin lock.
	Locked
	// Stop: a cooperative cancellation request.
	Stop
)

func (k Kind) String() string {
	switch k {
	case InvalidParameter:
		return "InvalidParameter"
	case InvalidField:
		return "InvalidField"
	case InvalidArchive:
		return "InvalidArchive"
	case InvalidVersion:
		return "InvalidVersion"
	case Undefined:
		return "Undefined"
	case Cyclic:
		return "Cyclic"
	case Compatibility:
		return "Compatibility"
	case IoError:
		return "IoError"
	case Locked:
		return "Locked"
	case Stop:
		return "Stop"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying cause with a Kind and a contextual message.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers
// can do errors.Is(err, wpkgerr.New(wpkgerr.Locked, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New builds an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}
