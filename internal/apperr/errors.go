package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the CLI can pick a message and exit code.
type Kind int

const (
	// KindUnknown is used for errors that carry no classification.
	KindUnknown Kind = iota
	// KindConfiguration means the SAS URL or another setting is missing or invalid.
	KindConfiguration
	// KindValidation means a user-supplied argument was rejected before any I/O.
	KindValidation
	// KindNetwork covers transport failures and non-success HTTP statuses.
	KindNetwork
	// KindParse means a listing response could not be decoded.
	KindParse
	// KindStorage covers local filesystem failures while writing downloads.
	KindStorage
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindValidation:
		return "validation error"
	case KindNetwork:
		return "network error"
	case KindParse:
		return "parse error"
	case KindStorage:
		return "storage error"
	default:
		return "error"
	}
}

// ExitCode maps the kind to the process exit status.
func (k Kind) ExitCode() int {
	switch k {
	case KindConfiguration:
		return 2
	case KindValidation:
		return 3
	case KindNetwork:
		return 4
	case KindParse:
		return 5
	case KindStorage:
		return 6
	default:
		return 1
	}
}

// Error is a classified failure. Op names the operation that failed
// (e.g. "list blobs") and Err is the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a formatted cause.
func New(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err. It returns nil when err is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain,
// or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
