package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/roulendz/timebank/internal/logger"
)

// Kind classifies ledger failures
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: a referenced user, activity or deposit is absent. Nothing was written.
	KindNotFound
	// KindInvalidTransition: the operation is not allowed in the current state. Nothing was written.
	KindInvalidTransition
	// KindPersistence: the storage write or read failed. The in-memory effect was kept.
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalidTransition:
		return "invalid transition"
	case KindPersistence:
		return "persistence failure"
	default:
		return "unknown"
	}
}

var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrInvalidTransition  = &Error{Kind: KindInvalidTransition}
	ErrPersistenceFailure = &Error{Kind: KindPersistence}
	// ErrCanceled is returned when the user declines a confirmation
	ErrCanceled = stderrors.New("canceled by user")
)

// Error is a classified ledger error
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// for every not-found error regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

// NotFound builds a not-found error.
func NotFound(op, format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// InvalidTransition builds an invalid-transition error.
func InvalidTransition(op, format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidTransition, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Persistence wraps a storage failure.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindPersistence, Op: op, Msg: "failed to persist state", Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsPersistence reports whether err is a persistence failure.
func IsPersistence(err error) bool {
	return stderrors.Is(err, ErrPersistenceFailure)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// FormatWarning formats a non-fatal notice with a "Warning: " prefix
func FormatWarning(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Warning: %v", err)
}

// Warn prints a non-fatal notice to stderr and logs it
func Warn(err error) {
	if err != nil {
		logger.Warn("Operation completed with warning", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", FormatWarning(err))
	}
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
