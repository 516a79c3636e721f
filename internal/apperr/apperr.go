// Package apperr defines the error-kind taxonomy surfaced at the
// quadsparql API boundary (spec §7) and a single wrap point that
// every component uses to attach an operation and a kind to an
// underlying error.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error the way spec.md §7 enumerates them.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidIdentifier
	KindInvalidTerm
	KindUnknownSpace
	KindUnknownGraph
	KindParseError
	KindUnsupportedFeature
	KindTranslationError
	KindQueryTooComplex
	KindCancelled
	KindStorageError
	KindConstraintViolation
)

func (k Kind) String() string {
	switch k {
	case KindInvalidIdentifier:
		return "InvalidIdentifier"
	case KindInvalidTerm:
		return "InvalidTerm"
	case KindUnknownSpace:
		return "UnknownSpace"
	case KindUnknownGraph:
		return "UnknownGraph"
	case KindParseError:
		return "ParseError"
	case KindUnsupportedFeature:
		return "UnsupportedFeature"
	case KindTranslationError:
		return "TranslationError"
	case KindQueryTooComplex:
		return "QueryTooComplex"
	case KindCancelled:
		return "Cancelled"
	case KindStorageError:
		return "StorageError"
	case KindConstraintViolation:
		return "ConstraintViolation"
	default:
		return "Unknown"
	}
}

// Error is the single error type that crosses the core API boundary.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Op)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an *Error with no wrapped cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.New(message)}
}

// Wrap attaches op and kind to err. It returns nil if err is nil, so
// callers can write `return apperr.Wrap(...)` directly from a
// fallible call site.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}

	var existing *Error
	if errors.As(err, &existing) {
		return &Error{Kind: kind, Op: op + ": " + existing.Op, Err: existing.Err}
	}

	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind of err, or KindUnknown if err does not
// carry one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}

// Is reports whether err's Kind matches k.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}
