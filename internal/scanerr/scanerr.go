// Package scanerr defines the engine's error kinds (spec §7). Only
// ValidationError and an invariant violation ever propagate to the
// scan caller; every other kind is recovered locally and recorded as a
// ComponentError on the result.
package scanerr

import "fmt"

// Kind distinguishes the error categories from spec §7.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindReachability   Kind = "reachability"
	KindExternalSource Kind = "external_source"
	KindModel          Kind = "model"
	KindCircuitOpen    Kind = "circuit_open"
	KindCache          Kind = "cache"
	KindPersistence    Kind = "persistence"
	KindInvariant      Kind = "invariant"
)

// Error is the engine's typed error, wrapping an underlying cause.
type Error struct {
	Kind   Kind
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Cause }

// Fatal reports whether an error of this kind is allowed to propagate
// to the scan caller instead of being absorbed locally.
func (e *Error) Fatal() bool {
	return e.Kind == KindValidation || e.Kind == KindInvariant
}

func New(kind Kind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Cause: cause}
}

func Validation(reason string) *Error { return New(KindValidation, reason, nil) }

func Reachability(reason string, cause error) *Error {
	return New(KindReachability, reason, cause)
}

func ExternalSource(reason string, cause error) *Error {
	return New(KindExternalSource, reason, cause)
}

func Model(reason string, cause error) *Error { return New(KindModel, reason, cause) }

func CircuitOpen(source string) *Error {
	return New(KindCircuitOpen, fmt.Sprintf("circuit open for %s", source), nil)
}

func Cache(reason string, cause error) *Error { return New(KindCache, reason, cause) }

func Persistence(reason string, cause error) *Error {
	return New(KindPersistence, reason, cause)
}

func Invariant(reason string) *Error { return New(KindInvariant, reason, nil) }
