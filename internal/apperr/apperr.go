// Package apperr classifies errors by effect rather than by origin type, per
// the error taxonomy of spec.md §7: transient/permanent RPC, stage timeout,
// stage incomplete, validation, data, and fatal-worker. Classification lets
// the adapter retry loop and the HTTP layer branch with errors.As instead of
// string matching.
package apperr

import (
	"github.com/pkg/errors"
)

// Kind names one taxonomy bucket.
type Kind string

const (
	KindTransientRPC    Kind = "transient_rpc"
	KindPermanentRPC    Kind = "permanent_rpc"
	KindStageTimeout    Kind = "stage_timeout"
	KindStageIncomplete Kind = "stage_incomplete"
	KindValidation      Kind = "validation"
	KindData            Kind = "data"
	KindFatalWorker     Kind = "fatal_worker"
)

// Error is a classified, wrapped error.
type Error struct {
	Kind  Kind
	Field string // set for KindValidation
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// New wraps cause with the given kind. A nil cause yields an error whose
// message is just the kind, useful for sentinel-style comparisons.
func New(kind Kind, cause error, msgAndArgs ...string) *Error {
	if len(msgAndArgs) > 0 {
		cause = errors.Wrap(cause, msgAndArgs[0])
	}
	return &Error{Kind: kind, cause: cause}
}

// Validation builds a KindValidation error naming the offending field.
func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, cause: errors.New(msg)}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsRetryable reports whether the error should be retried by the adapter's
// backoff loop (spec.md §4.1: transient faults retry, permanent faults
// fail immediately).
func IsRetryable(err error) bool {
	return Is(err, KindTransientRPC)
}

// KindOf returns err's Kind, or the empty Kind if err is not a classified
// *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
