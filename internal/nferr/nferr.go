// Package nferr defines the error kinds surfaced by the simulated network
// functions. Each kind maps to a distinct externally observable HTTP status,
// so the SBI layer can translate a failure without inspecting message text.
//
// Errors created here are compatible with the standard errors package:
// errors.As extracts *Error, and Unwrap exposes a wrapped cause (used for
// store failures).
package nferr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure of an NF operation.
type Kind int

const (
	// KindUnknown is the zero value and never returned by the components
	// themselves; it classifies errors that did not originate from nferr.
	KindUnknown Kind = iota

	// KindNotFound means a referenced entity (UE, session, policy) is absent.
	KindNotFound

	// KindAuth means the authentication step did not report success.
	KindAuth

	// KindNoSliceAvailable means no configured slice matches and none exists
	// to fall back to.
	KindNoSliceAvailable

	// KindUENotRegistered means session establishment was attempted before
	// the UE completed registration.
	KindUENotRegistered

	// KindValidation means a required field was missing from a request.
	KindValidation

	// KindStoreUnavailable wraps a document-store failure. It is surfaced as
	// a fatal request failure and never retried internally.
	KindStoreUnavailable
)

// String implements fmt.Stringer for logging purposes.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindAuth:
		return "AUTH_FAILURE"
	case KindNoSliceAvailable:
		return "NO_SLICE_AVAILABLE"
	case KindUENotRegistered:
		return "UE_NOT_REGISTERED"
	case KindValidation:
		return "VALIDATION_FAILURE"
	case KindStoreUnavailable:
		return "STORE_UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}

// Error carries the kind, a human-readable message and an optional cause.
type Error struct {
	Kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// NotFound reports an absent entity.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, msg: fmt.Sprintf(format, args...)}
}

// Auth reports a failed authentication step.
func Auth(format string, args ...any) error {
	return &Error{Kind: KindAuth, msg: fmt.Sprintf(format, args...)}
}

// NoSliceAvailable reports that slice selection found nothing to return.
func NoSliceAvailable(format string, args ...any) error {
	return &Error{Kind: KindNoSliceAvailable, msg: fmt.Sprintf(format, args...)}
}

// UENotRegistered reports a session attempt for an unregistered UE.
func UENotRegistered(format string, args ...any) error {
	return &Error{Kind: KindUENotRegistered, msg: fmt.Sprintf(format, args...)}
}

// Validation reports a malformed or incomplete request payload.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, msg: fmt.Sprintf(format, args...)}
}

// StoreUnavailable wraps a store-level failure. It returns nil if cause is
// nil so callers can wrap unconditionally.
func StoreUnavailable(cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: KindStoreUnavailable, msg: fmt.Sprintf(format, args...), cause: cause}
}

// KindOf classifies an arbitrary error. Errors not created by this package
// are reported as KindUnknown.
func KindOf(err error) Kind {
	var nfError *Error
	if errors.As(err, &nfError) {
		return nfError.Kind
	}
	return KindUnknown
}

// HTTPStatus maps an error to the externally observable status code used by
// the SBI layer.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound, KindNoSliceAvailable:
		return http.StatusNotFound
	case KindAuth:
		return http.StatusUnauthorized
	case KindUENotRegistered, KindValidation:
		return http.StatusBadRequest
	case KindStoreUnavailable:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
