// Package payerr defines the closed error taxonomy shared by the
// gateway adapters and their callers. Every failure that crosses a
// package boundary is one of these kinds so callers can branch on the
// kind instead of string-matching provider messages.
package payerr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	// KindConfiguration: credentials missing or malformed. The gateway
	// refuses all operations without a network call.
	KindConfiguration Kind = "configuration"
	// KindValidation: the central validator denied or could not
	// authorize the charge, or the request itself is unusable.
	KindValidation Kind = "validation"
	// KindTransient: connection failure, timeout or 5xx. Retryable.
	KindTransient Kind = "transient"
	// KindProvider: 4xx with a business message (invalid document,
	// card declined). Never retried.
	KindProvider Kind = "provider"
	// KindRateLimited: local synthetic rejection, no network call made.
	KindRateLimited Kind = "rate_limited"
)

type Error struct {
	Kind    Kind
	Message string
	// Raw carries the provider's response body when one exists.
	Raw []byte
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from any error in the chain, or "" when the
// error did not originate here.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool { return KindOf(err) == kind }
