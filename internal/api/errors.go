package api

import (
	"errors"
	"fmt"
)

// Kind classifies an API failure for the caller's error handling policy.
type Kind string

const (
	// KindNetwork means the request never produced a response. The caller may
	// retry manually; the client never retries on its own.
	KindNetwork Kind = "network"
	// KindUnauthorized means the server rejected the credential (401).
	KindUnauthorized Kind = "unauthorized"
	// KindValidation means the server (or a local precondition check) rejected
	// the request as invalid. Detail carries a human-readable reason.
	KindValidation Kind = "validation"
	// KindServer means the server faulted (5xx). Detail is not trusted.
	KindServer Kind = "server"
)

// Error is the failure type for every API call and for locally detected
// precondition violations, so callers render both the same way.
type Error struct {
	Kind   Kind
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("api: %s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("api: %s (status %d): %s", e.Kind, e.Status, e.Detail)
}

// NewValidationError builds a local validation failure. Status stays zero so
// it is distinguishable from a server-issued 4xx when that matters.
func NewValidationError(detail string) *Error {
	return &Error{Kind: KindValidation, Detail: detail}
}

func isKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool { return isKind(err, KindNetwork) }

// IsUnauthorized reports whether err is a credential rejection.
func IsUnauthorized(err error) bool { return isKind(err, KindUnauthorized) }

// IsValidation reports whether err is a validation failure, local or remote.
func IsValidation(err error) bool { return isKind(err, KindValidation) }

// IsServer reports whether err is a server fault.
func IsServer(err error) bool { return isKind(err, KindServer) }

// Detail returns the human-readable reason carried by err, or the fallback
// when err is not an API error or carries none.
func Detail(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}
