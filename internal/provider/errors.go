package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotInitialized is returned when a completion is requested before the
// backend has been set up. Recoverable by retrying after Init.
var ErrNotInitialized = errors.New("backend not initialized")

// ErrorKind classifies a transport failure. Transient kinds are retried with
// backoff; the rest surface immediately.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota

	// Transient: retried with backoff.
	KindThrottled
	KindTimeout
	KindOverloaded
	KindInternal
	KindModelNotReady

	// Non-transient: surfaced immediately.
	KindAccessDenied
	KindValidation
	KindNotFound
	KindQuotaExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case KindThrottled:
		return "throttled"
	case KindTimeout:
		return "timeout"
	case KindOverloaded:
		return "overloaded"
	case KindInternal:
		return "internal"
	case KindModelNotReady:
		return "model_not_ready"
	case KindAccessDenied:
		return "access_denied"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindQuotaExceeded:
		return "quota_exceeded"
	default:
		return "unknown"
	}
}

// TransportError is a classified failure from the remote transport.
type TransportError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport %s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("transport %s: %s", e.Kind, e.Message)
}

// Transient reports whether the failure is worth retrying.
func (e *TransportError) Transient() bool {
	switch e.Kind {
	case KindThrottled, KindTimeout, KindOverloaded, KindInternal, KindModelNotReady:
		return true
	}
	return false
}

// Classify maps an HTTP-level status and message into the error taxonomy.
func Classify(status int, message string) *TransportError {
	kind := KindUnknown
	lower := strings.ToLower(message)
	switch status {
	case http.StatusTooManyRequests:
		kind = KindThrottled
		if strings.Contains(lower, "quota") {
			kind = KindQuotaExceeded
		}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		kind = KindTimeout
	case http.StatusServiceUnavailable:
		kind = KindOverloaded
		if strings.Contains(lower, "model") && strings.Contains(lower, "ready") {
			kind = KindModelNotReady
		}
	case 529: // provider overloaded
		kind = KindOverloaded
	case http.StatusInternalServerError, http.StatusBadGateway:
		kind = KindInternal
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = KindAccessDenied
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		kind = KindValidation
	case http.StatusNotFound:
		kind = KindNotFound
	}
	return &TransportError{Kind: kind, Status: status, Message: message}
}
