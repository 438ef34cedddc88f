package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"syscall"
)

// Error is the structured failure shape produced by the gateway for every
// non-2xx response and every transport-level failure. The classifier in the
// application layer turns it into user-facing feedback.
type Error struct {
	// StatusCode is zero when no response was received.
	StatusCode int
	// Detail is the backend's top-level "detail" string, when present.
	Detail string
	// Fields holds field-keyed validation errors, normalized so that flat
	// string values become single-element slices.
	Fields map[string][]string
	// Raw is the decoded response payload, kept for classifier fallbacks.
	Raw map[string]any
	// Timeout marks a request that exceeded its deadline.
	Timeout bool
	// Offline marks a DNS or dial-level failure, the closest analog to
	// having no connectivity at all.
	Offline bool

	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Timeout:
		return "api: request timed out"
	case e.Offline:
		return fmt.Sprintf("api: no connection: %v", e.Err)
	case e.StatusCode != 0:
		if e.Detail != "" {
			return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Detail)
		}
		return fmt.Sprintf("api: status %d", e.StatusCode)
	default:
		return fmt.Sprintf("api: network error: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FirstMessage extracts a single human-readable message in priority order:
// the top-level detail, then the first field error, then the first value of
// the raw payload. Iteration is by sorted key so the pick is deterministic.
func (e *Error) FirstMessage() string {
	if e.Detail != "" {
		return e.Detail
	}

	fieldNames := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		fieldNames = append(fieldNames, name)
	}
	sort.Strings(fieldNames)
	for _, name := range fieldNames {
		if messages := e.Fields[name]; len(messages) > 0 {
			return messages[0]
		}
	}

	return firstRawValue(e.Raw)
}

// wrapTransportError distinguishes timeouts and connectivity loss from other
// transport failures so the classifier can keep them apart.
func wrapTransportError(err error) *Error {
	apiErr := &Error{Err: err}

	if errors.Is(err, context.DeadlineExceeded) {
		apiErr.Timeout = true
		return apiErr
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		apiErr.Timeout = true
		return apiErr
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		apiErr.Offline = true
		return apiErr
	}
	for _, errno := range []syscall.Errno{syscall.ECONNREFUSED, syscall.ENETUNREACH, syscall.EHOSTUNREACH, syscall.ENETDOWN} {
		if errors.Is(err, errno) {
			apiErr.Offline = true
			return apiErr
		}
	}

	return apiErr
}
