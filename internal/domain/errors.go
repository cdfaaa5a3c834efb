package domain

import (
	"errors"
	"fmt"
)

// Kind names a failure class for event payloads and retry eligibility.
type Kind string

const (
	KindTransport         Kind = "TransportError"
	KindUpstreamStatus    Kind = "UpstreamStatusError"
	KindNoData            Kind = "NoDataError"
	KindMalformedResponse Kind = "MalformedResponseError"
	KindUnknown           Kind = "UnknownError"
)

// TransportError is a connection or timeout level failure where no HTTP
// response was received. Always retryable.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("geocode transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamStatusError is a non-2xx response from the geocoding API.
type UpstreamStatusError struct {
	Status int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("geocode upstream returned status %d", e.Status)
}

// NoDataError means the response parsed cleanly but held no location records
// for the postcode. Terminal for inline retries; only the out-of-band worker
// re-attempts it.
type NoDataError struct {
	Postcode string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no location data for postcode %s", e.Postcode)
}

// MalformedResponseError means the response body was structurally unexpected.
// Terminal.
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed geocode response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// RetriesExhaustedError wraps the last underlying failure once the retry
// policy gives up. The last attempt's error, not an intermediate one, is
// what callers see.
type RetriesExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Err }

// ErrKind classifies err into the failure taxonomy, unwrapping a
// RetriesExhaustedError to the underlying kind.
func ErrKind(err error) Kind {
	var exhausted *RetriesExhaustedError
	if errors.As(err, &exhausted) {
		err = exhausted.Err
	}

	var (
		transport *TransportError
		status    *UpstreamStatusError
		noData    *NoDataError
		malformed *MalformedResponseError
	)
	switch {
	case errors.As(err, &transport):
		return KindTransport
	case errors.As(err, &status):
		return KindUpstreamStatus
	case errors.As(err, &noData):
		return KindNoData
	case errors.As(err, &malformed):
		return KindMalformedResponse
	default:
		return KindUnknown
	}
}

// DefaultRetryableStatuses is the subset of upstream HTTP statuses worth an
// inline retry: server-side failures plus 429.
var DefaultRetryableStatuses = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// Retryable reports whether err is worth retrying inline. Transport failures
// always are; status errors only for the given status set; NoData and
// MalformedResponse never are.
func Retryable(err error, retryableStatuses map[int]bool) bool {
	var status *UpstreamStatusError
	if errors.As(err, &status) {
		return retryableStatuses[status.Status]
	}
	var transport *TransportError
	return errors.As(err, &transport)
}
