package domain

import "fmt"

// ValidationError reports input that fails pre-computation checks: a missing
// required field or a requested variable absent from the data.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Msg
}

// FailureClass tags a transport failure. The classification is decided once,
// at the archive boundary; retry loops branch on it and nothing else.
type FailureClass int

const (
	// FailTransient is a recoverable failure worth a short fixed-delay retry.
	FailTransient FailureClass = iota
	// FailRateLimited signals the archive's queue/rate limit; retries back
	// off exponentially.
	FailRateLimited
	// FailFatal is not worth retrying (bad request, auth, decode).
	FailFatal
)

func (c FailureClass) String() string {
	switch c {
	case FailRateLimited:
		return "rate_limited"
	case FailFatal:
		return "fatal"
	default:
		return "transient"
	}
}

// FetchError is the typed failure returned by the archive transport for one
// unit attempt. It never surfaces past the orchestrator's unit boundary.
type FetchError struct {
	Class  FailureClass
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("archive fetch (%s, status %d): %v", e.Class, e.Status, e.Err)
	}
	return fmt.Sprintf("archive fetch (%s): %v", e.Class, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// AcquisitionError is fatal: every unit of a request failed. Err carries the
// failure of one representative unit.
type AcquisitionError struct {
	Request string
	Err     error
}

func (e *AcquisitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("acquisition failed: no data for %s: %v", e.Request, e.Err)
	}
	return "acquisition failed: no data for " + e.Request
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}
