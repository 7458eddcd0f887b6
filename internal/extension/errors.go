package extension

import (
	"errors"
	"fmt"
)

// AcquisitionKind classifies acquisition failures.
type AcquisitionKind string

const (
	AcquireNotFound          AcquisitionKind = "not_found"
	AcquireNetworkFailure    AcquisitionKind = "network_failure"
	AcquireChecksumMismatch  AcquisitionKind = "checksum_mismatch"
	AcquireUnsupportedSource AcquisitionKind = "unsupported_source"
	AcquireCancelled         AcquisitionKind = "cancelled"
)

// AcquisitionError reports a failure to materialize extension content
// from a source.
type AcquisitionError struct {
	Kind   AcquisitionKind
	Source string
	Err    error
}

func (e *AcquisitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("acquiring %s: %s: %v", e.Source, e.Kind, e.Err)
	}
	return fmt.Sprintf("acquiring %s: %s", e.Source, e.Kind)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// ValidationError reports that acquired content failed manifest
// validation or could not be loaded as an extension.
type ValidationError struct {
	Name string
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("validating extension %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("validating extension: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ConflictError reports an install attempt for a name that is already
// installed without update semantics.
type ConflictError struct {
	Name string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("extension %q is already installed (use update)", e.Name)
}

// NotFoundError reports an operation on an unknown extension name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("extension %q is not installed", e.Name)
}

// ErrTrustDenied is returned when the trust policy blocks an install or
// the user refuses consent.
var ErrTrustDenied = errors.New("extension install denied by trust policy")

// ErrBusy is returned when an install, update, or uninstall targets a
// name that already has an operation in flight. Concurrent operations on
// the same name fail fast rather than queue.
var ErrBusy = errors.New("another operation is in progress for this extension")
