package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks against the typed errors below.
var (
	ErrConfiguration = errors.New("invalid storage configuration")
	ErrValidation    = errors.New("invalid input")
	ErrRemoteWrite   = errors.New("remote write failed")
	ErrLocalWrite    = errors.New("local write failed")
	ErrNotFound      = errors.New("dataset object not found")
)

// ConfigurationError reports an invalid backend selection or incomplete
// remote credentials. It is fatal and never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("storage configuration: %s", e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ValidationError reports a rejected input before any I/O was attempted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// RemoteWriteError reports a failed primary remote write with no further
// fallback. The original failure is attached as the cause.
type RemoteWriteError struct {
	Path string
	Err  error
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("remote write to %s failed: %v", e.Path, e.Err)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }

func (e *RemoteWriteError) Is(target error) bool {
	return target == ErrRemoteWrite
}

// LocalWriteError reports a failed primary local write.
type LocalWriteError struct {
	Path string
	Err  error
}

func (e *LocalWriteError) Error() string {
	return fmt.Sprintf("local write to %s failed: %v", e.Path, e.Err)
}

func (e *LocalWriteError) Unwrap() error { return e.Err }

func (e *LocalWriteError) Is(target error) bool {
	return target == ErrLocalWrite
}

// NotFoundError reports that no object matched the requested layer and
// prefix. Callers treat it as a recoverable condition (run the upstream
// stage first), so it is returned as-is and never wrapped.
type NotFoundError struct {
	Layer  Layer
	Prefix string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no parquet object in layer %q with prefix %q", e.Layer, e.Prefix)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
