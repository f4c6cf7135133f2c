package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDataset is returned when an extractor produced nothing to export.
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrEmptyInput is returned when serialization is asked to derive a header from zero records.
	ErrEmptyInput = errors.New("no records to serialize")
	// ErrUploadFailed is returned when object storage accepted the call but gave no object location.
	ErrUploadFailed = errors.New("upload did not return an object location")
)

// MissingConfigError reports a required per-dataset setting that is unset.
type MissingConfigError struct {
	Kind  Kind
	Field string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing %s configuration for %s dataset", e.Field, e.Kind)
}

// InvalidConfigError reports a per-dataset setting whose value cannot be used.
type InvalidConfigError struct {
	Kind   Kind
	Field  string
	Value  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid %s configuration %q for %s dataset: %s", e.Field, e.Value, e.Kind, e.Reason)
}

// ErrorType names the taxonomy class of err, or "" for pass-through errors.
// The names double as non-retryable error types for workflow retry policies.
// Unusable settings are reported in the MissingConfig class with unset ones.
func ErrorType(err error) string {
	var (
		missing *MissingConfigError
		invalid *InvalidConfigError
	)
	switch {
	case errors.Is(err, ErrEmptyDataset), errors.Is(err, ErrEmptyInput):
		return "EmptyDataset"
	case errors.Is(err, ErrUploadFailed):
		return "UploadFailed"
	case errors.As(err, &missing), errors.As(err, &invalid):
		return "MissingConfig"
	}
	return ""
}
