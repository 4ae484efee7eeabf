package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the machine-readable classification of a pipeline failure.
// Counters are safety-critical aggregates; every failure in the ingestion
// pipeline carries one of these kinds and is surfaced, never swallowed.
type ErrorKind string

const (
	KindUnsupportedFileFormat ErrorKind = "UNSUPPORTED_FILE_FORMAT"
	KindEmptyFile             ErrorKind = "EMPTY_FILE"
	KindRequiredFieldsMissing ErrorKind = "REQUIRED_FIELDS_MISSING"
	KindConfigLocked          ErrorKind = "CONFIG_LOCKED"
	KindScoringUnavailable    ErrorKind = "SCORING_SERVICE_UNAVAILABLE"
	KindDuplicateStudent      ErrorKind = "DUPLICATE_STUDENT_CONFLICT"
)

// PipelineError is a classified ingestion failure. Fields carries the
// human-readable display names involved (e.g. the missing required fields).
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Fields  []string
}

func (e *PipelineError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewPipelineError builds a classified error.
func NewPipelineError(kind ErrorKind, message string, fields ...string) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, Fields: fields}
}

// AsPipelineError unwraps err into a PipelineError if it is one.
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsKind reports whether err is a PipelineError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	pe, ok := AsPipelineError(err)
	return ok && pe.Kind == kind
}
