package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline stage failure.
type ErrorKind string

const (
	KindInvalidSource         ErrorKind = "invalid_source"
	KindOCRFailure            ErrorKind = "ocr_failure"
	KindCompletionUnavailable ErrorKind = "completion_unavailable"
	KindCompletionTimeout     ErrorKind = "completion_timeout"
	KindDecodeFailure         ErrorKind = "decode_failure"
	KindValidationDowngrade   ErrorKind = "validation_downgrade"
)

var (
	ErrInvalidSource         = errors.New("invalid source")
	ErrOCRFailure            = errors.New("ocr failure")
	ErrCompletionUnavailable = errors.New("completion unavailable")
	ErrCompletionTimeout     = errors.New("completion timeout")
	ErrDecodeFailure         = errors.New("decode failure")
)

var kindSentinels = map[ErrorKind]error{
	KindInvalidSource:         ErrInvalidSource,
	KindOCRFailure:            ErrOCRFailure,
	KindCompletionUnavailable: ErrCompletionUnavailable,
	KindCompletionTimeout:     ErrCompletionTimeout,
	KindDecodeFailure:         ErrDecodeFailure,
}

// StageError is the failure value of a pipeline stage.
type StageError struct {
	Kind ErrorKind
	Err  error
}

// NewStageError wraps err with kind. A nil err is replaced by the kind's sentinel.
func NewStageError(kind ErrorKind, err error) *StageError {
	if err == nil {
		err = kindSentinels[kind]
	}
	return &StageError{Kind: kind, Err: err}
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrOCRFailure) and friends match by kind.
func (e *StageError) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the kind carried by err, or "" when err is not a stage error.
func KindOf(err error) ErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	for k, s := range kindSentinels {
		if errors.Is(err, s) {
			return k
		}
	}
	return ""
}
