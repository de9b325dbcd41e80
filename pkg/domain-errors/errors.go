// Package domainerrors carries the error taxonomy shared by every layer of the
// gateway. Services return *Error values (usually wrapping a kind-specific
// sentinel) and transports translate the Code into status codes and payloads.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, caller-facing error identifier.
type Code string

// Taxonomy codes surfaced to the tool-calling layer.
const (
	CodeInvalidDimension Code = "INVALID_DIMENSION"
	CodeInvalidValue     Code = "INVALID_VALUE"
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeChildNotFound    Code = "CHILD_NOT_FOUND"
	CodeMapping          Code = "MAPPING_ERROR"
	CodeBackend          Code = "BACKEND_ERROR"
	CodeUnexpected       Code = "UNEXPECTED_ERROR"
)

// Transport codes used by the HTTP layer for requests that never reach the pipeline.
const (
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeInternal     Code = "internal_error"
)

// Field names identify which part of the input an error refers to.
const (
	FieldDimension     = "dimension"
	FieldValue         = "value"
	FieldCanonicalFact = "canonical_fact"
	FieldSubjects      = "subjects"
	FieldMapping       = "mapping"
	FieldBackend       = "backend"
	FieldGeneral       = "general"
)

// Error is a coded domain error. Err, when set, is the underlying kind and is
// reachable through errors.Is / errors.As.
type Error struct {
	Code    Code
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error with a human-readable message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// WithField returns a copy of e naming the offending input field.
func (e *Error) WithField(field string) *Error {
	cp := *e
	cp.Field = field
	return &cp
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// CodeOf returns the outermost code in err's chain, or CodeUnexpected.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeUnexpected
}

// FieldOf returns the outermost non-empty field in err's chain, or FieldGeneral.
func FieldOf(err error) string {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			break
		}
		if de.Field != "" {
			return de.Field
		}
		err = de.Err
	}
	return FieldGeneral
}
