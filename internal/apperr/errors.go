package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by how the HTTP layer has to report it.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindProcessing
	KindAssemblyTimeout
	KindNotFound
	KindPayloadTooLarge
)

const (
	CodeNoFilesProvided       = "NoFilesProvided"
	CodeTooManyFiles          = "TooManyFiles"
	CodeFileTooLarge          = "FileTooLarge"
	CodeUnsupportedExtension  = "UnsupportedExtension"
	CodeEmptyFilename         = "EmptyFilename"
	CodeProcessingFailed      = "ProcessingFailed"
	CodeAssemblyTimeout       = "AssemblyTimeout"
	CodeSessionNotFound       = "SessionNotFound"
	CodePayloadTooLarge       = "PayloadTooLarge"
	CodeUnsupportedConversion = "UnsupportedConversion"
	CodeConversionTimeout     = "ConversionTimeout"
	CodeInternal              = "InternalError"
)

// Error is the single error type crossing package boundaries.
// File names the offending upload when there is one.
type Error struct {
	Kind     Kind
	Code     string
	Message  string
	File     string
	Internal bool // processing failure not caused by the input
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(code, file, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, File: file, Message: message}
}

// Processing reports a failure on a named batch item caused by its content.
func Processing(file string, err error) *Error {
	return &Error{
		Kind:    KindProcessing,
		Code:    CodeProcessingFailed,
		File:    file,
		Message: fmt.Sprintf("image processing failed for %q", file),
		Err:     err,
	}
}

// ProcessingInternal is a processing failure on a named item that was not the input's fault.
func ProcessingInternal(file string, err error) *Error {
	e := Processing(file, err)
	e.Internal = true
	return e
}

func AssemblyTimeout(err error) *Error {
	return &Error{
		Kind:    KindAssemblyTimeout,
		Code:    CodeAssemblyTimeout,
		Message: "pdf assembly timed out, retry with a smaller batch",
		Err:     err,
	}
}

func ConversionTimeout(err error) *Error {
	return &Error{
		Kind:    KindAssemblyTimeout,
		Code:    CodeConversionTimeout,
		Message: "conversion timed out",
		Err:     err,
	}
}

// SessionNotFound does not say why: unknown, expired and consumed look the same.
func SessionNotFound() *Error {
	return &Error{Kind: KindNotFound, Code: CodeSessionNotFound, Message: "session expired or invalid"}
}

func PayloadTooLarge(limit string) *Error {
	return &Error{
		Kind:    KindPayloadTooLarge,
		Code:    CodePayloadTooLarge,
		Message: fmt.Sprintf("request too large (max %s)", limit),
	}
}

func UnsupportedConversion(from, to string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    CodeUnsupportedConversion,
		Message: fmt.Sprintf("conversion %s -> %s is not supported", from, to),
	}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: message, Err: err}
}

// From returns err as *Error, wrapping anything unknown as an internal error.
// Context deadlines surface as assembly timeouts.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return AssemblyTimeout(err)
	}
	return Internal("internal error", err)
}

func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNotFound
}

// HTTPStatus maps an error onto the status code the client receives.
func HTTPStatus(err error) int {
	e := From(err)
	if e == nil {
		return http.StatusOK
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindProcessing:
		if e.Internal {
			return http.StatusInternalServerError
		}
		return http.StatusBadRequest
	case KindAssemblyTimeout:
		return http.StatusGatewayTimeout
	case KindNotFound:
		return http.StatusNotFound
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
