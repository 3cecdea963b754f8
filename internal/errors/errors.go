// Package errors provides unified error handling with structured error codes.
// Per-field parse rejections are NOT errors; they are ordinary invalid values
// handled by the parser and reconciler. Codes here cover configuration,
// capture, and recognition failures.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code classifies a failure for retry and surfacing decisions.
type Code int

const (
	Unknown Code = iota
	ConfigInvalid      // malformed preset, grammar, or knowledge file
	ConfigMissing      // required configuration absent
	UnknownPreset      // ROI preset name not registered
	CaptureUnavailable // backend missing, no display, permission denied
	CaptureFailed      // transient grab failure
	OCRInitFailed      // engine or language pack could not be loaded
	OCRExtractFailed   // recognizer returned an error for one region
	OCRTimeout         // recognizer exceeded its per-call deadline
	BlankRegion        // cropped region is uniform; nothing to recognize
)

var codeNames = map[Code]string{
	Unknown:            "UNKNOWN",
	ConfigInvalid:      "CONFIG_INVALID",
	ConfigMissing:      "CONFIG_MISSING",
	UnknownPreset:      "UNKNOWN_PRESET",
	CaptureUnavailable: "CAPTURE_UNAVAILABLE",
	CaptureFailed:      "CAPTURE_FAILED",
	OCRInitFailed:      "OCR_INIT_FAILED",
	OCRExtractFailed:   "OCR_EXTRACT_FAILED",
	OCRTimeout:         "OCR_TIMEOUT",
	BlankRegion:        "BLANK_REGION",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// AppError is the base error type with structured code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// IsCode checks if an error (or any error it wraps) carries a specific code.
func IsCode(err error, code Code) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf extracts the code from an error chain, Unknown if none.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return Unknown
}

// IsFatal reports whether the error should abort the session rather than
// drop a single frame or region. Configuration problems surface before any
// frame is processed; losing the capture backend is unrecoverable once
// retries are exhausted.
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case ConfigInvalid, ConfigMissing, UnknownPreset, CaptureUnavailable, OCRInitFailed:
		return true
	default:
		return false
	}
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CaptureFailed, OCRTimeout, OCRExtractFailed:
		return true
	default:
		return false
	}
}
