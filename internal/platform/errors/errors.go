// Package errors provides the structured error type every layer returns
// import it as perr
package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine facing classification carried on the wire
type ErrorCode uint16

const (
	ErrorCodeUnknown ErrorCode = iota
	ErrorCodePanic
	ErrorCodeUnavailable
	ErrorCodeInvalidArgument
	ErrorCodeValidation
	ErrorCodeNotFound
	ErrorCodeDuplicateKey
	ErrorCodeDB

	// form limits, one per Limits bound family
	ErrorCodeFieldsLimit
	ErrorCodeFieldSizeLimit
	ErrorCodeFilesLimit
	ErrorCodeFileSizeLimit
	ErrorCodePartsLimit

	// ErrorCodeMultipart is a malformed or undecodable body
	ErrorCodeMultipart
	// ErrorCodeInvalidOption is a missing or malformed setup option
	ErrorCodeInvalidOption
	// ErrorCodeConflictConfig is a pair of mutually exclusive setup options
	ErrorCodeConflictConfig
	// ErrorCodeStorage is a sink failure while storing a file
	ErrorCodeStorage
)

var codes = [...]struct {
	name   string
	status int
}{
	ErrorCodeUnknown:         {"unknown", http.StatusInternalServerError},
	ErrorCodePanic:           {"panic", http.StatusInternalServerError},
	ErrorCodeUnavailable:     {"unavailable", http.StatusServiceUnavailable},
	ErrorCodeInvalidArgument: {"invalid_argument", http.StatusUnprocessableEntity},
	ErrorCodeValidation:      {"validation", http.StatusBadRequest},
	ErrorCodeNotFound:        {"not_found", http.StatusNotFound},
	ErrorCodeDuplicateKey:    {"duplicate_key", http.StatusConflict},
	ErrorCodeDB:              {"db", http.StatusInternalServerError},
	ErrorCodeFieldsLimit:     {"fields_limit", http.StatusRequestEntityTooLarge},
	ErrorCodeFieldSizeLimit:  {"field_size_limit", http.StatusRequestEntityTooLarge},
	ErrorCodeFilesLimit:      {"files_limit", http.StatusRequestEntityTooLarge},
	ErrorCodeFileSizeLimit:   {"file_size_limit", http.StatusRequestEntityTooLarge},
	ErrorCodePartsLimit:      {"parts_limit", http.StatusRequestEntityTooLarge},
	ErrorCodeMultipart:       {"multipart", http.StatusBadRequest},
	ErrorCodeInvalidOption:   {"invalid_option", http.StatusInternalServerError},
	ErrorCodeConflictConfig:  {"conflict_config", http.StatusInternalServerError},
	ErrorCodeStorage:         {"storage", http.StatusInternalServerError},
}

// String names the code for logs
func (c ErrorCode) String() string {
	if int(c) < len(codes) {
		return codes[c].name
	}
	return fmt.Sprintf("code(%d)", uint16(c))
}

// HTTPStatusCode turns an ErrorCode into an http status code; unknown codes are 500
func HTTPStatusCode(c ErrorCode) int {
	if int(c) < len(codes) {
		return codes[c].status
	}
	return http.StatusInternalServerError
}

// ErrNotFound is the sentinel repos return for a missing row
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Error carries a code, a message, an optional offending field and the wrapped cause
type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
}

// Wire is the JSON form returned by the API
type Wire struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Field returns the offending field, if any
func (e *Error) Field() string { return e.field }

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf extracts an ErrorCode from any error, defaulting to Unknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// IsLimit reports whether err carries one of the form limit codes
func IsLimit(err error) bool {
	c := CodeOf(err)
	return c >= ErrorCodeFieldsLimit && c <= ErrorCodePartsLimit
}

// HTTPStatus returns the mapped HTTP status for any error
func HTTPStatus(err error) int { return HTTPStatusCode(CodeOf(err)) }

// HTTP returns status and wire payload for err; foreign errors become Unknown
func HTTP(err error) (int, Wire) {
	if err == nil {
		return http.StatusOK, Wire{}
	}
	if e, ok := As(err); ok {
		return HTTPStatusCode(e.code), Wire{Code: e.code, Message: e.msg, Field: e.field}
	}
	return http.StatusInternalServerError, Wire{Code: ErrorCodeUnknown, Message: err.Error()}
}

// WithField returns a copy of err naming the offending field; foreign errors pass through
func WithField(err error, field string) error {
	if e, ok := As(err); ok {
		c := *e
		c.field = field
		return &c
	}
	return err
}

// New returns a new *Error with the given code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with code and message
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with code and formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

func NotFoundf(format string, a ...any) error    { return Newf(ErrorCodeNotFound, format, a...) }
func InvalidArgf(format string, a ...any) error  { return Newf(ErrorCodeInvalidArgument, format, a...) }
func PanicErrf(format string, a ...any) error    { return Newf(ErrorCodePanic, format, a...) }
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }
func Storagef(format string, a ...any) error     { return Newf(ErrorCodeStorage, format, a...) }

// InvalidOptionf reports a setup option that cannot be used
func InvalidOptionf(format string, a ...any) error {
	return Newf(ErrorCodeInvalidOption, format, a...)
}
