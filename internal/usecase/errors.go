package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

type ErrorCode string

const (
	ErrorValidation          ErrorCode = "VALIDATION_ERROR"
	ErrorAuth                ErrorCode = "AUTH_ERROR"
	ErrorNetwork             ErrorCode = "NETWORK_ERROR"
	ErrorTimeout             ErrorCode = "TIMEOUT"
	ErrorBusy                ErrorCode = "BUSY"
	ErrorSessionInitFailed   ErrorCode = "SESSION_INIT_FAILED"
	ErrorMessageSendFailed   ErrorCode = "MESSAGE_SEND_FAILED"
	ErrorConfirmFailed       ErrorCode = "CONFIRM_FAILED"
	ErrorNoSession           ErrorCode = "NO_SESSION"
	ErrorInvalidState        ErrorCode = "INVALID_STATE"
	ErrorVoiceUnsupported    ErrorCode = "VOICE_UNSUPPORTED"
	ErrorVoiceCaptureFailed  ErrorCode = "VOICE_CAPTURE_FAILED"
	ErrorTranscriptionFailed ErrorCode = "TRANSCRIPTION_FAILED"
	ErrorProfileLoadFailed   ErrorCode = "PROFILE_LOAD_FAILED"
	ErrorProfileUpdateFailed ErrorCode = "PROFILE_UPDATE_FAILED"
	ErrorDocumentFailed      ErrorCode = "DOCUMENT_FAILED"
)

// ErrorKind groups codes into the families shown to users.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindAuth       ErrorKind = "auth"
	KindNetwork    ErrorKind = "network"
	KindSession    ErrorKind = "session"
	KindVoice      ErrorKind = "voice"
	KindProfile    ErrorKind = "profile"
)

func (c ErrorCode) Kind() ErrorKind {
	switch c {
	case ErrorValidation, ErrorBusy:
		return KindValidation
	case ErrorAuth:
		return KindAuth
	case ErrorNetwork, ErrorTimeout:
		return KindNetwork
	case ErrorSessionInitFailed, ErrorMessageSendFailed, ErrorConfirmFailed, ErrorNoSession, ErrorInvalidState:
		return KindSession
	case ErrorVoiceUnsupported, ErrorVoiceCaptureFailed, ErrorTranscriptionFailed:
		return KindVoice
	default:
		return KindProfile
	}
}

// Error is the single error type returned by usecases. Fields carries
// per-field messages for validation and server-side field errors.
type Error struct {
	Code   ErrorCode
	Reason string
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		msg += " [" + strings.Join(parts, "; ") + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) Kind() ErrorKind {
	return e.Code.Kind()
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

func validationError(fields map[string]string) *Error {
	return &Error{Code: ErrorValidation, Reason: "invalid_input", Fields: fields}
}

// CodeOf returns the usecase code carried by err, or "" if none.
func CodeOf(err error) ErrorCode {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ""
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// serverMessager is implemented by integration errors that carry the
// backend's own message and per-field messages.
type serverMessager interface {
	ServerMessage() string
	FieldErrors() map[string]string
}

// serverDetails extracts the backend message and field errors from err.
func serverDetails(err error) (string, map[string]string) {
	var sm serverMessager
	if !errors.As(err, &sm) {
		return "", nil
	}
	return sm.ServerMessage(), sm.FieldErrors()
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

// classify maps a transport failure to code when the server answered, and to
// ErrorNetwork (or ErrorTimeout) when it did not.
func classify(code ErrorCode, reason string, err error) *Error {
	if _, ok := upstreamStatusCode(err); ok {
		return newError(code, reason, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrorTimeout, reason, err)
	}
	return newError(ErrorNetwork, reason, err)
}
