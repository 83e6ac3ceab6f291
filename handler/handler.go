package handler

import (
	"context"
	"errors"
	"sort"
	"strings"

	"meingenie/internal/usecase"
)

// Exit codes returned by the CLI for failed commands.
const (
	ExitOK         = 0
	ExitInternal   = 1
	ExitValidation = 2
	ExitAuth       = 3
	ExitNetwork    = 4
)

// Describe renders err as the text shown to the user. Field errors are
// listed one per line in name order.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var usecaseErr *usecase.Error
	if !errors.As(err, &usecaseErr) {
		if errors.Is(err, context.Canceled) {
			return "Cancelled."
		}
		return "Something went wrong: " + err.Error()
	}

	var b strings.Builder
	b.WriteString(codeMessage(usecaseErr.Code))
	if len(usecaseErr.Fields) > 0 {
		keys := make([]string, 0, len(usecaseErr.Fields))
		for k := range usecaseErr.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString("\n  ")
			b.WriteString(k)
			b.WriteString(": ")
			b.WriteString(usecaseErr.Fields[k])
		}
	}
	return b.String()
}

func codeMessage(code usecase.ErrorCode) string {
	switch code {
	case usecase.ErrorValidation:
		return "Please check your input."
	case usecase.ErrorAuth:
		return "Authentication failed."
	case usecase.ErrorNetwork:
		return "The server could not be reached."
	case usecase.ErrorTimeout:
		return "The server took too long to respond."
	case usecase.ErrorBusy:
		return "Still working on the previous request."
	case usecase.ErrorSessionInitFailed:
		return "The form assistant could not be started. Type /retry to try again."
	case usecase.ErrorMessageSendFailed:
		return "Your message could not be delivered."
	case usecase.ErrorConfirmFailed:
		return "The form could not be generated."
	case usecase.ErrorNoSession:
		return "There is no active form session. Type /retry first."
	case usecase.ErrorInvalidState:
		return "That is not possible right now."
	case usecase.ErrorVoiceUnsupported:
		return "Voice input is not available on this machine."
	case usecase.ErrorVoiceCaptureFailed:
		return "The microphone could not be used."
	case usecase.ErrorTranscriptionFailed:
		return "Your recording could not be transcribed."
	case usecase.ErrorProfileLoadFailed:
		return "Your profile could not be loaded."
	case usecase.ErrorProfileUpdateFailed:
		return "Your changes could not be saved."
	case usecase.ErrorDocumentFailed:
		return "The document could not be changed."
	default:
		return "Something went wrong."
	}
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var usecaseErr *usecase.Error
	if !errors.As(err, &usecaseErr) {
		return ExitInternal
	}
	switch usecaseErr.Kind() {
	case usecase.KindValidation:
		return ExitValidation
	case usecase.KindAuth:
		return ExitAuth
	case usecase.KindNetwork:
		return ExitNetwork
	default:
		return ExitInternal
	}
}
