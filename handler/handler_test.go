package handler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"meingenie/internal/usecase"
)

func TestDescribe_MapsUseCaseErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		text string
		exit int
	}{
		{name: "nil", err: nil, text: "", exit: ExitOK},
		{name: "validation", err: &usecase.Error{Code: usecase.ErrorValidation, Reason: "invalid_input"}, text: "Please check your input.", exit: ExitValidation},
		{name: "busy", err: &usecase.Error{Code: usecase.ErrorBusy, Reason: "submission_in_flight"}, text: "Still working on the previous request.", exit: ExitValidation},
		{name: "auth", err: &usecase.Error{Code: usecase.ErrorAuth, Reason: "login"}, text: "Authentication failed.", exit: ExitAuth},
		{name: "network", err: &usecase.Error{Code: usecase.ErrorNetwork, Reason: "login"}, text: "The server could not be reached.", exit: ExitNetwork},
		{name: "timeout", err: &usecase.Error{Code: usecase.ErrorTimeout, Reason: "register"}, text: "The server took too long to respond.", exit: ExitNetwork},
		{name: "no session", err: &usecase.Error{Code: usecase.ErrorNoSession, Reason: "no_session"}, text: "There is no active form session. Type /retry first.", exit: ExitInternal},
		{name: "wrapped", err: fmt.Errorf("cmd: %w", &usecase.Error{Code: usecase.ErrorDocumentFailed}), text: "The document could not be changed.", exit: ExitInternal},
		{name: "cancelled", err: context.Canceled, text: "Cancelled.", exit: ExitInternal},
		{name: "unexpected", err: errors.New("boom"), text: "Something went wrong: boom", exit: ExitInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.text, Describe(tc.err))
			require.Equal(t, tc.exit, ExitCode(tc.err))
		})
	}
}

func TestDescribe_ListsFieldsInOrder(t *testing.T) {
	err := &usecase.Error{Code: usecase.ErrorValidation, Fields: map[string]string{
		"password": "Please enter your password.",
		"email":    "Please enter a valid email address.",
	}}
	require.Equal(t, "Please check your input.\n  email: Please enter a valid email address.\n  password: Please enter your password.", Describe(err))
}
