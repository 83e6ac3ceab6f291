package usecase

import (
	"context"

	"meingenie/internal/domain"
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
	// NoticeCelebrate asks the view to play the completion animation.
	NoticeCelebrate NoticeLevel = "celebrate"
)

// Notice is a transient message for the user (toast, inline text).
type Notice struct {
	Level NoticeLevel
	Code  ErrorCode
	Text  string
}

// Notifier shows transient notices. Implementations must not block.
type Notifier interface {
	Notify(n Notice)
}

// Navigator moves the user to another page.
type Navigator interface {
	Navigate(ctx context.Context, dest domain.Destination)
}

// Confirmer asks the user a yes/no question before a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// DraftSink receives text destined for a pending input field.
type DraftSink interface {
	SetDraft(text string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notice) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func notifyError(n Notifier, err *Error, text string) {
	n.Notify(Notice{Level: NoticeError, Code: err.Code, Text: text})
}
