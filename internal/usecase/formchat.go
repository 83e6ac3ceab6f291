package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"meingenie/internal/domain"
)

// SessionState is where a form-filling conversation currently stands.
type SessionState int

const (
	StateInitializing SessionState = iota
	StateAwaitingInput
	StateAwaitingResponse
	StateDone
)

func (s SessionState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAwaitingInput:
		return "awaiting-input"
	case StateAwaitingResponse:
		return "awaiting-response"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

const (
	apologyMessage      = "Sorry, something went wrong on my side. Please try again."
	startApologyMessage = "Sorry, I could not start the form assistant. Use retry to try again."
)

// FormChatAPI is the backend contract of a form-filling session.
type FormChatAPI interface {
	StartSession(ctx context.Context, description, documentID string) (domain.SessionStart, error)
	SendMessage(ctx context.Context, sessionID, text string) (domain.SessionUpdate, error)
	ConfirmSchema(ctx context.Context, sessionID string, schema domain.FormSchema, documentID string) (domain.FilledForm, error)
}

// FormChat drives one form-filling conversation. Exactly one exchange with
// the backend is in flight at a time; the message log is append-only.
type FormChat struct {
	api      FormChatAPI
	nav      Navigator
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	mu          sync.Mutex
	state       SessionState
	started     bool
	confirming  bool
	sessionID   string
	description string
	documentID  string
	messages    []domain.ChatMessage
	draft       string
}

type FormChatOption func(*FormChat)

func WithFormChatLogger(l *slog.Logger) FormChatOption {
	return func(f *FormChat) { f.logger = l }
}

func WithFormChatNotifier(n Notifier) FormChatOption {
	return func(f *FormChat) { f.notifier = n }
}

func NewFormChat(api FormChatAPI, nav Navigator, opts ...FormChatOption) (*FormChat, error) {
	if api == nil {
		return nil, errors.New("usecase: form chat api must not be nil")
	}
	if nav == nil {
		return nil, errors.New("usecase: navigator must not be nil")
	}
	f := &FormChat{
		api:    api,
		nav:    nav,
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
		state:  StateInitializing,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.notifier = notifierOrNop(f.notifier)
	return f, nil
}

// Start opens the session for description. The description is shown as the
// first user message.
func (f *FormChat) Start(ctx context.Context, description, documentID string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return validationError(map[string]string{"description": "Please describe the form."})
	}

	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return newError(ErrorInvalidState, "already_started", nil)
	}
	f.started = true
	f.description = description
	f.documentID = documentID
	f.appendLocked(domain.SenderUser, description, nil)
	f.mu.Unlock()

	return f.open(ctx)
}

// Retry re-attempts opening the session after Start failed. The description
// is not appended again.
func (f *FormChat) Retry(ctx context.Context) error {
	f.mu.Lock()
	if !f.started || f.sessionID != "" || f.state != StateAwaitingInput {
		f.mu.Unlock()
		return newError(ErrorInvalidState, "nothing_to_retry", nil)
	}
	f.state = StateInitializing
	f.mu.Unlock()

	return f.open(ctx)
}

func (f *FormChat) open(ctx context.Context) error {
	f.mu.Lock()
	description, documentID := f.description, f.documentID
	f.mu.Unlock()

	start, err := f.api.StartSession(ctx, description, documentID)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.logger.Warn("form chat start failed", "document_id", documentID, "err", err)
		f.appendLocked(domain.SenderAI, startApologyMessage, nil)
		f.state = StateAwaitingInput
		ue := newError(ErrorSessionInitFailed, "start_session", err)
		notifyError(f.notifier, ue, "The form assistant could not be started.")
		return ue
	}
	f.sessionID = start.SessionID
	f.applyLocked(start.Update)
	return nil
}

// Send submits the user's answer. Blank text is rejected locally.
func (f *FormChat) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return validationError(map[string]string{"text": "Please enter a message."})
	}

	f.mu.Lock()
	switch f.state {
	case StateDone:
		f.mu.Unlock()
		return newError(ErrorInvalidState, "session_done", nil)
	case StateAwaitingResponse:
		f.mu.Unlock()
		return newError(ErrorBusy, "request_in_flight", nil)
	case StateInitializing:
		if f.started {
			f.mu.Unlock()
			return newError(ErrorBusy, "session_opening", nil)
		}
	}
	if f.sessionID == "" {
		f.mu.Unlock()
		ue := newError(ErrorNoSession, "no_session", nil)
		f.notifier.Notify(Notice{Level: NoticeWarning, Code: ue.Code, Text: "There is no active form session. Retry starting it first."})
		return ue
	}
	sessionID := f.sessionID
	f.appendLocked(domain.SenderUser, text, nil)
	f.draft = ""
	f.state = StateAwaitingResponse
	f.mu.Unlock()

	update, err := f.api.SendMessage(ctx, sessionID, text)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.logger.Warn("form chat message failed", "session_id", sessionID, "err", err)
		f.appendLocked(domain.SenderAI, apologyMessage, nil)
		f.state = StateAwaitingInput
		ue := newError(ErrorMessageSendFailed, "send_message", err)
		notifyError(f.notifier, ue, "Your message could not be delivered.")
		return ue
	}
	f.applyLocked(update)
	return nil
}

// applyLocked appends the AI turn and moves to the next state.
func (f *FormChat) applyLocked(update domain.SessionUpdate) {
	switch u := update.(type) {
	case domain.Completed:
		f.appendLocked(domain.SenderAI, u.Text, u.Schema.Clone())
		f.state = StateDone
		f.notifier.Notify(Notice{Level: NoticeCelebrate, Text: "Your form is ready for review."})
	case domain.Question:
		f.appendLocked(domain.SenderAI, u.Text, nil)
		f.state = StateAwaitingInput
	default:
		f.logger.Error("form chat: unknown session update", "type", update)
		f.appendLocked(domain.SenderAI, apologyMessage, nil)
		f.state = StateAwaitingInput
	}
}

// Confirm submits the extracted schema and navigates to the review page.
func (f *FormChat) Confirm(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateDone {
		f.mu.Unlock()
		return newError(ErrorInvalidState, "not_done", nil)
	}
	if f.confirming {
		f.mu.Unlock()
		return newError(ErrorBusy, "confirm_in_flight", nil)
	}
	f.confirming = true
	sessionID, documentID := f.sessionID, f.documentID
	schema := latestSchema(f.messages)
	f.mu.Unlock()

	form, err := f.api.ConfirmSchema(ctx, sessionID, schema, documentID)

	f.mu.Lock()
	f.confirming = false
	f.mu.Unlock()
	if err != nil {
		f.logger.Warn("form chat confirm failed", "session_id", sessionID, "err", err)
		ue := newError(ErrorConfirmFailed, "confirm_schema", err)
		notifyError(f.notifier, ue, "The form could not be generated. Please try again.")
		return ue
	}
	f.nav.Navigate(ctx, domain.Destination{
		Page:     domain.PageFormReview,
		PDFURL:   form.PDFURL,
		FileName: form.Name,
	})
	return nil
}

// Reject discards the result and sends the user back to upload a document.
func (f *FormChat) Reject(ctx context.Context) error {
	f.mu.Lock()
	state := f.state
	f.mu.Unlock()
	if state != StateDone {
		return newError(ErrorInvalidState, "not_done", nil)
	}
	f.nav.Navigate(ctx, domain.Destination{Page: domain.PageForminoUpload})
	return nil
}

// SetDraft replaces the pending input text. Ignored once the session is done.
func (f *FormChat) SetDraft(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateDone {
		return
	}
	f.draft = text
}

func (f *FormChat) Draft() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// TakeDraft returns and clears the pending input text.
func (f *FormChat) TakeDraft() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.draft
	f.draft = ""
	return d
}

func (f *FormChat) State() SessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *FormChat) SessionID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessionID
}

// Messages returns a copy of the conversation in order.
func (f *FormChat) Messages() []domain.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ChatMessage, len(f.messages))
	for i, m := range f.messages {
		m.Schema = m.Schema.Clone()
		out[i] = m
	}
	return out
}

// LatestSchema returns the schema of the most recent AI message carrying one.
func (f *FormChat) LatestSchema() domain.FormSchema {
	f.mu.Lock()
	defer f.mu.Unlock()
	return latestSchema(f.messages)
}

func latestSchema(msgs []domain.ChatMessage) domain.FormSchema {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Sender == domain.SenderAI && msgs[i].Schema != nil {
			return msgs[i].Schema.Clone()
		}
	}
	return nil
}

func (f *FormChat) appendLocked(sender domain.Sender, content string, schema domain.FormSchema) {
	f.messages = append(f.messages, domain.ChatMessage{
		ID:        f.newID(),
		Content:   content,
		Sender:    sender,
		Timestamp: f.now(),
		Schema:    schema,
	})
}
