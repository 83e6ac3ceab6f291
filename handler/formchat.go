package handler

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"meingenie/internal/domain"
	"meingenie/internal/usecase"
)

// FormChat is the conversation the REPL drives. *usecase.FormChat
// satisfies it.
type FormChat interface {
	Start(ctx context.Context, description, documentID string) error
	Retry(ctx context.Context) error
	Send(ctx context.Context, text string) error
	Confirm(ctx context.Context) error
	Reject(ctx context.Context) error
	Draft() string
	TakeDraft() string
	State() usecase.SessionState
	Messages() []domain.ChatMessage
}

// Voice is the optional voice input. *usecase.VoiceCapture satisfies it.
type Voice interface {
	OpenModal()
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) error
	CloseModal()
	SetLanguage(code string) error
	Language() string
	State() usecase.VoiceState
}

const chatHelp = `Commands:
  /voice        start recording an answer
  /stop         stop recording and transcribe
  /cancel       discard the recording
  /lang <code>  transcription language (de, en, tr, ...)
  /retry        retry starting the assistant
  /yes          confirm the collected data and generate the PDF
  /no           reject and go back to document upload
  /quit         leave the chat
An empty line sends the transcribed draft.`

// ChatREPL runs a form chat on a Terminal.
type ChatREPL struct {
	term  *Terminal
	chat  FormChat
	voice Voice
	shown int
}

// NewChatREPL builds the REPL. voice may be nil when no microphone is
// configured.
func NewChatREPL(term *Terminal, chat FormChat, voice Voice) (*ChatREPL, error) {
	if term == nil {
		return nil, errors.New("handler: terminal must not be nil")
	}
	if chat == nil {
		return nil, errors.New("handler: form chat must not be nil")
	}
	return &ChatREPL{term: term, chat: chat, voice: voice}, nil
}

// Run starts the session and reads commands until the chat navigates away,
// the user quits or input ends.
func (r *ChatREPL) Run(ctx context.Context, description, documentID string) error {
	if err := r.chat.Start(ctx, description, documentID); err != nil && usecase.CodeOf(err) == usecase.ErrorValidation {
		return err
	}
	r.term.Println("Type /help for commands.")

	for {
		r.flush()
		if _, left := r.term.Destination(); left {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := r.term.ReadLine(r.prompt())
		if errors.Is(err, io.EOF) {
			r.closeVoice()
			return nil
		}
		if err != nil {
			return err
		}

		quit, err := r.dispatch(ctx, line)
		r.report(err)
		if quit {
			r.closeVoice()
			return nil
		}
	}
}

func (r *ChatREPL) prompt() string {
	if r.voice != nil && r.voice.State() == usecase.VoiceRecording {
		return "(recording, /stop to finish) "
	}
	if r.chat.State() == usecase.StateDone {
		return "/yes or /no> "
	}
	if draft := r.chat.Draft(); draft != "" {
		return "draft: " + draft + "\nyou> "
	}
	return "you> "
}

func (r *ChatREPL) dispatch(ctx context.Context, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(line, " ")
	switch strings.ToLower(cmd) {
	case "":
		if draft := strings.TrimSpace(r.chat.TakeDraft()); draft != "" {
			return false, r.chat.Send(ctx, draft)
		}
		return false, nil
	case "/quit", "/exit":
		return true, nil
	case "/help":
		r.term.Println(chatHelp)
		return false, nil
	case "/retry":
		return false, r.chat.Retry(ctx)
	case "/yes":
		return false, r.chat.Confirm(ctx)
	case "/no":
		return false, r.chat.Reject(ctx)
	case "/voice", "/stop", "/cancel", "/lang":
		return false, r.voiceCommand(ctx, strings.ToLower(cmd), strings.TrimSpace(arg))
	default:
		return false, r.chat.Send(ctx, line)
	}
}

func (r *ChatREPL) voiceCommand(ctx context.Context, cmd, arg string) error {
	if r.voice == nil {
		r.term.Println(codeMessage(usecase.ErrorVoiceUnsupported))
		return nil
	}
	switch cmd {
	case "/voice":
		r.voice.OpenModal()
		if err := r.voice.StartRecording(ctx); err != nil {
			return err
		}
		r.term.Printf("Recording in %s...\n", r.voice.Language())
		return nil
	case "/stop":
		r.term.Println("Transcribing...")
		return r.voice.StopRecording(ctx)
	case "/cancel":
		r.voice.CloseModal()
		return nil
	default:
		if arg == "" {
			r.term.Printf("Transcription language: %s\n", r.voice.Language())
			return nil
		}
		return r.voice.SetLanguage(arg)
	}
}

func (r *ChatREPL) closeVoice() {
	if r.voice != nil {
		r.voice.CloseModal()
	}
}

// report prints errors the usecases did not already announce.
func (r *ChatREPL) report(err error) {
	if err == nil {
		return
	}
	switch usecase.CodeOf(err) {
	case "", usecase.ErrorValidation, usecase.ErrorBusy, usecase.ErrorInvalidState:
		r.term.Println(Describe(err))
	}
}

// flush prints messages added since the last call.
func (r *ChatREPL) flush() {
	msgs := r.chat.Messages()
	for _, m := range msgs[min(r.shown, len(msgs)):] {
		if m.Sender == domain.SenderUser {
			continue
		}
		r.term.Printf("Formino: %s\n", m.Content)
		if m.Schema != nil {
			r.term.Printf("%s", FormatSchema(m.Schema))
		}
	}
	r.shown = len(msgs)
}

// FormatSchema lists the collected fields in name order.
func FormatSchema(schema domain.FormSchema) string {
	if len(schema) == 0 {
		return "  (no fields)\n"
	}
	keys := make([]string, 0, len(schema))
	width := 0
	for k := range schema {
		keys = append(keys, k)
		width = max(width, len(k))
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString("  ")
		b.WriteString(k)
		b.WriteString(strings.Repeat(" ", width-len(k)))
		b.WriteString("  ")
		b.WriteString(schema[k])
		b.WriteString("\n")
	}
	return b.String()
}
