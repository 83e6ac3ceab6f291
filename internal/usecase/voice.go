package usecase

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"meingenie/internal/audio"
	"meingenie/internal/domain"
)

// VoiceState is the capture lifecycle inside the voice modal.
type VoiceState int

const (
	VoiceIdle VoiceState = iota
	VoiceRecording
	VoiceProcessing
)

func (s VoiceState) String() string {
	switch s {
	case VoiceIdle:
		return "idle"
	case VoiceRecording:
		return "recording"
	case VoiceProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

const defaultVoiceLanguage = "de"

// SupportedLanguages are the transcription languages offered in the modal.
var SupportedLanguages = []string{"de", "en", "tr", "ar", "ru", "uk", "pl", "fr", "es", "it"}

func supportedLanguage(code string) bool {
	return slices.Contains(SupportedLanguages, code)
}

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip domain.AudioClip, language string) (string, error)
}

// VoiceCapture records speech and places the transcript into a draft. The
// microphone stream is owned by the active recording and is released on
// stop, modal close and teardown.
type VoiceCapture struct {
	source   audio.Source
	tr       Transcriber
	sink     DraftSink
	notifier Notifier
	logger   *slog.Logger

	mu        sync.Mutex
	state     VoiceState
	modalOpen bool
	language  string
	rec       *audio.Recorder
	cancel    context.CancelFunc
	// gen increments whenever an in-flight upload must be ignored.
	gen    uint64
	closed bool
}

type VoiceOption func(*VoiceCapture)

func WithVoiceNotifier(n Notifier) VoiceOption {
	return func(v *VoiceCapture) { v.notifier = n }
}

func WithVoiceLogger(l *slog.Logger) VoiceOption {
	return func(v *VoiceCapture) { v.logger = l }
}

func WithVoiceLanguage(code string) VoiceOption {
	return func(v *VoiceCapture) {
		if code = strings.ToLower(strings.TrimSpace(code)); supportedLanguage(code) {
			v.language = code
		}
	}
}

func NewVoiceCapture(source audio.Source, tr Transcriber, sink DraftSink, opts ...VoiceOption) (*VoiceCapture, error) {
	if tr == nil {
		return nil, errors.New("usecase: transcriber must not be nil")
	}
	if sink == nil {
		return nil, errors.New("usecase: draft sink must not be nil")
	}
	v := &VoiceCapture{
		source:   source,
		tr:       tr,
		sink:     sink,
		logger:   slog.Default(),
		language: defaultVoiceLanguage,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.notifier = notifierOrNop(v.notifier)
	return v, nil
}

func (v *VoiceCapture) OpenModal() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed {
		v.modalOpen = true
	}
}

func (v *VoiceCapture) ModalOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.modalOpen
}

func (v *VoiceCapture) State() VoiceState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *VoiceCapture) Language() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.language
}

// SetLanguage selects the transcription language for the next capture.
func (v *VoiceCapture) SetLanguage(code string) error {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return validationError(map[string]string{"language": "Please choose a language."})
	}
	if !supportedLanguage(code) {
		return validationError(map[string]string{
			"language": "Unsupported language. Choose one of: " + strings.Join(SupportedLanguages, ", ") + ".",
		})
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.language = code
	return nil
}

// StartRecording acquires the microphone and begins buffering.
func (v *VoiceCapture) StartRecording(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return newError(ErrorInvalidState, "closed", nil)
	}
	if v.state != VoiceIdle {
		v.mu.Unlock()
		return newError(ErrorBusy, "voice_busy", nil)
	}
	if v.source == nil {
		v.mu.Unlock()
		ue := newError(ErrorVoiceUnsupported, "no_audio_source", audio.ErrUnsupported)
		notifyError(v.notifier, ue, "Voice input is not supported here.")
		return ue
	}
	v.modalOpen = true
	v.state = VoiceRecording
	// an abort while the device opens bumps gen and orphans this attempt
	gen := v.gen
	v.mu.Unlock()

	stream, err := v.source.Open(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	stale := v.gen != gen || v.closed
	if err != nil {
		if stale {
			return newError(ErrorInvalidState, "closed_while_opening", err)
		}
		v.state = VoiceIdle
		var ue *Error
		if errors.Is(err, audio.ErrUnsupported) {
			ue = newError(ErrorVoiceUnsupported, "capture_unsupported", err)
			notifyError(v.notifier, ue, "Voice input is not supported here.")
		} else {
			ue = newError(ErrorVoiceCaptureFailed, "capture_open", err)
			notifyError(v.notifier, ue, "The microphone could not be used. Check the permission and device.")
		}
		return ue
	}
	if stale {
		_ = stream.Close()
		return newError(ErrorInvalidState, "closed_while_opening", nil)
	}
	v.rec = audio.Record(stream, 0)
	v.logger.Debug("voice recording started", "language", v.language)
	return nil
}

// StopRecording releases the microphone and uploads what was captured.
// Nothing is uploaded when no audio was buffered.
func (v *VoiceCapture) StopRecording(ctx context.Context) error {
	v.mu.Lock()
	if v.state != VoiceRecording || v.rec == nil {
		v.mu.Unlock()
		return newError(ErrorInvalidState, "not_recording", nil)
	}
	rec := v.rec
	v.rec = nil
	v.state = VoiceProcessing
	language := v.language
	v.mu.Unlock()

	clip, err := rec.Stop()
	if err != nil {
		v.mu.Lock()
		v.state = VoiceIdle
		v.mu.Unlock()
		ue := newError(ErrorVoiceCaptureFailed, "capture_read", err)
		notifyError(v.notifier, ue, "The recording failed. Please try again.")
		return ue
	}
	if len(clip.Data) == 0 {
		v.mu.Lock()
		v.state = VoiceIdle
		v.mu.Unlock()
		v.logger.Debug("voice recording empty, skipping transcription")
		return nil
	}

	v.mu.Lock()
	if v.state != VoiceProcessing {
		v.mu.Unlock()
		return nil
	}
	uploadCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	gen := v.gen
	v.mu.Unlock()

	text, err := v.tr.Transcribe(uploadCtx, clip, language)
	cancel()

	v.mu.Lock()
	if v.gen != gen {
		// modal closed or torn down while uploading
		v.mu.Unlock()
		return nil
	}
	v.cancel = nil
	v.state = VoiceIdle
	if err != nil {
		v.mu.Unlock()
		v.logger.Warn("voice transcription failed", "language", language, "err", err)
		ue := newError(ErrorTranscriptionFailed, "transcribe", err)
		notifyError(v.notifier, ue, "Your recording could not be transcribed. Please try again.")
		return ue
	}
	v.modalOpen = false
	v.mu.Unlock()

	v.sink.SetDraft(strings.TrimSpace(text))
	return nil
}

// CloseModal hides the modal. An active recording is stopped and discarded;
// an in-flight upload is cancelled and its result ignored.
func (v *VoiceCapture) CloseModal() {
	v.mu.Lock()
	rec := v.abortLocked()
	v.modalOpen = false
	v.mu.Unlock()
	if rec != nil {
		rec.Discard()
	}
}

// Close tears the capture down. It is safe to call more than once.
func (v *VoiceCapture) Close() error {
	v.mu.Lock()
	rec := v.abortLocked()
	v.modalOpen = false
	v.closed = true
	v.mu.Unlock()
	if rec != nil {
		rec.Discard()
	}
	return nil
}

// abortLocked resets to idle and returns a recorder the caller must discard.
func (v *VoiceCapture) abortLocked() *audio.Recorder {
	rec := v.rec
	v.rec = nil
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	if v.state != VoiceIdle {
		v.gen++
	}
	v.state = VoiceIdle
	return rec
}
