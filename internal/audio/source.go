// Package audio acquires microphone input and buffers it into clips.
//
// A Source hands out a Stream, which owns the capture device until Close.
// Recorder reads a Stream on its own goroutine and releases it on Stop.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ErrUnsupported means the runtime has no way to capture audio.
var ErrUnsupported = errors.New("audio: capture not supported")

// Stream is a live capture. Close releases the underlying device.
type Stream interface {
	io.Reader
	Close() error
	MIMEType() string
}

// Source opens capture streams.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// CommandSource captures by running an external recorder (arecord, ffmpeg,
// sox ...) that writes encoded audio to stdout.
type CommandSource struct {
	Args []string
	MIME string
	// Grace is how long Close lets the recorder flush after an interrupt
	// before killing it.
	Grace    time.Duration
	lookPath func(string) (string, error)
}

// DefaultCommand records 16 kHz mono WAV with ALSA.
const DefaultCommand = "arecord -q -f S16_LE -r 16000 -c 1 -t wav -"

const defaultGrace = 2 * time.Second

// NewCommandSource parses a whitespace-separated command line.
func NewCommandSource(command, mimeType string) (*CommandSource, error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		return nil, errors.New("audio: capture command must not be empty")
	}
	if mimeType == "" {
		mimeType = "audio/wav"
	}
	return &CommandSource{Args: args, MIME: mimeType, lookPath: exec.LookPath}, nil
}

func (s *CommandSource) Open(ctx context.Context) (Stream, error) {
	lookPath := s.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	bin, err := lookPath(s.Args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrUnsupported, s.Args[0])
	}

	// The process outlives ctx on purpose; it is stopped by Close.
	cmd := exec.Command(bin, s.Args[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("audio: capture pipe: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("audio: start %s: %w", s.Args[0], err)
	}
	grace := s.Grace
	if grace <= 0 {
		grace = defaultGrace
	}
	return &commandStream{cmd: cmd, stdout: stdout, mime: s.MIME, grace: grace, eof: make(chan struct{})}, nil
}

type commandStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	mime   string
	grace  time.Duration

	eof     chan struct{}
	eofOnce sync.Once
	once    sync.Once
}

func (c *commandStream) Read(p []byte) (int, error) {
	n, err := c.stdout.Read(p)
	if err != nil {
		c.eofOnce.Do(func() { close(c.eof) })
	}
	return n, err
}

func (c *commandStream) MIMEType() string { return c.mime }

// Close interrupts the recorder, lets the reader drain what it flushes until
// EOF or the grace period ends, then kills and reaps the process.
func (c *commandStream) Close() error {
	c.once.Do(func() {
		if c.cmd.Process != nil {
			_ = c.cmd.Process.Signal(os.Interrupt)
			timer := time.NewTimer(c.grace)
			select {
			case <-c.eof:
			case <-timer.C:
			}
			timer.Stop()
			_ = c.cmd.Process.Kill()
		}
		_ = c.stdout.Close()
		// exit status after a kill is expected noise
		_ = c.cmd.Wait()
	})
	return nil
}

// FileSource replays a recorded file as if it were captured live.
type FileSource struct {
	Path string
	MIME string
}

func (s FileSource) Open(_ context.Context) (Stream, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %s: %w", s.Path, err)
	}
	mime := s.MIME
	if mime == "" {
		mime = mimeFromPath(s.Path)
	}
	return &fileStream{File: f, mime: mime}, nil
}

type fileStream struct {
	*os.File
	mime string
}

func (f *fileStream) MIMEType() string { return f.mime }

func mimeFromPath(path string) string {
	switch {
	case strings.HasSuffix(path, ".webm"):
		return "audio/webm"
	case strings.HasSuffix(path, ".ogg"), strings.HasSuffix(path, ".opus"):
		return "audio/ogg"
	case strings.HasSuffix(path, ".mp3"):
		return "audio/mpeg"
	default:
		return "audio/wav"
	}
}
