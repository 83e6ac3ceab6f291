package handler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"meingenie/internal/domain"
	"meingenie/internal/usecase"
)

// Terminal is the line-oriented view. It shows notices, asks yes/no
// questions and records where the usecases navigated to.
type Terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer

	dest      domain.Destination
	navigated bool
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func (t *Terminal) Printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func (t *Terminal) Println(args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, args...)
}

var noticePrefix = map[usecase.NoticeLevel]string{
	usecase.NoticeInfo:      "[info]",
	usecase.NoticeSuccess:   "[ok]",
	usecase.NoticeWarning:   "[warn]",
	usecase.NoticeError:     "[error]",
	usecase.NoticeCelebrate: "[done] *** ",
}

func (t *Terminal) Notify(n usecase.Notice) {
	prefix, ok := noticePrefix[n.Level]
	if !ok {
		prefix = "[" + string(n.Level) + "]"
	}
	t.Printf("%s %s\n", prefix, n.Text)
}

func (t *Terminal) Navigate(_ context.Context, d domain.Destination) {
	t.mu.Lock()
	t.dest = d
	t.navigated = true
	t.mu.Unlock()

	switch d.Page {
	case domain.PageFormReview:
		t.Printf("Your filled form %q is ready:\n  %s\n", d.FileName, d.PDFURL)
	case domain.PageForminoUpload:
		t.Println("Back to document upload. Run `meingenie form` with another document.")
	default:
		t.Printf("-> %s\n", d.Page)
	}
}

// Destination returns the last navigation target, if any.
func (t *Terminal) Destination() (domain.Destination, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dest, t.navigated
}

// Confirm asks prompt and accepts y/yes/j/ja. Anything else, including end
// of input, declines.
func (t *Terminal) Confirm(_ context.Context, prompt string) bool {
	line, err := t.ReadLine(prompt + " [y/N] ")
	if err != nil {
		return false
	}
	switch strings.ToLower(line) {
	case "y", "yes", "j", "ja":
		return true
	default:
		return false
	}
}

// ReadLine prints prompt and returns the next trimmed input line. It returns
// io.EOF once input is exhausted.
func (t *Terminal) ReadLine(prompt string) (string, error) {
	if prompt != "" {
		t.Printf("%s", prompt)
	}
	line, err := t.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
