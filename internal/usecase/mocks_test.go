package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"meingenie/internal/domain"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordingNotifier) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) codes() []ErrorCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ErrorCode
	for _, n := range r.notices {
		if n.Code != "" {
			out = append(out, n.Code)
		}
	}
	return out
}

func (r *recordingNotifier) levels() []NoticeLevel {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []NoticeLevel
	for _, n := range r.notices {
		out = append(out, n.Level)
	}
	return out
}

type recordingNavigator struct {
	dests []domain.Destination
}

func (r *recordingNavigator) Navigate(_ context.Context, d domain.Destination) {
	r.dests = append(r.dests, d)
}

type stubConfirmer struct {
	answer  bool
	prompts []string
}

func (s *stubConfirmer) Confirm(_ context.Context, prompt string) bool {
	s.prompts = append(s.prompts, prompt)
	return s.answer
}

func expectUsecaseError(t *testing.T, err error, code ErrorCode, reason string) *Error {
	t.Helper()
	var usecaseErr *Error
	require.ErrorAs(t, err, &usecaseErr)
	require.Equal(t, code, usecaseErr.Code)
	if reason != "" {
		require.Equal(t, reason, usecaseErr.Reason)
	}
	return usecaseErr
}

// sequentialIDs makes message ids deterministic.
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("m%d", n)
	}
}

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
