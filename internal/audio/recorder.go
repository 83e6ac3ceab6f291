package audio

import (
	"bytes"
	"errors"
	"io"
	"os"
	"sync"

	"meingenie/internal/domain"
)

const defaultChunkSize = 16 * 1024

// Recorder buffers a Stream into ordered chunks until stopped.
type Recorder struct {
	stream    Stream
	chunkSize int

	mu      sync.Mutex
	chunks  [][]byte
	readErr error
	stopped bool

	done chan struct{}
}

// Record starts buffering stream on a new goroutine. The Recorder owns the
// stream from here on; Stop or Discard must be called exactly once.
func Record(stream Stream, chunkSize int) *Recorder {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	r := &Recorder{stream: stream, chunkSize: chunkSize, done: make(chan struct{})}
	go r.loop()
	return r
}

func (r *Recorder) loop() {
	defer close(r.done)
	for {
		buf := make([]byte, r.chunkSize)
		n, err := r.stream.Read(buf)
		if n > 0 {
			r.mu.Lock()
			r.chunks = append(r.chunks, buf[:n])
			r.mu.Unlock()
		}
		if err != nil {
			r.mu.Lock()
			if !r.stopped && !errors.Is(err, io.EOF) {
				r.readErr = err
			}
			r.mu.Unlock()
			return
		}
	}
}

// Done is closed once the stream ends on its own or after release. Finite
// sources (files) use it to wait for the whole input.
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

// Stop releases the stream, waits for the reader to finish and returns the
// buffered chunks joined into one clip.
func (r *Recorder) Stop() (domain.AudioClip, error) {
	r.release()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return domain.AudioClip{}, r.readErr
	}
	return domain.AudioClip{Data: bytes.Join(r.chunks, nil), MIMEType: r.stream.MIMEType()}, nil
}

// Discard releases the stream and drops anything buffered.
func (r *Recorder) Discard() {
	r.release()
	r.mu.Lock()
	r.chunks = nil
	r.mu.Unlock()
}

func (r *Recorder) release() {
	r.mu.Lock()
	already := r.stopped
	r.stopped = true
	r.mu.Unlock()
	if already {
		<-r.done
		return
	}
	if err := r.stream.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		r.mu.Lock()
		if r.readErr == nil {
			r.readErr = err
		}
		r.mu.Unlock()
	}
	<-r.done
}
