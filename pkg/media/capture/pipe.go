package capture

import (
	"context"
	"errors"
	"sync"
)

var ErrPipeClosed = errors.New("pipe closed")

// Pipe is a Source fed by a remote peer, e.g. a browser streaming MediaRecorder chunks
// over a websocket. Push delivers data, CloseWrite ends the stream.
type Pipe struct {
	mimeType string
	ch       chan []byte
	done     chan struct{}

	mu        sync.RWMutex
	opened    bool
	closed    bool
	closeOnce sync.Once
}

func NewPipe(mimeType string, buffer int) *Pipe {
	if buffer <= 0 {
		buffer = 16
	}
	return &Pipe{
		mimeType: mimeType,
		ch:       make(chan []byte, buffer),
		done:     make(chan struct{}),
	}
}

// Open hands out the single stream of the pipe.
func (p *Pipe) Open(ctx context.Context, c Constraints) (Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPipeClosed
	}
	if p.opened {
		return nil, errors.New("pipe stream already opened")
	}
	p.opened = true

	return newChanStream(p.mimeType, p.ch, func() error {
		p.CloseWrite()
		return nil
	}), nil
}

// Push blocks until the chunk is buffered, the pipe is closed or ctx is done.
func (p *Pipe) Push(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPipeClosed
	}

	select {
	case p.ch <- chunk:
		return nil
	case <-p.done:
		return ErrPipeClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseWrite ends the stream. Chunks already buffered are still delivered to the reader.
func (p *Pipe) CloseWrite() {
	p.closeOnce.Do(func() {
		// release pending pushes before taking the write lock
		close(p.done)
		p.mu.Lock()
		p.closed = true
		close(p.ch)
		p.mu.Unlock()
	})
}
