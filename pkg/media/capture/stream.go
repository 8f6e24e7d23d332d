package capture

import (
	"context"
	"io"
	"sync"
	"time"
)

// Constraints selects the tracks requested from a device.
type Constraints struct {
	Audio bool
	Video bool
}

func (c Constraints) String() string {
	if c.Video {
		return "video"
	}
	return "audio"
}

// Stream is a live device stream.
type Stream interface {
	MimeType() string
	// ReadChunk returns the data captured during the next timeslice. It returns io.EOF
	// once the stream has ended and every buffered byte was handed out.
	ReadChunk(ctx context.Context, timeslice time.Duration) ([]byte, error)
	// Stop releases every underlying track. Calling it more than once is allowed.
	Stop() error
}

// Source grants access to device streams.
type Source interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// chanStream slices a channel of raw data into timeslice sized chunks.
type chanStream struct {
	mimeType string
	data     <-chan []byte
	stop     func() error

	mu       sync.Mutex
	err      error
	stopOnce sync.Once
	stopErr  error
}

func newChanStream(mimeType string, data <-chan []byte, stop func() error) *chanStream {
	return &chanStream{
		mimeType: mimeType,
		data:     data,
		stop:     stop,
	}
}

func (s *chanStream) MimeType() string {
	return s.mimeType
}

// fail records the error returned once the data channel is drained.
func (s *chanStream) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *chanStream) endErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	return io.EOF
}

func (s *chanStream) ReadChunk(ctx context.Context, timeslice time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeslice)
	defer timer.Stop()

	var buf []byte
	for {
		select {
		case b, ok := <-s.data:
			if !ok {
				if len(buf) > 0 {
					return buf, nil
				}
				return nil, s.endErr()
			}
			buf = append(buf, b...)
		case <-timer.C:
			return buf, nil
		case <-ctx.Done():
			return buf, ctx.Err()
		}
	}
}

func (s *chanStream) Stop() error {
	s.stopOnce.Do(func() {
		if s.stop != nil {
			s.stopErr = s.stop()
		}
	})
	return s.stopErr
}
