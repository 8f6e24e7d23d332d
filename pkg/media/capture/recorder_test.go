package capture

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/quka-ai/daybook/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type failingSource struct {
	err error
}

func (s failingSource) Open(ctx context.Context, c Constraints) (Stream, error) {
	return nil, s.err
}

// brokenStream yields one chunk then fails like a device that was unplugged.
type brokenStream struct {
	mu      sync.Mutex
	reads   int
	stopped bool
}

func (s *brokenStream) MimeType() string { return "audio/ogg" }

func (s *brokenStream) ReadChunk(ctx context.Context, timeslice time.Duration) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.reads == 1 {
		return []byte("first"), nil
	}
	return nil, stderrors.New("device unplugged")
}

func (s *brokenStream) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return nil
}

type streamSource struct {
	stream Stream
}

func (s streamSource) Open(ctx context.Context, c Constraints) (Stream, error) {
	return s.stream, nil
}

type events struct {
	mu     sync.Mutex
	starts int
	stops  int
	errs   []error
	blobs  []*Blob
	stopCh chan struct{}
}

func newEvents() *events {
	return &events{stopCh: make(chan struct{}, 1)}
}

func (e *events) options() Options {
	return Options{
		TimeSlice: 10 * time.Millisecond,
		OnStart: func() {
			e.mu.Lock()
			e.starts++
			e.mu.Unlock()
		},
		OnStop: func() {
			e.mu.Lock()
			e.stops++
			e.mu.Unlock()
			e.stopCh <- struct{}{}
		},
		OnError: func(err error) {
			e.mu.Lock()
			e.errs = append(e.errs, err)
			e.mu.Unlock()
		},
		OnDataAvailable: func(b *Blob) {
			e.mu.Lock()
			e.blobs = append(e.blobs, b)
			e.mu.Unlock()
		},
	}
}

func (e *events) waitStop(t *testing.T) {
	select {
	case <-e.stopCh:
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not stop")
	}
}

func TestStartThenImmediateStop(t *testing.T) {
	ev := newEvents()
	r := NewRecorder(NewPipe("audio/webm", 4), ev.options())

	require.NoError(t, r.StartAudio(context.Background()))
	assert.True(t, r.Recording())
	assert.NotNil(t, r.Stream())

	r.Stop()
	ev.waitStop(t)

	assert.Nil(t, r.Blob())
	assert.Nil(t, r.Stream())
	assert.False(t, r.Recording())
	assert.Equal(t, 1, ev.starts)
	assert.Equal(t, 1, ev.stops)
	require.Len(t, ev.blobs, 1)
	assert.Equal(t, 0, ev.blobs[0].Size())
}

func TestStopWithoutSessionIsNoop(t *testing.T) {
	ev := newEvents()
	r := NewRecorder(NewPipe("audio/webm", 4), ev.options())

	r.Stop()
	r.Stop()

	assert.Equal(t, 0, ev.stops)
	assert.Nil(t, r.Blob())
}

func TestChunksAccumulateInOrder(t *testing.T) {
	ev := newEvents()
	pipe := NewPipe("audio/webm", 4)
	r := NewRecorder(pipe, ev.options())
	require.NoError(t, r.StartAudio(context.Background()))

	ctx := context.Background()
	for _, c := range []string{"a", "b", "", "c"} {
		require.NoError(t, pipe.Push(ctx, []byte(c)))
	}
	pipe.CloseWrite()
	ev.waitStop(t)

	blob := r.Blob()
	require.NotNil(t, blob)
	assert.Equal(t, "abc", string(blob.Data))
	assert.Equal(t, "audio/webm", blob.ContentType)

	// the last blob handed to the observer is the final concatenation
	ev.mu.Lock()
	final := ev.blobs[len(ev.blobs)-1]
	for _, b := range ev.blobs {
		assert.NotZero(t, b.Size())
	}
	ev.mu.Unlock()
	assert.Equal(t, "abc", string(final.Data))

	// the session ended by itself, Stop stays a no-op
	r.Stop()
	assert.Equal(t, 1, ev.stops)
}

func TestStartWhileRecordingIsRejected(t *testing.T) {
	ev := newEvents()
	r := NewRecorder(NewPipe("audio/webm", 4), ev.options())
	require.NoError(t, r.StartAudio(context.Background()))

	err := r.StartVideo(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCapture))

	r.Stop()
	ev.waitStop(t)
	assert.Equal(t, 1, ev.starts)
}

func TestDeviceFailureLeavesNoSession(t *testing.T) {
	ev := newEvents()
	denied := stderrors.New("permission denied")
	r := NewRecorder(failingSource{err: denied}, ev.options())

	err := r.StartVideo(context.Background())
	assert.True(t, errors.Is(err, errors.ErrCapture))
	assert.True(t, errors.Is(err, denied))

	assert.False(t, r.Recording())
	assert.Nil(t, r.Stream())
	assert.Nil(t, r.Blob())
	assert.Equal(t, 0, ev.starts)
	require.Len(t, ev.errs, 1)
	assert.Equal(t, denied, ev.errs[0])

	// caller retries explicitly
	err = r.StartAudio(context.Background())
	assert.Error(t, err)
	assert.Len(t, ev.errs, 2)
}

func TestStreamFailureFinalizesSession(t *testing.T) {
	ev := newEvents()
	stream := &brokenStream{}
	r := NewRecorder(streamSource{stream: stream}, ev.options())
	require.NoError(t, r.StartAudio(context.Background()))
	ev.waitStop(t)

	assert.False(t, r.Recording())
	assert.True(t, stream.stopped)
	require.Len(t, ev.errs, 1)
	assert.True(t, errors.Is(ev.errs[0], errors.ErrCapture))
	assert.Equal(t, "first", string(r.Blob().Data))
	assert.Equal(t, "audio/ogg", r.Blob().ContentType)
}

func TestChunksChannel(t *testing.T) {
	pipe := NewPipe("video/mp4", 4)
	r := NewRecorder(pipe, Options{TimeSlice: 5 * time.Millisecond, ChunkBuffer: 8})
	require.NoError(t, r.StartVideo(context.Background()))

	ch := r.Chunks()
	require.NotNil(t, ch)

	require.NoError(t, pipe.Push(context.Background(), []byte("frame")))

	var got []byte
	select {
	case c := <-ch:
		got = c
	case <-time.After(2 * time.Second):
		t.Fatal("no chunk received")
	}
	assert.Equal(t, "frame", string(got))

	r.Stop()
	_, open := <-ch
	assert.False(t, open)
	assert.Nil(t, r.Chunks())
}

func TestPipePushAfterClose(t *testing.T) {
	pipe := NewPipe("audio/webm", 1)
	pipe.CloseWrite()
	pipe.CloseWrite()

	assert.ErrorIs(t, pipe.Push(context.Background(), []byte("x")), ErrPipeClosed)
	_, err := pipe.Open(context.Background(), Constraints{Audio: true})
	assert.ErrorIs(t, err, ErrPipeClosed)
}

func TestStopKeepsBufferedChunks(t *testing.T) {
	for i := 0; i < 50; i++ {
		ev := newEvents()
		pipe := NewPipe("audio/webm", 16)
		r := NewRecorder(pipe, ev.options())
		require.NoError(t, r.StartAudio(context.Background()))

		for j := 0; j < 8; j++ {
			require.NoError(t, pipe.Push(context.Background(), []byte{byte(j), byte(j)}))
		}
		r.Stop()

		blob := r.Blob()
		require.NotNil(t, blob)
		assert.Equal(t, 16, blob.Size())
		assert.Equal(t, []byte{0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6, 7, 7}, blob.Data)

		ev.mu.Lock()
		final := ev.blobs[len(ev.blobs)-1]
		stops := ev.stops
		ev.mu.Unlock()
		assert.Equal(t, 16, final.Size())
		assert.Equal(t, 1, stops)
		assert.False(t, r.Recording())
	}
}

// stuckStream never ends on its own, only the recorder context releases it.
type stuckStream struct {
	once  sync.Once
	first chan struct{}
}

func (s *stuckStream) MimeType() string { return "audio/webm" }

func (s *stuckStream) ReadChunk(ctx context.Context, timeslice time.Duration) ([]byte, error) {
	sent := false
	s.once.Do(func() { sent = true })
	if sent {
		close(s.first)
		return []byte("early"), nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *stuckStream) Stop() error { return nil }

func TestStopFallsBackWhenStreamNeverEnds(t *testing.T) {
	ev := newEvents()
	opts := ev.options()
	opts.StopTimeout = 20 * time.Millisecond
	stream := &stuckStream{first: make(chan struct{})}
	r := NewRecorder(streamSource{stream: stream}, opts)
	require.NoError(t, r.StartAudio(context.Background()))

	select {
	case <-stream.first:
	case <-time.After(2 * time.Second):
		t.Fatal("first chunk not read")
	}
	r.Stop()

	assert.False(t, r.Recording())
	assert.Equal(t, 1, ev.stops)
	require.NotNil(t, r.Blob())
	assert.Eventually(t, func() bool { return string(r.Blob().Data) == "early" }, time.Second, 5*time.Millisecond)
}
