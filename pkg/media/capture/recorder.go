package capture

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quka-ai/daybook/pkg/errors"
	"github.com/quka-ai/daybook/pkg/i18n"
	"github.com/quka-ai/daybook/pkg/safe"
)

const (
	DEFAULT_TIME_SLICE   = time.Second
	DEFAULT_STOP_TIMEOUT = 5 * time.Second
)

type Options struct {
	// TimeSlice is how often a chunk is pulled from the stream, 1s by default.
	TimeSlice time.Duration
	// OnDataAvailable receives every non-empty chunk and, on stop, the final blob.
	OnDataAvailable func(*Blob)
	OnStart         func()
	OnStop          func()
	OnError         func(error)
	// ChunkBuffer > 0 enables Chunks(). The recorder blocks on a full channel until the
	// consumer catches up or the session stops.
	ChunkBuffer int
	// StopTimeout bounds how long Stop waits for the stream to drain, 5s by default.
	// Chunks still pending after it are dropped.
	StopTimeout time.Duration
}

// Recorder owns at most one recording session at a time.
type Recorder struct {
	source Source
	opts   Options

	mu       sync.Mutex
	starting bool
	session  *session
	chunks   [][]byte
	mimeType string
}

type session struct {
	id     string
	kind   Constraints
	stream Stream
	cancel context.CancelFunc
	done   chan struct{}
	out    chan []byte
	once   sync.Once
}

func NewRecorder(source Source, opts Options) *Recorder {
	if opts.TimeSlice <= 0 {
		opts.TimeSlice = DEFAULT_TIME_SLICE
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DEFAULT_STOP_TIMEOUT
	}
	return &Recorder{
		source: source,
		opts:   opts,
	}
}

func (r *Recorder) StartAudio(ctx context.Context) error {
	return r.start(ctx, Constraints{Audio: true})
}

func (r *Recorder) StartVideo(ctx context.Context) error {
	return r.start(ctx, Constraints{Audio: true, Video: true})
}

func (r *Recorder) start(ctx context.Context, c Constraints) error {
	r.mu.Lock()
	if r.session != nil || r.starting {
		r.mu.Unlock()
		return errors.New("Recorder.Start.session", i18n.ERROR_CAPTURE_BUSY, stderrors.New("recording already in progress")).Code(http.StatusConflict).Kind(errors.ErrCapture)
	}
	r.starting = true
	r.mu.Unlock()

	stream, err := r.source.Open(ctx, c)

	r.mu.Lock()
	r.starting = false
	if err != nil {
		r.mu.Unlock()
		slog.Error("failed to start recording", slog.String("kind", c.String()), slog.String("error", err.Error()))
		r.reportError(err)
		return errors.New("Recorder.Start.Source.Open", i18n.ERROR_CAPTURE, err).Kind(errors.ErrCapture)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:     uuid.NewString(),
		kind:   c,
		stream: stream,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if r.opts.ChunkBuffer > 0 {
		sess.out = make(chan []byte, r.opts.ChunkBuffer)
	}

	r.session = sess
	r.chunks = nil
	r.mimeType = stream.MimeType()
	r.mu.Unlock()

	slog.Debug("recording started", slog.String("session", sess.id), slog.String("kind", c.String()), slog.String("mime_type", stream.MimeType()))
	if r.opts.OnStart != nil {
		r.opts.OnStart()
	}

	safe.Go("capture.Recorder", func() {
		r.run(runCtx, sess)
	}, func(err error) {
		r.reportError(errors.New("Recorder.run", i18n.ERROR_CAPTURE, err).Kind(errors.ErrCapture))
	})
	return nil
}

func (r *Recorder) run(ctx context.Context, sess *session) {
	defer close(sess.done)

	for {
		data, err := sess.stream.ReadChunk(ctx, r.opts.TimeSlice)
		if len(data) > 0 {
			r.appendChunk(ctx, sess, data)
		}
		if err == nil {
			continue
		}

		if ctx.Err() != nil {
			// Stop finalizes
			return
		}
		if !stderrors.Is(err, io.EOF) {
			slog.Error("recording stream failed", slog.String("session", sess.id), slog.String("error", err.Error()))
			r.reportError(errors.New("Recorder.run.ReadChunk", i18n.ERROR_CAPTURE, err).Kind(errors.ErrCapture))
		}
		r.finalize(sess)
		return
	}
}

func (r *Recorder) appendChunk(ctx context.Context, sess *session, data []byte) {
	r.mu.Lock()
	r.chunks = append(r.chunks, data)
	mimeType := r.mimeType
	r.mu.Unlock()

	if r.opts.OnDataAvailable != nil {
		r.opts.OnDataAvailable(&Blob{Data: data, ContentType: mimeType})
	}
	if sess.out != nil {
		select {
		case sess.out <- data:
		case <-ctx.Done():
		}
	}
}

func (r *Recorder) reportError(err error) {
	if r.opts.OnError != nil {
		r.opts.OnError(err)
	}
}

// Stop ends the active session, releases the device and emits the final blob.
// Every chunk the stream produced before it ended is part of the final blob.
// Without an active session it does nothing.
func (r *Recorder) Stop() {
	r.mu.Lock()
	sess := r.session
	r.mu.Unlock()
	if sess == nil {
		return
	}

	// 先结束写入，run 读到 EOF 后自行 finalize
	if err := sess.stream.Stop(); err != nil {
		slog.Warn("failed to stop recording stream", slog.String("session", sess.id), slog.String("error", err.Error()))
	}

	timer := time.NewTimer(r.opts.StopTimeout)
	defer timer.Stop()
	select {
	case <-sess.done:
	case <-timer.C:
		slog.Warn("recording stream did not drain in time, dropping pending chunks", slog.String("session", sess.id))
		sess.cancel()
		<-sess.done
	}
	r.finalize(sess)
}

func (r *Recorder) finalize(sess *session) {
	sess.once.Do(func() {
		if err := sess.stream.Stop(); err != nil {
			slog.Warn("failed to release recording stream", slog.String("session", sess.id), slog.String("error", err.Error()))
		}
		sess.cancel()

		r.mu.Lock()
		if r.session == sess {
			r.session = nil
		}
		final := NewBlob(r.chunks, r.mimeType)
		r.mu.Unlock()

		if sess.out != nil {
			close(sess.out)
		}

		slog.Debug("recording stopped", slog.String("session", sess.id), slog.Int("size", final.Size()))
		if r.opts.OnDataAvailable != nil {
			r.opts.OnDataAvailable(final)
		}
		if r.opts.OnStop != nil {
			r.opts.OnStop()
		}
	})
}

// Blob returns every chunk collected so far, nil when nothing was recorded yet.
func (r *Recorder) Blob() *Blob {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.chunks) == 0 {
		return nil
	}
	return NewBlob(r.chunks, r.mimeType)
}

// Stream returns the live stream for previews, nil when no session is active.
func (r *Recorder) Stream() Stream {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil
	}
	return r.session.stream
}

// Chunks returns the chunk channel of the active session. It is closed when the session
// ends and is nil when ChunkBuffer is not set or nothing is recording.
func (r *Recorder) Chunks() <-chan []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil || r.session.out == nil {
		return nil
	}
	return r.session.out
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil
}
