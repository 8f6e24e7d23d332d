package v1

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/quka-ai/daybook/app/core"
	"github.com/quka-ai/daybook/pkg/errors"
	"github.com/quka-ai/daybook/pkg/i18n"
	"github.com/quka-ai/daybook/pkg/journal"
	"github.com/quka-ai/daybook/pkg/media/capture"
	"github.com/quka-ai/daybook/pkg/types"
	"github.com/quka-ai/daybook/pkg/utils"
)

type MediaLogic struct {
	UserInfo
	ctx      context.Context
	uploader journal.MediaUploader
	maxSize  int64
}

func NewMediaLogic(ctx context.Context, core *core.Core) *MediaLogic {
	var uploader journal.MediaUploader
	if u := core.Uploader(); u != nil {
		uploader = u
	}
	return newMediaLogic(ctx, uploader, core.Cfg().Media.MaxUploadBytes())
}

func newMediaLogic(ctx context.Context, uploader journal.MediaUploader, maxSize int64) *MediaLogic {
	return &MediaLogic{
		UserInfo: SetupUserInfo(ctx),
		ctx:      ctx,
		uploader: uploader,
		maxSize:  maxSize,
	}
}

func checkMediaKind(trace string, kind types.EntryType) error {
	if !kind.IsMedia() {
		return errors.New(trace, i18n.ERROR_MEDIA_KIND_UNSUPPORT, fmt.Errorf("unsupported media kind %q", kind)).Code(http.StatusBadRequest).Kind(errors.ErrInvalid)
	}
	return nil
}

func (l *MediaLogic) checkUploader(trace string) error {
	if l.uploader == nil {
		return errors.New(trace, i18n.ERROR_STORAGE, fmt.Errorf("object storage is not configured")).Code(http.StatusServiceUnavailable).Kind(errors.ErrStorage)
	}
	return nil
}

// UploadFile 上传一个完整的媒体文件，返回可公开访问的 url
func (l *MediaLogic) UploadFile(kind types.EntryType, file *multipart.FileHeader) (string, error) {
	userID, err := l.RequireUser("MediaLogic.UploadFile.RequireUser")
	if err != nil {
		return "", err
	}
	if err = checkMediaKind("MediaLogic.UploadFile.kind", kind); err != nil {
		return "", err
	}
	if err = l.checkUploader("MediaLogic.UploadFile.uploader"); err != nil {
		return "", err
	}
	if file.Size > l.maxSize {
		return "", errors.New("MediaLogic.UploadFile.size", i18n.ERROR_MORE_TAHN_MAX, nil).Code(http.StatusRequestEntityTooLarge).Kind(errors.ErrInvalid)
	}

	f, err := file.Open()
	if err != nil {
		return "", errors.New("MediaLogic.UploadFile.Open", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest).Kind(errors.ErrInvalid)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, l.maxSize+1))
	if err != nil {
		return "", errors.New("MediaLogic.UploadFile.ReadAll", i18n.ERROR_INTERNAL, err)
	}
	if int64(len(data)) > l.maxSize {
		return "", errors.New("MediaLogic.UploadFile.size", i18n.ERROR_MORE_TAHN_MAX, nil).Code(http.StatusRequestEntityTooLarge).Kind(errors.ErrInvalid)
	}

	contentType := utils.CleanContentType(file.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = kind.ContentType()
	}

	url, err := l.uploader.Upload(l.ctx, capture.NewBlob([][]byte{data}, contentType), userID, kind)
	if err != nil {
		return "", errors.Trace("MediaLogic.UploadFile.Upload", err)
	}
	return url, nil
}

// RecordingRegistry 每个用户同时只允许一个进行中的录制
type RecordingRegistry struct {
	sessions  cmap.ConcurrentMap[string, *RecordingSession]
	timeSlice time.Duration
	OnStart   func(kind string)
	OnStop    func(kind string)
}

func NewRecordingRegistry(timeSlice time.Duration) *RecordingRegistry {
	return &RecordingRegistry{
		sessions:  cmap.New[*RecordingSession](),
		timeSlice: timeSlice,
	}
}

func (r *RecordingRegistry) Active(userID string) bool {
	return r.sessions.Has(userID)
}

func (r *RecordingRegistry) release(sess *RecordingSession) {
	removed := r.sessions.RemoveCb(sess.owner, func(key string, v *RecordingSession, exists bool) bool {
		return exists && v == sess
	})
	if removed && r.OnStop != nil {
		r.OnStop(sess.Kind.String())
	}
}

// RecordingSession 由客户端通过 websocket 推送分片，结束时合并为一个 blob
type RecordingSession struct {
	ID   string
	Kind types.EntryType

	owner    string
	maxSize  int64
	pipe     *capture.Pipe
	recorder *capture.Recorder
	registry *RecordingRegistry

	received  int64
	stopped   chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	lastErr error
}

func (s *RecordingSession) Push(ctx context.Context, data []byte) error {
	s.received += int64(len(data))
	if s.received > s.maxSize {
		return errors.New("RecordingSession.Push.size", i18n.ERROR_MORE_TAHN_MAX, nil).Code(http.StatusRequestEntityTooLarge).Kind(errors.ErrInvalid)
	}
	if err := s.pipe.Push(ctx, data); err != nil {
		return errors.New("RecordingSession.Push", i18n.ERROR_CAPTURE, err).Kind(errors.ErrCapture)
	}
	return nil
}

// finish 结束写入并等待已缓冲的分片全部落入 recorder
func (s *RecordingSession) finish(ctx context.Context) (*capture.Blob, error) {
	defer s.registry.release(s)

	s.pipe.CloseWrite()
	select {
	case <-s.stopped:
	case <-ctx.Done():
		s.recorder.Stop()
	}

	blob := s.recorder.Blob()
	s.mu.Lock()
	err := s.lastErr
	s.mu.Unlock()
	if blob.Size() == 0 && err != nil {
		return nil, errors.Trace("RecordingSession.finish", err)
	}
	return blob, nil
}

// Abort 丢弃录制内容
func (s *RecordingSession) Abort() {
	s.recorder.Stop()
	s.registry.release(s)
}

type RecordLogic struct {
	*MediaLogic
	registry *RecordingRegistry
}

func NewRecordLogic(ctx context.Context, core *core.Core, registry *RecordingRegistry) *RecordLogic {
	return &RecordLogic{
		MediaLogic: NewMediaLogic(ctx, core),
		registry:   registry,
	}
}

func (l *RecordLogic) StartRecording(kind types.EntryType, mimeType string) (*RecordingSession, error) {
	userID, err := l.RequireUser("RecordLogic.StartRecording.RequireUser")
	if err != nil {
		return nil, err
	}
	if err = checkMediaKind("RecordLogic.StartRecording.kind", kind); err != nil {
		return nil, err
	}
	if err = l.checkUploader("RecordLogic.StartRecording.uploader"); err != nil {
		return nil, err
	}
	if mimeType == "" {
		mimeType = kind.ContentType()
	}

	sess := &RecordingSession{
		ID:       utils.GenRandomID(),
		Kind:     kind,
		owner:    userID,
		maxSize:  l.maxSize,
		pipe:     capture.NewPipe(mimeType, 32),
		registry: l.registry,
		stopped:  make(chan struct{}),
	}
	if !l.registry.sessions.SetIfAbsent(userID, sess) {
		return nil, errors.New("RecordLogic.StartRecording.registry", i18n.ERROR_CAPTURE_BUSY, nil).Code(http.StatusConflict).Kind(errors.ErrCapture)
	}

	sess.recorder = capture.NewRecorder(sess.pipe, capture.Options{
		TimeSlice: l.registry.timeSlice,
		OnStop: func() {
			sess.closeOnce.Do(func() { close(sess.stopped) })
		},
		OnError: func(err error) {
			sess.mu.Lock()
			sess.lastErr = err
			sess.mu.Unlock()
		},
	})

	start := sess.recorder.StartAudio
	if kind == types.ENTRY_TYPE_VIDEO {
		start = sess.recorder.StartVideo
	}
	if err = start(l.ctx); err != nil {
		l.registry.sessions.Remove(userID)
		return nil, errors.Trace("RecordLogic.StartRecording", err)
	}
	if l.registry.OnStart != nil {
		l.registry.OnStart(kind.String())
	}

	slog.Debug("websocket recording started", slog.String("session", sess.ID), slog.String("user", userID), slog.String("kind", kind.String()))
	return sess, nil
}

type RecordResult struct {
	URL  string `json:"url"`
	Size int    `json:"size"`
}

// FinishRecording 合并分片并上传，空录制返回空 url
func (l *RecordLogic) FinishRecording(sess *RecordingSession) (RecordResult, error) {
	blob, err := sess.finish(l.ctx)
	if err != nil {
		return RecordResult{}, err
	}

	url, err := l.uploader.Upload(l.ctx, blob, sess.owner, sess.Kind)
	if err != nil {
		return RecordResult{}, errors.Trace("RecordLogic.FinishRecording.Upload", err)
	}
	return RecordResult{URL: url, Size: blob.Size()}, nil
}
