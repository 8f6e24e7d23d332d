package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/quka-ai/daybook/pkg/errors"
	"github.com/quka-ai/daybook/pkg/i18n"
	"github.com/quka-ai/daybook/pkg/media/capture"
	"github.com/quka-ai/daybook/pkg/types"
)

const DEFAULT_TIMEOUT = time.Minute

// ObjectStorage is the part of the object storage driver the uploader needs.
type ObjectStorage interface {
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PublicURL(key string) string
}

type Uploader struct {
	storage  ObjectStorage
	inflight cmap.ConcurrentMap[string, struct{}]
	timeout time.Duration
	now     func() time.Time
	observe func(kind types.EntryType, size int, err error)
}

type Option func(*Uploader)

func WithTimeout(d time.Duration) Option {
	return func(u *Uploader) {
		if d > 0 {
			u.timeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(u *Uploader) {
		u.now = now
	}
}

// WithObserver is called after every upload that reached the storage.
func WithObserver(fn func(kind types.EntryType, size int, err error)) Option {
	return func(u *Uploader) {
		u.observe = fn
	}
}

func New(storage ObjectStorage, opts ...Option) *Uploader {
	u := &Uploader{
		storage:  storage,
		inflight: cmap.New[struct{}](),
		timeout: DEFAULT_TIMEOUT,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// ObjectKey builds "{ownerId}/{kind}_{epochMillis}.{ext}".
func ObjectKey(ownerID string, kind types.EntryType, at time.Time) string {
	return fmt.Sprintf("%s/%s_%d.%s", ownerID, kind, at.UnixMilli(), kind.Extension())
}

// Upload stores blob for owner and returns its public url.
// Text entries and empty blobs short-circuit to an empty url without touching the storage.
func (u *Uploader) Upload(ctx context.Context, blob *capture.Blob, ownerID string, kind types.EntryType) (string, error) {
	if kind == types.ENTRY_TYPE_TEXT {
		return "", nil
	}
	if !kind.IsMedia() {
		return "", errors.New("Uploader.Upload.kind", i18n.ERROR_MEDIA_KIND_UNSUPPORT, fmt.Errorf("unknown media kind %q", kind)).Code(http.StatusBadRequest).Kind(errors.ErrInvalid)
	}
	if blob.Size() == 0 {
		slog.Warn("no valid media data to upload", slog.String("owner", ownerID), slog.String("kind", kind.String()))
		return "", nil
	}
	if ownerID == "" {
		return "", errors.New("Uploader.Upload.owner", i18n.ERROR_UNAUTHORIZED, nil).Code(http.StatusUnauthorized).Kind(errors.ErrAuth)
	}

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	key := ObjectKey(ownerID, kind, u.now())
	err := u.put(ctx, key, blob, kind)
	if u.observe != nil {
		u.observe(kind, blob.Size(), err)
	}
	if err != nil {
		return "", err
	}

	url := u.storage.PublicURL(key)
	slog.Debug("media uploaded", slog.String("key", key), slog.String("url", url), slog.Int("size", blob.Size()))
	return url, nil
}

func keyConflict(trace, key string) error {
	return errors.New(trace, i18n.ERROR_STORAGE_OBJECT_EXIST, fmt.Errorf("object %s already exists", key)).Code(http.StatusConflict).Kind(errors.ErrStorage)
}

// put is create-only. The storage has no conditional put, so the Exists check and the Put
// are two calls: uploads racing on one key inside this process are serialized by the
// inflight reservation, across processes the millisecond key is the only guard.
func (u *Uploader) put(ctx context.Context, key string, blob *capture.Blob, kind types.EntryType) error {
	if !u.inflight.SetIfAbsent(key, struct{}{}) {
		return keyConflict("Uploader.Upload.inflight", key)
	}
	defer u.inflight.Remove(key)

	exist, err := u.storage.Exists(ctx, key)
	if err != nil {
		return errors.New("Uploader.Upload.Exists", i18n.ERROR_STORAGE, err).Kind(errors.ErrStorage)
	}
	if exist {
		return keyConflict("Uploader.Upload.Exists.conflict", key)
	}

	if err = u.storage.Put(ctx, key, bytes.NewReader(blob.Data), int64(blob.Size()), kind.ContentType()); err != nil {
		return errors.New("Uploader.Upload.Put", i18n.ERROR_STORAGE, err).Kind(errors.ErrStorage)
	}
	return nil
}
