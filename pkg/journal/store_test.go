package journal

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/daybook/pkg/errors"
	"github.com/quka-ai/daybook/pkg/media/capture"
	"github.com/quka-ai/daybook/pkg/security"
	"github.com/quka-ai/daybook/pkg/types"
)

// memoryRemote mimics the owner scoped entry table.
type memoryRemote struct {
	mu      sync.Mutex
	nextID  int
	rows    map[string]types.Entry
	calls   int
	failErr error
}

func newMemoryRemote(nextID int) *memoryRemote {
	return &memoryRemote{nextID: nextID, rows: map[string]types.Entry{}}
}

func (m *memoryRemote) ListByOwner(ctx context.Context, userID string) ([]types.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failErr != nil {
		return nil, m.failErr
	}
	var res []types.Entry
	for _, v := range m.rows {
		if v.UserID == userID {
			res = append(res, v)
		}
	}
	return res, nil
}

func (m *memoryRemote) Insert(ctx context.Context, entry types.Entry) (types.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failErr != nil {
		return types.Entry{}, m.failErr
	}
	entry.ID = strconv.Itoa(m.nextID)
	m.nextID++
	entry.CreatedAt = time.Now().Unix()
	entry.UpdatedAt = entry.CreatedAt
	m.rows[entry.ID] = entry
	return entry, nil
}

func (m *memoryRemote) Update(ctx context.Context, entry types.Entry) (types.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failErr != nil {
		return types.Entry{}, m.failErr
	}
	old, ok := m.rows[entry.ID]
	if !ok || old.UserID != entry.UserID {
		return types.Entry{}, sql.ErrNoRows
	}
	entry.UpdatedAt = time.Now().Unix()
	m.rows[entry.ID] = entry
	return entry, nil
}

func (m *memoryRemote) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failErr != nil {
		return m.failErr
	}
	old, ok := m.rows[id]
	if !ok || old.UserID != userID {
		return sql.ErrNoRows
	}
	delete(m.rows, id)
	return nil
}

func (m *memoryRemote) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func signedIn(t *testing.T, remote *memoryRemote, id string) *Store {
	s := NewStore(remote, WithLocation(time.UTC))
	require.NoError(t, s.SetPrincipal(context.Background(), &security.Principal{ID: id}))
	return s
}

func TestCreatePrependsStoredEntry(t *testing.T) {
	remote := newMemoryRemote(100)
	s := signedIn(t, remote, "u1")
	ctx := context.Background()

	_, err := s.Create(ctx, types.EntryDraft{Title: "first", Date: time.Now()})
	require.NoError(t, err)

	created, err := s.Create(ctx, types.EntryDraft{
		Title: "  Morning  ",
		Tags:  []string{"Calm", "calm", " "},
		Type:  types.ENTRY_TYPE_TEXT,
		Date:  time.Date(2025, 4, 10, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "101", created.ID)
	assert.Equal(t, "u1", created.UserID)
	assert.Equal(t, "Morning", created.Title)
	assert.Equal(t, types.Tags{"calm"}, created.Tags)
	assert.Equal(t, types.DEFAULT_WALLPAPER, created.Wallpaper)

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "101", entries[0].ID)
}

func TestCreateWithoutPrincipal(t *testing.T) {
	remote := newMemoryRemote(1)
	s := NewStore(remote)

	_, err := s.Create(context.Background(), types.EntryDraft{Title: "x"})
	assert.True(t, errors.Is(err, errors.ErrAuth))
	assert.Equal(t, 0, remote.callCount())
	assert.Empty(t, s.Entries())
}

func TestCreateRejectsInvalidDraft(t *testing.T) {
	remote := newMemoryRemote(1)
	s := signedIn(t, remote, "u1")
	before := remote.callCount()

	_, err := s.Create(context.Background(), types.EntryDraft{Title: "   "})
	assert.True(t, errors.Is(err, errors.ErrInvalid))

	_, err = s.Create(context.Background(), types.EntryDraft{Title: "t", Type: types.ENTRY_TYPE_TEXT, MediaURL: "https://x/y.webm"})
	assert.True(t, errors.Is(err, errors.ErrInvalid))

	assert.Equal(t, before, remote.callCount())
}

func TestRemoteFailureLeavesStateUntouched(t *testing.T) {
	remote := newMemoryRemote(1)
	s := signedIn(t, remote, "u1")
	entry, err := s.Create(context.Background(), types.EntryDraft{Title: "keep"})
	require.NoError(t, err)

	remote.failErr = stderrors.New("connection reset")

	_, err = s.Create(context.Background(), types.EntryDraft{Title: "lost"})
	assert.True(t, errors.Is(err, errors.ErrRemote))

	entry.Title = "changed"
	_, err = s.Update(context.Background(), entry)
	assert.True(t, errors.Is(err, errors.ErrRemote))

	assert.True(t, errors.Is(s.Delete(context.Background(), entry.ID), errors.ErrRemote))

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "keep", entries[0].Title)
}

func TestUpdateForeignEntry(t *testing.T) {
	remote := newMemoryRemote(1)
	other := signedIn(t, remote, "u2")
	foreign, err := other.Create(context.Background(), types.EntryDraft{Title: "not yours"})
	require.NoError(t, err)

	s := signedIn(t, remote, "u1")
	before := remote.callCount()

	foreign.Title = "hijacked"
	_, err = s.Update(context.Background(), foreign)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Equal(t, before, remote.callCount())
	assert.Empty(t, s.Entries())

	remote.mu.Lock()
	assert.Equal(t, "not yours", remote.rows[foreign.ID].Title)
	remote.mu.Unlock()
}

func TestUpdateReplacesLocalCopyAndSelection(t *testing.T) {
	remote := newMemoryRemote(1)
	s := signedIn(t, remote, "u1")
	entry, err := s.Create(context.Background(), types.EntryDraft{Title: "draft", Tags: []string{"a"}})
	require.NoError(t, err)
	require.True(t, s.Select(entry.ID))

	entry.Title = "final"
	entry.Tags = entry.Tags.Add("B")
	entry.UserID = "someone-else"
	updated, err := s.Update(context.Background(), entry)
	require.NoError(t, err)

	assert.Equal(t, "u1", updated.UserID)
	assert.Equal(t, types.Tags{"a", "b"}, updated.Tags)

	current, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "final", current.Title)
	assert.Equal(t, "final", s.Entries()[0].Title)
}

func TestDeleteTwice(t *testing.T) {
	remote := newMemoryRemote(1)
	s := signedIn(t, remote, "u1")
	entry, err := s.Create(context.Background(), types.EntryDraft{Title: "gone soon"})
	require.NoError(t, err)
	s.Select(entry.ID)

	require.NoError(t, s.Delete(context.Background(), entry.ID))
	assert.Empty(t, s.Entries())
	_, ok := s.Current()
	assert.False(t, ok)

	before := remote.callCount()
	err = s.Delete(context.Background(), entry.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Equal(t, before, remote.callCount())
}

func TestForDateUsesCalendarDay(t *testing.T) {
	remote := newMemoryRemote(1)
	s := signedIn(t, remote, "u1")
	ctx := context.Background()

	_, err := s.Create(ctx, types.EntryDraft{Title: "ninth", Date: time.Date(2025, 4, 9, 23, 59, 0, 0, time.UTC)})
	require.NoError(t, err)
	_, err = s.Create(ctx, types.EntryDraft{Title: "tenth", Date: time.Date(2025, 4, 10, 0, 1, 0, 0, time.UTC)})
	require.NoError(t, err)

	got, ok := s.ForDate(time.Date(2025, 4, 10, 15, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, "tenth", got.Title)

	got, ok = s.ForDate(time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, "ninth", got.Title)

	_, ok = s.ForDate(time.Date(2025, 4, 11, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)
}

func TestPrincipalSwitch(t *testing.T) {
	remote := newMemoryRemote(1)
	s := signedIn(t, remote, "u1")
	entry, err := s.Create(context.Background(), types.EntryDraft{Title: "mine"})
	require.NoError(t, err)
	s.Select(entry.ID)

	require.NoError(t, s.SetPrincipal(context.Background(), &security.Principal{ID: "u2"}))
	assert.Empty(t, s.Entries())
	_, ok := s.Current()
	assert.False(t, ok)

	require.NoError(t, s.SetPrincipal(context.Background(), &security.Principal{ID: "u1"}))
	require.Len(t, s.Entries(), 1)

	require.NoError(t, s.SetPrincipal(context.Background(), nil))
	assert.Empty(t, s.Entries())
	_, ok = s.Principal()
	assert.False(t, ok)
}

// hookRemote runs beforeList ahead of every fetch.
type hookRemote struct {
	*memoryRemote
	beforeList func(userID string)
}

func (h *hookRemote) ListByOwner(ctx context.Context, userID string) ([]types.Entry, error) {
	if h.beforeList != nil {
		h.beforeList(userID)
	}
	return h.memoryRemote.ListByOwner(ctx, userID)
}

func TestPrincipalSwitchDuringFetch(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		remote := newMemoryRemote(1)
		remote.rows["old"] = types.Entry{ID: "old", UserID: "u1", Title: "u1 entry"}

		var (
			store      *Store
			seen       []types.Entry
			u1Err      error
			u1Started  = make(chan struct{})
			releaseU1  = make(chan struct{})
			u1Finished = make(chan struct{})
		)
		store = NewStore(&hookRemote{memoryRemote: remote, beforeList: func(userID string) {
			switch userID {
			case "u1":
				close(u1Started)
				<-releaseU1
			case "u2":
				// u1 的请求已经返回，此时不能看到 u1 的数据
				<-u1Finished
				seen = store.Entries()
			}
		}})

		go func() {
			u1Err = store.SetPrincipal(ctx, &security.Principal{ID: "u1"})
			close(u1Finished)
		}()
		<-u1Started
		go close(releaseU1)

		require.NoError(t, store.SetPrincipal(ctx, &security.Principal{ID: "u2"}))
		<-u1Finished

		assert.NoError(t, u1Err)
		assert.Empty(t, seen)
		assert.Empty(t, store.Entries())
		p, ok := store.Principal()
		require.True(t, ok)
		assert.Equal(t, "u2", p.ID)
	}
}

func TestFetchFailureEmptiesSet(t *testing.T) {
	remote := newMemoryRemote(1)
	remote.failErr = stderrors.New("timeout")
	s := NewStore(remote)

	err := s.SetPrincipal(context.Background(), &security.Principal{ID: "u1"})
	assert.True(t, errors.Is(err, errors.ErrRemote))
	assert.Empty(t, s.Entries())

	p, ok := s.Principal()
	assert.True(t, ok)
	assert.Equal(t, "u1", p.ID)
}

func TestAttachMedia(t *testing.T) {
	remote := newMemoryRemote(1)
	s := signedIn(t, remote, "u1")
	entry, err := s.Create(context.Background(), types.EntryDraft{Title: "voice"})
	require.NoError(t, err)

	updated, err := s.AttachMedia(context.Background(), entry.ID, "https://cdn/u1/audio_1.webm", types.ENTRY_TYPE_AUDIO)
	require.NoError(t, err)
	assert.Equal(t, types.ENTRY_TYPE_AUDIO, updated.Type)
	assert.Equal(t, "https://cdn/u1/audio_1.webm", updated.MediaURL)

	updated, err = s.AttachMedia(context.Background(), entry.ID, "ignored", types.ENTRY_TYPE_TEXT)
	require.NoError(t, err)
	assert.Equal(t, "", updated.MediaURL)
}

type stubUploader struct {
	url   string
	err   error
	calls int
}

func (u *stubUploader) Upload(ctx context.Context, blob *capture.Blob, ownerID string, kind types.EntryType) (string, error) {
	u.calls++
	return u.url, u.err
}

func TestSaveUploadsThenCreates(t *testing.T) {
	remote := newMemoryRemote(1)
	uploader := &stubUploader{url: "https://cdn/u1/video_1.mp4"}
	s := NewStore(remote, WithUploader(uploader))
	require.NoError(t, s.SetPrincipal(context.Background(), &security.Principal{ID: "u1"}))

	entry, err := s.Save(context.Background(), types.EntryDraft{Title: "clip", Type: types.ENTRY_TYPE_VIDEO}, &capture.Blob{Data: []byte("mp4")})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/u1/video_1.mp4", entry.MediaURL)
	assert.Equal(t, 1, uploader.calls)

	// an empty recording still saves the entry, without media
	entry, err = s.Save(context.Background(), types.EntryDraft{Title: "silence", Type: types.ENTRY_TYPE_AUDIO}, nil)
	require.NoError(t, err)
	assert.Equal(t, "", entry.MediaURL)
	assert.Equal(t, 1, uploader.calls)
}

func TestSaveUploadFailureCreatesNothing(t *testing.T) {
	remote := newMemoryRemote(1)
	uploader := &stubUploader{err: errors.New("upload", "error.storage", nil).Kind(errors.ErrStorage)}
	s := NewStore(remote, WithUploader(uploader))
	require.NoError(t, s.SetPrincipal(context.Background(), &security.Principal{ID: "u1"}))

	_, err := s.Save(context.Background(), types.EntryDraft{Title: "clip", Type: types.ENTRY_TYPE_AUDIO}, &capture.Blob{Data: []byte("x")})
	assert.True(t, errors.Is(err, errors.ErrStorage))
	assert.Empty(t, s.Entries())
}
