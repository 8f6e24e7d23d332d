package journal

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/quka-ai/daybook/pkg/errors"
	"github.com/quka-ai/daybook/pkg/i18n"
	"github.com/quka-ai/daybook/pkg/media/capture"
	"github.com/quka-ai/daybook/pkg/security"
	"github.com/quka-ai/daybook/pkg/types"
)

const DEFAULT_REMOTE_TIMEOUT = 15 * time.Second

// Remote is the authoritative entry table. Every call is scoped by owner,
// a missing row is reported as sql.ErrNoRows.
type Remote interface {
	ListByOwner(ctx context.Context, userID string) ([]types.Entry, error)
	Insert(ctx context.Context, entry types.Entry) (types.Entry, error)
	Update(ctx context.Context, entry types.Entry) (types.Entry, error)
	Delete(ctx context.Context, userID, id string) error
}

type MediaUploader interface {
	Upload(ctx context.Context, blob *capture.Blob, ownerID string, kind types.EntryType) (string, error)
}

// Store is the in-memory view of the signed-in principal's entries. Local state only
// changes after the remote call succeeded, so a failed call leaves it untouched.
type Store struct {
	remote   Remote
	uploader MediaUploader
	timeout  time.Duration
	loc      *time.Location

	mu         sync.RWMutex
	principal  *security.Principal
	entries    []types.Entry
	current    *types.Entry
	generation uint64
}

type Option func(*Store)

func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLocation sets the timezone calendar days are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithUploader(u MediaUploader) Option {
	return func(s *Store) {
		s.uploader = u
	}
}

func NewStore(remote Remote, opts ...Option) *Store {
	s := &Store{
		remote:  remote,
		timeout: DEFAULT_REMOTE_TIMEOUT,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Principal() (security.Principal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.principal == nil {
		return security.Principal{}, false
	}
	return *s.principal, true
}

// SetPrincipal switches the owner of the store. A new principal triggers a fetch of
// its entries, nil empties the store.
func (s *Store) SetPrincipal(ctx context.Context, p *security.Principal) error {
	s.mu.Lock()
	if p == nil || p.ID == "" {
		s.principal = nil
		s.entries = nil
		s.current = nil
		s.generation++
		s.mu.Unlock()
		return nil
	}
	if s.principal != nil && s.principal.ID == p.ID {
		s.principal = lo.ToPtr(*p)
		s.mu.Unlock()
		return nil
	}
	// 切换主体与失效旧请求必须在同一把锁内完成
	s.principal = lo.ToPtr(*p)
	s.entries = nil
	s.current = nil
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	return s.fetch(ctx, gen, p.ID)
}

// Refresh refetches the principal's entries. On failure the set is left empty.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.principal == nil {
		s.mu.Unlock()
		return nil
	}
	s.generation++
	gen := s.generation
	userID := s.principal.ID
	s.mu.Unlock()

	return s.fetch(ctx, gen, userID)
}

// fetch applies the result only if no principal change or newer fetch happened since gen.
func (s *Store) fetch(ctx context.Context, gen uint64, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	list, err := s.remote.ListByOwner(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		// principal changed while fetching
		slog.Debug("discard stale journal fetch", slog.String("user", userID))
		return nil
	}
	if err != nil {
		s.entries = nil
		s.current = nil
		slog.Error("failed to fetch journal entries", slog.String("user", userID), slog.String("error", err.Error()))
		return errors.New("journal.Store.Refresh.Remote.ListByOwner", i18n.ERROR_REMOTE, err).Kind(errors.ErrRemote)
	}
	s.entries = append([]types.Entry{}, list...)
	if s.current != nil {
		if idx := s.indexOf(s.current.ID); idx >= 0 {
			s.current = lo.ToPtr(s.entries[idx])
		} else {
			s.current = nil
		}
	}
	return nil
}

func (s *Store) requirePrincipal(trace string) (security.Principal, error) {
	p, ok := s.Principal()
	if !ok {
		return p, errors.New(trace, i18n.ERROR_UNAUTHORIZED, nil).Code(http.StatusUnauthorized).Kind(errors.ErrAuth)
	}
	return p, nil
}

func (s *Store) indexOf(id string) int {
	_, idx, ok := lo.FindIndexOf(s.entries, func(item types.Entry) bool {
		return item.ID == id
	})
	if !ok {
		return -1
	}
	return idx
}

func (s *Store) lookup(id string) (types.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.entries[idx], true
	}
	return types.Entry{}, false
}

func notFound(trace, id string) error {
	return errors.New(trace, i18n.ERROR_NOT_FOUND, nil).Code(http.StatusNotFound).Kind(errors.ErrNotFound).WithData(map[string]interface{}{"id": id})
}

// Create persists draft remotely and prepends the stored entry.
func (s *Store) Create(ctx context.Context, draft types.EntryDraft) (types.Entry, error) {
	p, err := s.requirePrincipal("journal.Store.Create.principal")
	if err != nil {
		return types.Entry{}, err
	}

	entry := draft.ToEntry(p.ID)
	if err = entry.Validate(); err != nil {
		return types.Entry{}, errors.Trace("journal.Store.Create", err)
	}

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	created, err := s.remote.Insert(rctx, entry)
	if err != nil {
		return types.Entry{}, errors.New("journal.Store.Create.Remote.Insert", i18n.ERROR_REMOTE, err).Kind(errors.ErrRemote)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal != nil && s.principal.ID == p.ID {
		// newest first, regardless of the entry date
		s.entries = append([]types.Entry{created}, s.entries...)
	}
	return created, nil
}

// Update persists entry and replaces the local copy with the same id.
func (s *Store) Update(ctx context.Context, entry types.Entry) (types.Entry, error) {
	p, err := s.requirePrincipal("journal.Store.Update.principal")
	if err != nil {
		return types.Entry{}, err
	}

	old, ok := s.lookup(entry.ID)
	if !ok || old.UserID != p.ID {
		return types.Entry{}, notFound("journal.Store.Update.lookup", entry.ID)
	}

	// id, owner and creation time are immutable
	entry.UserID = old.UserID
	entry.CreatedAt = old.CreatedAt
	entry.Normalize()
	if err = entry.Validate(); err != nil {
		return types.Entry{}, errors.Trace("journal.Store.Update", err)
	}

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	updated, err := s.remote.Update(rctx, entry)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Entry{}, notFound("journal.Store.Update.Remote.Update", entry.ID)
		}
		return types.Entry{}, errors.New("journal.Store.Update.Remote.Update", i18n.ERROR_REMOTE, err).Kind(errors.ErrRemote)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(updated.ID); idx >= 0 {
		s.entries[idx] = updated
	}
	if s.current != nil && s.current.ID == updated.ID {
		s.current = lo.ToPtr(updated)
	}
	return updated, nil
}

// Delete removes the entry remotely, then locally.
func (s *Store) Delete(ctx context.Context, id string) error {
	p, err := s.requirePrincipal("journal.Store.Delete.principal")
	if err != nil {
		return err
	}

	old, ok := s.lookup(id)
	if !ok || old.UserID != p.ID {
		return notFound("journal.Store.Delete.lookup", id)
	}

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err = s.remote.Delete(rctx, p.ID, id); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return errors.New("journal.Store.Delete.Remote.Delete", i18n.ERROR_REMOTE, err).Kind(errors.ErrRemote)
	}
	// a row that is already gone remotely is dropped from the cache as well

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = lo.Filter(s.entries, func(item types.Entry, _ int) bool {
		return item.ID != id
	})
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	return nil
}

// AttachMedia points the entry at an uploaded recording, keeping type and url consistent.
func (s *Store) AttachMedia(ctx context.Context, id, mediaURL string, kind types.EntryType) (types.Entry, error) {
	entry, ok := s.lookup(id)
	if !ok {
		return types.Entry{}, notFound("journal.Store.AttachMedia.lookup", id)
	}
	entry.Type = kind
	entry.MediaURL = mediaURL
	if kind == types.ENTRY_TYPE_TEXT {
		entry.MediaURL = ""
	}
	return s.Update(ctx, entry)
}

// Save uploads blob (if any) and creates the entry pointing at it. When the upload
// succeeds but the entry cannot be stored the object is left orphaned in storage.
func (s *Store) Save(ctx context.Context, draft types.EntryDraft, blob *capture.Blob) (types.Entry, error) {
	p, err := s.requirePrincipal("journal.Store.Save.principal")
	if err != nil {
		return types.Entry{}, err
	}

	if draft.Type.IsMedia() && blob.Size() > 0 {
		if s.uploader == nil {
			return types.Entry{}, errors.New("journal.Store.Save.uploader", i18n.ERROR_STORAGE, nil).Kind(errors.ErrStorage)
		}
		url, err := s.uploader.Upload(ctx, blob, p.ID, draft.Type)
		if err != nil {
			return types.Entry{}, errors.Trace("journal.Store.Save.Upload", err)
		}
		draft.MediaURL = url
	}

	entry, err := s.Create(ctx, draft)
	if err != nil {
		if draft.MediaURL != "" {
			slog.Warn("media uploaded but entry was not saved, object is orphaned", slog.String("user", p.ID), slog.String("media_url", draft.MediaURL))
		}
		return types.Entry{}, errors.Trace("journal.Store.Save", err)
	}
	return entry, nil
}

// Entries returns a copy of the local set, newest first.
func (s *Store) Entries() []types.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.Entry{}, s.entries...)
}

// ForDate returns the first entry written on the calendar day of date.
func (s *Store) ForDate(date time.Time) (types.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Find(s.entries, func(item types.Entry) bool {
		return types.SameDay(item.DateTime(s.loc), date, s.loc)
	})
}

func (s *Store) Current() (types.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return types.Entry{}, false
	}
	return *s.current, true
}

func (s *Store) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	s.current = lo.ToPtr(s.entries[idx])
	return true
}

func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}
