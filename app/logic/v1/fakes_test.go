package v1

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/quka-ai/daybook/pkg/media/capture"
	"github.com/quka-ai/daybook/pkg/security"
	"github.com/quka-ai/daybook/pkg/types"
)

func userCtx(userID string) context.Context {
	return context.WithValue(context.Background(), TOKEN_CONTEXT_KEY, security.TokenClaims{
		User:  userID,
		Email: userID + "@example.com",
	})
}

type memoryEntryStore struct {
	mu    sync.Mutex
	next  int
	rows  map[string]types.Entry
	order map[string]int
	err   error
}

func newMemoryEntryStore() *memoryEntryStore {
	return &memoryEntryStore{
		next:  100,
		rows:  map[string]types.Entry{},
		order: map[string]int{},
	}
}

func (s *memoryEntryStore) GetTable(...interface{}) string {
	return types.TABLE_ENTRY.Name()
}

func (s *memoryEntryStore) Insert(ctx context.Context, data types.Entry) (types.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return types.Entry{}, s.err
	}
	s.next++
	data.ID = strconv.Itoa(s.next)
	data.CreatedAt = time.Now().Unix()
	data.UpdatedAt = data.CreatedAt
	s.rows[data.ID] = data
	s.order[data.ID] = s.next
	return data, nil
}

func (s *memoryEntryStore) Get(ctx context.Context, userID, id string) (*types.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	row, ok := s.rows[id]
	if !ok || row.UserID != userID {
		return nil, sql.ErrNoRows
	}
	return &row, nil
}

func (s *memoryEntryStore) Update(ctx context.Context, data types.Entry) (types.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return types.Entry{}, s.err
	}
	row, ok := s.rows[data.ID]
	if !ok || row.UserID != data.UserID {
		return types.Entry{}, sql.ErrNoRows
	}
	data.CreatedAt = row.CreatedAt
	data.UpdatedAt = time.Now().Unix()
	s.rows[data.ID] = data
	return data, nil
}

func (s *memoryEntryStore) SetSummary(ctx context.Context, userID, id, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.UserID != userID {
		return sql.ErrNoRows
	}
	row.Summary = summary
	s.rows[id] = row
	return nil
}

func (s *memoryEntryStore) Delete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	row, ok := s.rows[id]
	if !ok || row.UserID != userID {
		return sql.ErrNoRows
	}
	delete(s.rows, id)
	return nil
}

func (s *memoryEntryStore) ListByOwner(ctx context.Context, userID string) ([]types.Entry, error) {
	return s.List(ctx, types.ListEntryOptions{UserID: userID}, 0, 0)
}

func (s *memoryEntryStore) filter(opts types.ListEntryOptions) []types.Entry {
	var list []types.Entry
	for _, row := range s.rows {
		if opts.UserID != "" && row.UserID != opts.UserID {
			continue
		}
		if opts.Type != "" && row.Type != opts.Type {
			continue
		}
		if opts.TimeRange != nil && (row.Date < opts.TimeRange.St || row.Date >= opts.TimeRange.Et) {
			continue
		}
		list = append(list, row)
	}
	sort.Slice(list, func(i, j int) bool {
		return s.order[list[i].ID] > s.order[list[j].ID]
	})
	return list
}

func (s *memoryEntryStore) List(ctx context.Context, opts types.ListEntryOptions, page, pageSize uint64) ([]types.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	list := s.filter(opts)
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		start := (page - 1) * pageSize
		if start >= uint64(len(list)) {
			return nil, nil
		}
		end := min(start+pageSize, uint64(len(list)))
		list = list[start:end]
	}
	return list, nil
}

func (s *memoryEntryStore) Total(ctx context.Context, opts types.ListEntryOptions) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	return int64(len(s.filter(opts))), nil
}

type stubSummarizer struct {
	got string
}

func (s *stubSummarizer) Summarize(ctx context.Context, text string) string {
	s.got = text
	return "summary of " + text
}

type uploadCall struct {
	owner string
	kind  types.EntryType
	data  []byte
}

type stubUploader struct {
	mu    sync.Mutex
	calls []uploadCall
	err   error
}

func (u *stubUploader) Upload(ctx context.Context, blob *capture.Blob, ownerID string, kind types.EntryType) (string, error) {
	if blob.Size() == 0 {
		return "", nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	u.calls = append(u.calls, uploadCall{owner: ownerID, kind: kind, data: blob.Data})
	return "https://media.example.com/" + ownerID + "/" + kind.String(), nil
}
