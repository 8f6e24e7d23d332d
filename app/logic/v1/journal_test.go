package v1

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/daybook/pkg/errors"
	"github.com/quka-ai/daybook/pkg/types"
)

func setupJournalLogic(ctx context.Context, store *memoryEntryStore) (*JournalLogic, *stubSummarizer) {
	summarizer := &stubSummarizer{}
	l := newJournalLogic(ctx, store, summarizer, time.UTC)
	l.wallpaper = "sunrise"
	return l, summarizer
}

func TestJournalLogicCreateAndList(t *testing.T) {
	store := newMemoryEntryStore()
	logic, _ := setupJournalLogic(userCtx("u1"), store)

	created, err := logic.CreateEntry(types.EntryDraft{
		Title: "  Morning pages ",
		Tags:  []string{"Work", "work", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, "101", created.ID)
	assert.Equal(t, "u1", created.UserID)
	assert.Equal(t, "Morning pages", created.Title)
	assert.Equal(t, types.Tags{"work"}, created.Tags)
	assert.Equal(t, types.ENTRY_TYPE_TEXT, created.Type)
	assert.Equal(t, "sunrise", created.Wallpaper)

	list, total, err := logic.ListEntries(ListEntriesRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	// other users never see the entry
	other, _ := setupJournalLogic(userCtx("u2"), store)
	list, total, err = other.ListEntries(ListEntriesRequest{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, int64(0), total)
}

func TestJournalLogicRequiresUser(t *testing.T) {
	store := newMemoryEntryStore()
	logic, _ := setupJournalLogic(context.Background(), store)

	_, err := logic.CreateEntry(types.EntryDraft{Title: "anonymous"})
	assert.True(t, errors.Is(err, errors.ErrAuth))
	assert.Empty(t, store.rows)

	_, _, err = logic.ListEntries(ListEntriesRequest{})
	assert.True(t, errors.Is(err, errors.ErrAuth))
}

func TestJournalLogicCreateValidation(t *testing.T) {
	logic, _ := setupJournalLogic(userCtx("u1"), newMemoryEntryStore())

	_, err := logic.CreateEntry(types.EntryDraft{Title: " "})
	assert.True(t, errors.Is(err, errors.ErrInvalid))

	_, err = logic.CreateEntry(types.EntryDraft{Title: "text", MediaURL: "https://media.example.com/a.webm"})
	assert.True(t, errors.Is(err, errors.ErrInvalid))
}

func TestJournalLogicRemoteFailure(t *testing.T) {
	store := newMemoryEntryStore()
	store.err = fmt.Errorf("connection refused")
	logic, _ := setupJournalLogic(userCtx("u1"), store)

	_, err := logic.CreateEntry(types.EntryDraft{Title: "offline"})
	assert.True(t, errors.Is(err, errors.ErrRemote))
}

func TestJournalLogicUpdate(t *testing.T) {
	store := newMemoryEntryStore()
	logic, _ := setupJournalLogic(userCtx("u1"), store)

	created, err := logic.CreateEntry(types.EntryDraft{Title: "draft", Content: "keep me"})
	require.NoError(t, err)

	updated, err := logic.UpdateEntry(created.ID, EntryPatch{
		Title: lo.ToPtr("final"),
		Tags:  lo.ToPtr([]string{"Life"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)
	assert.Equal(t, "keep me", updated.Content)
	assert.Equal(t, types.Tags{"life"}, updated.Tags)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	// foreign entries are invisible
	other, _ := setupJournalLogic(userCtx("u2"), store)
	_, err = other.UpdateEntry(created.ID, EntryPatch{Title: lo.ToPtr("hijack")})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Equal(t, "final", store.rows[created.ID].Title)

	_, err = logic.UpdateEntry(created.ID, EntryPatch{Title: lo.ToPtr("")})
	assert.True(t, errors.Is(err, errors.ErrInvalid))
	assert.Equal(t, "final", store.rows[created.ID].Title)
}

func TestJournalLogicDeleteTwice(t *testing.T) {
	store := newMemoryEntryStore()
	logic, _ := setupJournalLogic(userCtx("u1"), store)

	created, err := logic.CreateEntry(types.EntryDraft{Title: "short lived"})
	require.NoError(t, err)

	require.NoError(t, logic.DeleteEntry(created.ID))
	err = logic.DeleteEntry(created.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Empty(t, store.rows)
}

func TestJournalLogicGetEntryByDate(t *testing.T) {
	store := newMemoryEntryStore()
	logic, _ := setupJournalLogic(userCtx("u1"), store)

	_, err := logic.CreateEntry(types.EntryDraft{Title: "monday", Date: time.Date(2024, 3, 4, 23, 30, 0, 0, time.UTC)})
	require.NoError(t, err)
	tuesday, err := logic.CreateEntry(types.EntryDraft{Title: "tuesday", Date: time.Date(2024, 3, 5, 0, 15, 0, 0, time.UTC)})
	require.NoError(t, err)

	entry, err := logic.GetEntryByDate("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, tuesday.ID, entry.ID)

	_, err = logic.GetEntryByDate("2024-03-06")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = logic.GetEntryByDate("05/03/2024")
	assert.True(t, errors.Is(err, errors.ErrInvalid))
}

func TestJournalLogicSummarizeEntry(t *testing.T) {
	store := newMemoryEntryStore()
	logic, summarizer := setupJournalLogic(userCtx("u1"), store)

	withContent, err := logic.CreateEntry(types.EntryDraft{Title: "walk", Content: "went for a long walk"})
	require.NoError(t, err)
	titleOnly, err := logic.CreateEntry(types.EntryDraft{Title: "voice memo", Type: types.ENTRY_TYPE_AUDIO})
	require.NoError(t, err)

	summary, err := logic.SummarizeEntry(withContent.ID)
	require.NoError(t, err)
	assert.Equal(t, "summary of went for a long walk", summary)
	assert.Equal(t, summary, store.rows[withContent.ID].Summary)

	_, err = logic.SummarizeEntry(titleOnly.ID)
	require.NoError(t, err)
	assert.Equal(t, "voice memo", summarizer.got)

	_, err = logic.SummarizeEntry("404")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
