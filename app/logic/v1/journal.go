package v1

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/quka-ai/daybook/app/core"
	"github.com/quka-ai/daybook/app/store"
	"github.com/quka-ai/daybook/pkg/errors"
	"github.com/quka-ai/daybook/pkg/i18n"
	"github.com/quka-ai/daybook/pkg/types"
)

type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

type JournalLogic struct {
	UserInfo
	ctx        context.Context
	store      store.EntryStore
	summarizer Summarizer
	loc        *time.Location
	wallpaper  string
	timeout    time.Duration
}

func NewJournalLogic(ctx context.Context, core *core.Core) *JournalLogic {
	cfg := core.Cfg().Journal
	l := newJournalLogic(ctx, core.Store().EntryStore(), core.Assistant(), cfg.Location())
	l.wallpaper = cfg.DefaultWallpaper
	l.timeout = cfg.RemoteTimeoutDuration()
	return l
}

func newJournalLogic(ctx context.Context, entryStore store.EntryStore, summarizer Summarizer, loc *time.Location) *JournalLogic {
	return &JournalLogic{
		UserInfo:   SetupUserInfo(ctx),
		ctx:        ctx,
		store:      entryStore,
		summarizer: summarizer,
		loc:        loc,
		timeout:    15 * time.Second,
	}
}

func (l *JournalLogic) remoteCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(l.ctx, l.timeout)
}

// remoteError 将存储层错误转换为业务错误，行不存在统一视为 not found
func remoteError(trace string, err error) error {
	if err == sql.ErrNoRows || errors.Is(err, sql.ErrNoRows) {
		return errors.New(trace, i18n.ERROR_NOT_FOUND, err).Code(http.StatusNotFound).Kind(errors.ErrNotFound)
	}
	return errors.New(trace, i18n.ERROR_REMOTE, err).Kind(errors.ErrRemote)
}

type ListEntriesRequest struct {
	Type     types.EntryType `form:"type"`
	Tag      string          `form:"tag"`
	Keywords string          `form:"keywords"`
	Page     uint64          `form:"page"`
	PageSize uint64          `form:"pagesize"`
}

func (l *JournalLogic) ListEntries(req ListEntriesRequest) ([]types.Entry, int64, error) {
	userID, err := l.RequireUser("JournalLogic.ListEntries.RequireUser")
	if err != nil {
		return nil, 0, err
	}

	opts := types.ListEntryOptions{
		UserID:   userID,
		Type:     req.Type,
		Tag:      req.Tag,
		Keywords: strings.TrimSpace(req.Keywords),
	}

	ctx, cancel := l.remoteCtx()
	defer cancel()
	list, err := l.store.List(ctx, opts, req.Page, req.PageSize)
	if err != nil && err != sql.ErrNoRows {
		return nil, 0, remoteError("JournalLogic.ListEntries.EntryStore.List", err)
	}

	total, err := l.store.Total(ctx, opts)
	if err != nil {
		return nil, 0, remoteError("JournalLogic.ListEntries.EntryStore.Total", err)
	}
	if list == nil {
		list = []types.Entry{}
	}
	return list, total, nil
}

func (l *JournalLogic) CreateEntry(draft types.EntryDraft) (types.Entry, error) {
	userID, err := l.RequireUser("JournalLogic.CreateEntry.RequireUser")
	if err != nil {
		return types.Entry{}, err
	}

	if draft.Wallpaper == "" {
		draft.Wallpaper = l.wallpaper
	}
	entry := draft.ToEntry(userID)
	if err = entry.Validate(); err != nil {
		return types.Entry{}, errors.Trace("JournalLogic.CreateEntry", err)
	}

	ctx, cancel := l.remoteCtx()
	defer cancel()
	created, err := l.store.Insert(ctx, entry)
	if err != nil {
		return types.Entry{}, remoteError("JournalLogic.CreateEntry.EntryStore.Insert", err)
	}
	return created, nil
}

// EntryPatch 为空的字段保持不变
type EntryPatch struct {
	Title     *string          `json:"title"`
	Content   *string          `json:"content"`
	Tags      *[]string        `json:"tags"`
	Type      *types.EntryType `json:"type"`
	MediaURL  *string          `json:"media_url"`
	Wallpaper *string          `json:"wallpaper"`
	Date      *int64           `json:"date"`
}

func (p EntryPatch) apply(entry *types.Entry) {
	if p.Title != nil {
		entry.Title = *p.Title
	}
	if p.Content != nil {
		entry.Content = *p.Content
	}
	if p.Tags != nil {
		entry.Tags = *p.Tags
	}
	if p.Type != nil {
		entry.Type = *p.Type
	}
	if p.MediaURL != nil {
		entry.MediaURL = *p.MediaURL
	}
	if p.Wallpaper != nil {
		entry.Wallpaper = *p.Wallpaper
	}
	if p.Date != nil {
		entry.Date = *p.Date
	}
}

func (l *JournalLogic) UpdateEntry(id string, patch EntryPatch) (types.Entry, error) {
	userID, err := l.RequireUser("JournalLogic.UpdateEntry.RequireUser")
	if err != nil {
		return types.Entry{}, err
	}

	ctx, cancel := l.remoteCtx()
	defer cancel()
	old, err := l.store.Get(ctx, userID, id)
	if err != nil {
		return types.Entry{}, remoteError("JournalLogic.UpdateEntry.EntryStore.Get", err)
	}

	entry := *old
	patch.apply(&entry)
	entry.Normalize()
	if err = entry.Validate(); err != nil {
		return types.Entry{}, errors.Trace("JournalLogic.UpdateEntry", err)
	}

	updated, err := l.store.Update(ctx, entry)
	if err != nil {
		return types.Entry{}, remoteError("JournalLogic.UpdateEntry.EntryStore.Update", err)
	}
	return updated, nil
}

func (l *JournalLogic) DeleteEntry(id string) error {
	userID, err := l.RequireUser("JournalLogic.DeleteEntry.RequireUser")
	if err != nil {
		return err
	}

	ctx, cancel := l.remoteCtx()
	defer cancel()
	if err = l.store.Delete(ctx, userID, id); err != nil {
		return remoteError("JournalLogic.DeleteEntry.EntryStore.Delete", err)
	}
	return nil
}

// GetEntryByDate 返回指定日历日最新的一条记录
func (l *JournalLogic) GetEntryByDate(date string) (types.Entry, error) {
	userID, err := l.RequireUser("JournalLogic.GetEntryByDate.RequireUser")
	if err != nil {
		return types.Entry{}, err
	}

	day, err := time.ParseInLocation(types.DATE_LAYOUT, date, l.loc)
	if err != nil {
		return types.Entry{}, errors.New("JournalLogic.GetEntryByDate.ParseDate", i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest).Kind(errors.ErrInvalid)
	}

	st, et := types.DayRange(day, l.loc)
	opts := types.ListEntryOptions{
		UserID: userID,
		TimeRange: &struct {
			St int64
			Et int64
		}{St: st, Et: et},
	}

	ctx, cancel := l.remoteCtx()
	defer cancel()
	list, err := l.store.List(ctx, opts, 1, 1)
	if err != nil && err != sql.ErrNoRows {
		return types.Entry{}, remoteError("JournalLogic.GetEntryByDate.EntryStore.List", err)
	}
	if len(list) == 0 {
		return types.Entry{}, errors.New("JournalLogic.GetEntryByDate.empty", i18n.ERROR_NOT_FOUND, nil).Code(http.StatusNotFound).Kind(errors.ErrNotFound)
	}
	return list[0], nil
}

// SummarizeEntry 生成并保存条目摘要，AI 不可用时保存兜底文案
func (l *JournalLogic) SummarizeEntry(id string) (string, error) {
	userID, err := l.RequireUser("JournalLogic.SummarizeEntry.RequireUser")
	if err != nil {
		return "", err
	}

	ctx, cancel := l.remoteCtx()
	entry, err := l.store.Get(ctx, userID, id)
	cancel()
	if err != nil {
		return "", remoteError("JournalLogic.SummarizeEntry.EntryStore.Get", err)
	}

	text := entry.Content
	if strings.TrimSpace(text) == "" {
		text = entry.Title
	}
	summary := l.summarizer.Summarize(withClientReplyLanguage(l.ctx), text)

	ctx, cancel = l.remoteCtx()
	defer cancel()
	if err = l.store.SetSummary(ctx, userID, id, summary); err != nil {
		return "", remoteError("JournalLogic.SummarizeEntry.EntryStore.SetSummary", err)
	}
	return summary, nil
}
