package types

import (
	"database/sql/driver"
	"fmt"
	"net/http"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/quka-ai/daybook/pkg/errors"
	"github.com/quka-ai/daybook/pkg/i18n"
)

type EntryType string

const (
	ENTRY_TYPE_TEXT  EntryType = "text"
	ENTRY_TYPE_AUDIO EntryType = "audio"
	ENTRY_TYPE_VIDEO EntryType = "video"
)

func (t EntryType) String() string {
	return string(t)
}

func (t EntryType) Valid() bool {
	switch t {
	case ENTRY_TYPE_TEXT, ENTRY_TYPE_AUDIO, ENTRY_TYPE_VIDEO:
		return true
	}
	return false
}

// IsMedia reports whether entries of this type carry a media url.
func (t EntryType) IsMedia() bool {
	return t == ENTRY_TYPE_AUDIO || t == ENTRY_TYPE_VIDEO
}

// Extension of the stored object for a media kind.
func (t EntryType) Extension() string {
	switch t {
	case ENTRY_TYPE_AUDIO:
		return "webm"
	case ENTRY_TYPE_VIDEO:
		return "mp4"
	}
	return ""
}

func (t EntryType) ContentType() string {
	switch t {
	case ENTRY_TYPE_AUDIO:
		return "audio/webm"
	case ENTRY_TYPE_VIDEO:
		return "video/mp4"
	}
	return ""
}

// Tags is an ordered set of lowercase tags.
type Tags []string

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// Add appends tag after trimming and lowercasing it. Empty and duplicate tags are ignored.
func (t Tags) Add(tag string) Tags {
	tag = normalizeTag(tag)
	if tag == "" || lo.Contains(t, tag) {
		return t
	}
	return append(t, tag)
}

func (t Tags) Remove(tag string) Tags {
	tag = normalizeTag(tag)
	return lo.Filter(t, func(item string, _ int) bool {
		return item != tag
	})
}

func NormalizeTags(in []string) Tags {
	res := Tags{}
	for _, v := range in {
		res = res.Add(v)
	}
	return res
}

func (t Tags) Value() (driver.Value, error) {
	return pq.StringArray(t).Value()
}

func (t *Tags) Scan(src any) error {
	var arr pq.StringArray
	if err := arr.Scan(src); err != nil {
		return err
	}
	*t = Tags(arr)
	return nil
}

type Entry struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Date      int64     `json:"date" db:"date"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	Tags      Tags      `json:"tags" db:"tags"`
	Type      EntryType `json:"type" db:"type"`
	MediaURL  string    `json:"media_url" db:"media_url"`
	Summary   string    `json:"summary" db:"summary"`
	Wallpaper string    `json:"wallpaper" db:"wallpaper"`
	CreatedAt int64     `json:"created_at" db:"created_at"`
	UpdatedAt int64     `json:"updated_at" db:"updated_at"`
}

func (e Entry) DateTime(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(e.Date, 0).In(loc)
}

// Normalize trims the title, cleans tags and fills defaults in place.
func (e *Entry) Normalize() {
	e.Title = strings.TrimSpace(e.Title)
	e.Tags = NormalizeTags(e.Tags)
	if e.Type == "" {
		e.Type = ENTRY_TYPE_TEXT
	}
	if e.Wallpaper == "" {
		e.Wallpaper = DEFAULT_WALLPAPER
	}
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return errors.New("Entry.Validate.Title", i18n.ERROR_TITLE_REQUIRED, nil).Code(http.StatusBadRequest).Kind(errors.ErrInvalid)
	}
	if !e.Type.Valid() {
		return errors.New("Entry.Validate.Type", i18n.ERROR_MEDIA_KIND_UNSUPPORT, nil).Code(http.StatusBadRequest).Kind(errors.ErrInvalid)
	}
	if e.Type == ENTRY_TYPE_TEXT && e.MediaURL != "" {
		return errors.New("Entry.Validate.MediaURL", i18n.ERROR_MEDIA_TYPE_MISMATCH, nil).Code(http.StatusBadRequest).Kind(errors.ErrInvalid)
	}
	return nil
}

// EntryDraft is an entry that has not been persisted yet and therefore has no id.
type EntryDraft struct {
	Date      time.Time `json:"date"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Type      EntryType `json:"type"`
	MediaURL  string    `json:"media_url"`
	Summary   string    `json:"summary"`
	Wallpaper string    `json:"wallpaper"`
}

// ToEntry builds the normalized row for owner. ID stays empty, the remote store issues it.
func (d EntryDraft) ToEntry(userID string) Entry {
	date := d.Date
	if date.IsZero() {
		date = time.Now()
	}
	e := Entry{
		UserID:    userID,
		Date:      date.Unix(),
		Title:     d.Title,
		Content:   d.Content,
		Tags:      d.Tags,
		Type:      d.Type,
		MediaURL:  d.MediaURL,
		Summary:   d.Summary,
		Wallpaper: d.Wallpaper,
	}
	e.Normalize()
	return e
}

// SameDay compares the calendar day of a and b in loc, ignoring time of day.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// likeEscaper 转义 LIKE 通配符，postgres 默认转义符为反斜杠
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

type ListEntryOptions struct {
	UserID    string
	Type      EntryType
	Tag       string
	Keywords  string
	TimeRange *struct {
		St int64
		Et int64
	}
}

func (opts ListEntryOptions) Apply(query *sq.SelectBuilder) {
	if opts.UserID != "" {
		*query = query.Where(sq.Eq{"user_id": opts.UserID})
	}
	if opts.Type != "" {
		*query = query.Where(sq.Eq{"type": opts.Type})
	}
	if tag := normalizeTag(opts.Tag); tag != "" {
		*query = query.Where("? = ANY(tags)", tag)
	}
	if opts.Keywords != "" {
		like := fmt.Sprintf("%%%s%%", likeEscaper.Replace(opts.Keywords))
		*query = query.Where(sq.Or{sq.ILike{"title": like}, sq.ILike{"content": like}})
	}
	if opts.TimeRange != nil {
		*query = query.Where(sq.And{sq.GtOrEq{"date": opts.TimeRange.St}, sq.Lt{"date": opts.TimeRange.Et}})
	}
}

// DayRange returns the unix range [start, end) of the calendar day of t in loc.
func DayRange(t time.Time, loc *time.Location) (int64, int64) {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start.Unix(), start.AddDate(0, 0, 1).Unix()
}
