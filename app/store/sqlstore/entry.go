package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/quka-ai/daybook/pkg/types"
	"github.com/quka-ai/daybook/pkg/utils"
)

func init() {
	storeHooks.Register("entry", func(provider *Provider) {
		provider.stores.EntryStore = NewEntryStore(provider)
	})
}

type EntryStore struct {
	CommonFields
}

func NewEntryStore(provider SqlProviderAchieve) *EntryStore {
	repo := &EntryStore{}
	repo.SetProvider(provider)
	repo.SetTable(types.TABLE_ENTRY)
	repo.SetAllColumns("id", "user_id", "title", "content", "tags", "type", "media_url", "summary", "wallpaper", "date", "created_at", "updated_at")
	return repo
}

// Insert 写入条目，id 为空时生成
func (s *EntryStore) Insert(ctx context.Context, data types.Entry) (types.Entry, error) {
	if data.ID == "" {
		data.ID = utils.GenUniqIDStr()
	}
	now := time.Now().Unix()
	if data.CreatedAt == 0 {
		data.CreatedAt = now
	}
	data.UpdatedAt = now
	if data.Tags == nil {
		data.Tags = types.Tags{}
	}

	query := sq.Insert(s.GetTable()).
		Columns(s.GetAllColumns()...).
		Values(data.ID, data.UserID, data.Title, data.Content, data.Tags, data.Type, data.MediaURL, data.Summary, data.Wallpaper, data.Date, data.CreatedAt, data.UpdatedAt)

	queryString, args, err := query.ToSql()
	if err != nil {
		return data, ErrorSqlBuild(err)
	}

	if _, err = s.GetMaster(ctx).Exec(queryString, args...); err != nil {
		return data, err
	}
	return data, nil
}

func (s *EntryStore) Get(ctx context.Context, userID, id string) (*types.Entry, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).Where(sq.Eq{"id": id, "user_id": userID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	var res types.Entry
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return nil, err
	}
	return &res, nil
}

// Update 覆盖可变字段，id、user_id、created_at 不可变
func (s *EntryStore) Update(ctx context.Context, data types.Entry) (types.Entry, error) {
	if data.Tags == nil {
		data.Tags = types.Tags{}
	}
	query := sq.Update(s.GetTable()).SetMap(map[string]interface{}{
		"title":      data.Title,
		"content":    data.Content,
		"tags":       data.Tags,
		"type":       data.Type,
		"media_url":  data.MediaURL,
		"summary":    data.Summary,
		"wallpaper":  data.Wallpaper,
		"date":       data.Date,
		"updated_at": time.Now().Unix(),
	}).Where(sq.Eq{"id": data.ID, "user_id": data.UserID}).
		Suffix("RETURNING " + strings.Join(s.GetAllColumns(), ","))

	queryString, args, err := query.ToSql()
	if err != nil {
		return data, ErrorSqlBuild(err)
	}

	var res types.Entry
	// no row matched returns sql.ErrNoRows
	if err = s.GetMaster(ctx).QueryRowx(queryString, args...).StructScan(&res); err != nil {
		return data, err
	}
	return res, nil
}

func (s *EntryStore) SetSummary(ctx context.Context, userID, id, summary string) error {
	query := sq.Update(s.GetTable()).SetMap(map[string]interface{}{
		"summary":    summary,
		"updated_at": time.Now().Unix(),
	}).Where(sq.Eq{"id": id, "user_id": userID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	res, err := s.GetMaster(ctx).Exec(queryString, args...)
	if err != nil {
		return err
	}
	return mustAffected(res)
}

func (s *EntryStore) Delete(ctx context.Context, userID, id string) error {
	query := sq.Delete(s.GetTable()).Where(sq.Eq{"id": id, "user_id": userID})

	queryString, args, err := query.ToSql()
	if err != nil {
		return ErrorSqlBuild(err)
	}

	res, err := s.GetMaster(ctx).Exec(queryString, args...)
	if err != nil {
		return err
	}
	return mustAffected(res)
}

func mustAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *EntryStore) ListByOwner(ctx context.Context, userID string) ([]types.Entry, error) {
	return s.List(ctx, types.ListEntryOptions{UserID: userID}, types.NO_PAGINATION, types.NO_PAGINATION)
}

func (s *EntryStore) List(ctx context.Context, opts types.ListEntryOptions, page, pageSize uint64) ([]types.Entry, error) {
	query := sq.Select(s.GetAllColumns()...).From(s.GetTable()).OrderBy("created_at DESC", "id DESC")
	opts.Apply(&query)
	if pageSize != types.NO_PAGINATION {
		if page < 1 {
			page = 1
		}
		query = query.Limit(pageSize).Offset((page - 1) * pageSize)
	}

	queryString, args, err := query.ToSql()
	if err != nil {
		return nil, ErrorSqlBuild(err)
	}

	res := []types.Entry{}
	if err = s.GetReplica(ctx).Select(&res, queryString, args...); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *EntryStore) Total(ctx context.Context, opts types.ListEntryOptions) (int64, error) {
	query := sq.Select("COUNT(*)").From(s.GetTable())
	opts.Apply(&query)

	queryString, args, err := query.ToSql()
	if err != nil {
		return 0, ErrorSqlBuild(err)
	}

	var res int64
	if err = s.GetReplica(ctx).Get(&res, queryString, args...); err != nil {
		return 0, err
	}
	return res, nil
}
