package store

import (
	"context"

	"github.com/quka-ai/daybook/pkg/sqlstore"
	"github.com/quka-ai/daybook/pkg/types"
)

// EntryStore 日记条目存储，所有行操作都以 user_id 作为范围
type EntryStore interface {
	sqlstore.SqlCommons
	// Insert 写入新条目，由存储层分配 id 与时间戳
	Insert(ctx context.Context, data types.Entry) (types.Entry, error)
	Get(ctx context.Context, userID, id string) (*types.Entry, error)
	// Update 更新条目的可变字段，未命中时返回 sql.ErrNoRows
	Update(ctx context.Context, data types.Entry) (types.Entry, error)
	SetSummary(ctx context.Context, userID, id, summary string) error
	Delete(ctx context.Context, userID, id string) error
	// ListByOwner 按 created_at 倒序返回用户的全部条目
	ListByOwner(ctx context.Context, userID string) ([]types.Entry, error)
	List(ctx context.Context, opts types.ListEntryOptions, page, pageSize uint64) ([]types.Entry, error)
	Total(ctx context.Context, opts types.ListEntryOptions) (int64, error)
}
