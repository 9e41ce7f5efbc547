package repo

import (
	"context"
	"time"

	"cliparr/ddd/domain/entity"
	"cliparr/ddd/domain/vo"
)

// ClipQuery 列表查询条件
type ClipQuery struct {
	UserID string
	Status *vo.ClipStatus
	Limit  int
	Offset int
}

// ClipRepository 剪辑仓储接口
type ClipRepository interface {
	// Create 插入新剪辑
	Create(ctx context.Context, clip *entity.ClipEntity) error

	// GetByID returns nil, nil when the clip does not exist.
	GetByID(ctx context.Context, id string) (*entity.ClipEntity, error)

	// GetByOwner returns nil, nil when the clip does not exist or belongs to someone else.
	GetByOwner(ctx context.Context, id, userID string) (*entity.ClipEntity, error)

	// List 按创建时间倒序分页
	List(ctx context.Context, q ClipQuery) ([]*entity.ClipEntity, error)

	// Save writes the owner-mutable fields (title, ttl, expiry, token, max views).
	// A ready entity also revives a stored expired row.
	Save(ctx context.Context, clip *entity.ClipEntity) error

	// UpdateStatus 仅更新状态
	UpdateStatus(ctx context.Context, id string, status vo.ClipStatus) error

	// MarkReady records a finished render. It only applies while the clip is pending or transcoding
	// and reports whether the row was updated.
	MarkReady(ctx context.Context, id, hlsPath, thumbnailPath string) (bool, error)

	// MarkFailed 转码失败并记录错误尾部，条件同 MarkReady
	MarkFailed(ctx context.Context, id, errorMessage string) (bool, error)

	// ConsumeView increments view_count unless max_views is reached. It reports whether a view was granted.
	ConsumeView(ctx context.Context, id string) (bool, error)

	// ListExpiring returns clips with expires_at before cutoff that are not yet expired.
	ListExpiring(ctx context.Context, cutoff time.Time) ([]*entity.ClipEntity, error)

	// MarkExpired expires the clip only if it is still unexpired with expires_at before cutoff.
	// It reports whether the row was updated, so a TTL extension that lands first wins.
	MarkExpired(ctx context.Context, id string, cutoff time.Time) (bool, error)

	// Delete removes the clip and its views.
	Delete(ctx context.Context, id string) error
}

// ClipViewStats 观看统计
type ClipViewStats struct {
	UniqueViewers      int64
	AvgWatchPercentage float64
}

// ClipViewRepository 观看记录仓储接口
type ClipViewRepository interface {
	Create(ctx context.Context, view *entity.ClipViewEntity) error
	ListByClip(ctx context.Context, clipID string) ([]*entity.ClipViewEntity, error)
	Stats(ctx context.Context, clipID string) (ClipViewStats, error)
}

// SettingRepository key/value 设置仓储
type SettingRepository interface {
	All(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, values map[string]string) error
}

// UserRepository 用户仓储
type UserRepository interface {
	// UpsertByPlexID creates or refreshes the user keyed by plex id and returns the stored row.
	UpsertByPlexID(ctx context.Context, user *entity.UserEntity) (*entity.UserEntity, error)
	GetByID(ctx context.Context, id string) (*entity.UserEntity, error)
}

// SessionRepository 会话仓储
type SessionRepository interface {
	Create(ctx context.Context, session *entity.SessionEntity) error
	GetByID(ctx context.Context, id string) (*entity.SessionEntity, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
