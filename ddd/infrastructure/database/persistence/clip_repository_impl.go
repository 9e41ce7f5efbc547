package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"cliparr/ddd/domain/entity"
	"cliparr/ddd/domain/repo"
	"cliparr/ddd/domain/vo"
	"cliparr/ddd/infrastructure/database/convertor"
	"cliparr/ddd/infrastructure/database/dao"
)

// clipRepositoryImpl 剪辑仓储实现
type clipRepositoryImpl struct {
	clipDao   *dao.ClipDAO
	convertor *convertor.ClipConvertor
}

// NewClipRepository 创建剪辑仓储实现
func NewClipRepository(db *gorm.DB) repo.ClipRepository {
	return &clipRepositoryImpl{
		clipDao:   dao.NewClipDAO(db),
		convertor: convertor.NewClipConvertor(),
	}
}

func (r *clipRepositoryImpl) Create(ctx context.Context, clip *entity.ClipEntity) error {
	return r.clipDao.Create(ctx, r.convertor.ToPO(clip))
}

func (r *clipRepositoryImpl) GetByID(ctx context.Context, id string) (*entity.ClipEntity, error) {
	p, err := r.clipDao.FindByID(ctx, id)
	if err != nil {
		if dao.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return r.convertor.ToEntity(p), nil
}

func (r *clipRepositoryImpl) GetByOwner(ctx context.Context, id, userID string) (*entity.ClipEntity, error) {
	p, err := r.clipDao.FindByOwner(ctx, id, userID)
	if err != nil {
		if dao.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return r.convertor.ToEntity(p), nil
}

func (r *clipRepositoryImpl) List(ctx context.Context, q repo.ClipQuery) ([]*entity.ClipEntity, error) {
	status := ""
	if q.Status != nil {
		status = q.Status.String()
	}
	pos, err := r.clipDao.QueryByUser(ctx, q.UserID, status, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	return r.convertor.ToEntities(pos), nil
}

func (r *clipRepositoryImpl) Save(ctx context.Context, clip *entity.ClipEntity) error {
	p := r.convertor.ToPO(clip)
	err := r.clipDao.Updates(ctx, p.ID, map[string]interface{}{
		"title":        p.Title,
		"ttl_hours":    p.TTLHours,
		"expires_at":   p.ExpiresAt,
		"access_token": p.AccessToken,
		"max_views":    p.MaxViews,
	})
	if err != nil {
		return err
	}
	// status 只在 expired -> ready 复活时由这里写入，其余状态由转码回调和清理任务推进
	if clip.Status() == vo.ClipStatusReady {
		_, err = r.clipDao.UpdatesInStatus(ctx, p.ID, []string{vo.ClipStatusExpired.String()}, map[string]interface{}{
			"status": vo.ClipStatusReady.String(),
		})
	}
	return err
}

func (r *clipRepositoryImpl) UpdateStatus(ctx context.Context, id string, status vo.ClipStatus) error {
	return r.clipDao.Updates(ctx, id, map[string]interface{}{"status": status.String()})
}

var inFlight = []string{vo.ClipStatusPending.String(), vo.ClipStatusTranscoding.String()}

func (r *clipRepositoryImpl) MarkReady(ctx context.Context, id, hlsPath, thumbnailPath string) (bool, error) {
	return r.clipDao.UpdatesInStatus(ctx, id, inFlight, map[string]interface{}{
		"status":         vo.ClipStatusReady.String(),
		"hls_path":       hlsPath,
		"thumbnail_path": thumbnailPath,
		"error_message":  nil,
	})
}

func (r *clipRepositoryImpl) MarkFailed(ctx context.Context, id, errorMessage string) (bool, error) {
	return r.clipDao.UpdatesInStatus(ctx, id, inFlight, map[string]interface{}{
		"status":        vo.ClipStatusFailed.String(),
		"error_message": errorMessage,
	})
}

func (r *clipRepositoryImpl) ConsumeView(ctx context.Context, id string) (bool, error) {
	return r.clipDao.IncrementViewUnderCap(ctx, id)
}

func (r *clipRepositoryImpl) ListExpiring(ctx context.Context, cutoff time.Time) ([]*entity.ClipEntity, error) {
	pos, err := r.clipDao.QueryExpiring(ctx, cutoff.UTC())
	if err != nil {
		return nil, err
	}
	return r.convertor.ToEntities(pos), nil
}

func (r *clipRepositoryImpl) MarkExpired(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	return r.clipDao.ExpireDue(ctx, id, cutoff.UTC())
}

func (r *clipRepositoryImpl) Delete(ctx context.Context, id string) error {
	return r.clipDao.Delete(ctx, id)
}

// clipViewRepositoryImpl 观看记录仓储实现
type clipViewRepositoryImpl struct {
	viewDao   *dao.ClipViewDAO
	convertor *convertor.ClipConvertor
}

// NewClipViewRepository 创建观看记录仓储
func NewClipViewRepository(db *gorm.DB) repo.ClipViewRepository {
	return &clipViewRepositoryImpl{
		viewDao:   dao.NewClipViewDAO(db),
		convertor: convertor.NewClipConvertor(),
	}
}

func (r *clipViewRepositoryImpl) Create(ctx context.Context, view *entity.ClipViewEntity) error {
	return r.viewDao.Create(ctx, r.convertor.ViewToPO(view))
}

func (r *clipViewRepositoryImpl) ListByClip(ctx context.Context, clipID string) ([]*entity.ClipViewEntity, error) {
	pos, err := r.viewDao.QueryByClip(ctx, clipID)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.ClipViewEntity, 0, len(pos))
	for _, p := range pos {
		out = append(out, r.convertor.ViewToEntity(p))
	}
	return out, nil
}

func (r *clipViewRepositoryImpl) Stats(ctx context.Context, clipID string) (repo.ClipViewStats, error) {
	unique, avg, err := r.viewDao.Aggregate(ctx, clipID)
	if err != nil {
		return repo.ClipViewStats{}, err
	}
	return repo.ClipViewStats{UniqueViewers: unique, AvgWatchPercentage: avg}, nil
}
