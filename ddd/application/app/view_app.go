package app

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"cliparr/ddd/application/cqe"
	"cliparr/ddd/domain/entity"
	"cliparr/ddd/domain/repo"
	"cliparr/pkg/errno"
	"cliparr/pkg/observability"
)

// ViewApp 观看计数与观看记录
type ViewApp interface {
	// ConsumeView atomically takes one view under the clip's cap and reports whether it was granted.
	ConsumeView(ctx context.Context, clipID string) (bool, error)
	// RecordView 追加一条观看记录
	RecordView(ctx context.Context, req *cqe.RecordViewReq) error
	// Accessible reports whether the clip can still be watched at now.
	Accessible(clip *entity.ClipEntity, now time.Time) bool
}

type viewAppImpl struct {
	clips   repo.ClipRepository
	views   repo.ClipViewRepository
	hashKey []byte
	metrics *observability.Metrics
	now     func() time.Time
}

// NewViewApp derives the viewer hash key from secret.
func NewViewApp(clips repo.ClipRepository, views repo.ClipViewRepository, secret string, metrics *observability.Metrics) ViewApp {
	key := blake2b.Sum256([]byte(secret))
	return &viewAppImpl{
		clips:   clips,
		views:   views,
		hashKey: key[:],
		metrics: metrics,
		now:     time.Now,
	}
}

func (v *viewAppImpl) ConsumeView(ctx context.Context, clipID string) (bool, error) {
	granted, err := v.clips.ConsumeView(ctx, clipID)
	if err != nil {
		return false, errno.NewBizError(errno.ErrDatabase, err)
	}
	v.metrics.ObserveView(granted)
	return granted, nil
}

func (v *viewAppImpl) RecordView(ctx context.Context, req *cqe.RecordViewReq) error {
	clip, err := v.clips.GetByID(ctx, req.ClipID)
	if err != nil {
		return errno.NewBizError(errno.ErrDatabase, err)
	}
	if clip == nil {
		return errno.ErrClipNotFound
	}
	view := &entity.ClipViewEntity{
		ID:              uuid.NewString(),
		ClipID:          clip.ID(),
		SessionHash:     v.sessionHash(req.SessionKey),
		WatchDurationMs: req.WatchDurationMs,
		WatchPercentage: entity.ClampPercentage(req.WatchPercentage),
		UserAgent:       req.UserAgent,
		CreatedAt:       v.now().UTC(),
	}
	if err := v.views.Create(ctx, view); err != nil {
		return errno.NewBizError(errno.ErrDatabase, err)
	}
	return nil
}

func (v *viewAppImpl) Accessible(clip *entity.ClipEntity, now time.Time) bool {
	return clip != nil && clip.IsAccessible(now)
}

// sessionHash is a keyed BLAKE2b-256 of the viewer session material, hex encoded.
func (v *viewAppImpl) sessionHash(material string) string {
	h, err := blake2b.New256(v.hashKey)
	if err != nil {
		// 32 字节 key 不会出错
		panic(err)
	}
	h.Write([]byte(material))
	return hex.EncodeToString(h.Sum(nil))
}
