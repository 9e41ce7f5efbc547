package convertor

import (
	"cliparr/ddd/domain/entity"
	"cliparr/ddd/domain/vo"
	"cliparr/ddd/infrastructure/database/po"
)

// ClipConvertor 剪辑转换器
type ClipConvertor struct{}

// NewClipConvertor 创建剪辑转换器
func NewClipConvertor() *ClipConvertor {
	return &ClipConvertor{}
}

// ToEntity 将PO转换为Entity
func (c *ClipConvertor) ToEntity(p *po.Clip) *entity.ClipEntity {
	if p == nil {
		return nil
	}
	status, err := vo.NewClipStatusFromString(p.Status)
	if err != nil {
		status = vo.ClipStatusFailed
	}
	return entity.RestoreClipEntity(entity.ClipSnapshot{
		ID:            p.ID,
		UserID:        p.UserID,
		RatingKey:     p.RatingKey,
		FilePath:      p.FilePath,
		Title:         p.Title,
		MediaTitle:    p.MediaTitle,
		MediaYear:     p.MediaYear,
		MediaType:     vo.MediaType(p.MediaType),
		SeasonEpisode: p.SeasonEpisode,
		StartMs:       p.StartMs,
		EndMs:         p.EndMs,
		DurationMs:    p.DurationMs,
		Status:        status,
		HLSPath:       p.HLSPath,
		ThumbnailPath: p.ThumbnailPath,
		ErrorMessage:  p.ErrorMessage,
		AccessToken:   p.AccessToken,
		TTLHours:      p.TTLHours,
		MaxViews:      p.MaxViews,
		ViewCount:     p.ViewCount,
		ExpiresAt:     p.ExpiresAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	})
}

// ToPO 将Entity转换为PO
func (c *ClipConvertor) ToPO(e *entity.ClipEntity) *po.Clip {
	s := e.Snapshot()
	return &po.Clip{
		ID:            s.ID,
		UserID:        s.UserID,
		Title:         s.Title,
		RatingKey:     s.RatingKey,
		MediaTitle:    s.MediaTitle,
		MediaYear:     s.MediaYear,
		MediaType:     s.MediaType.String(),
		SeasonEpisode: s.SeasonEpisode,
		FilePath:      s.FilePath,
		StartMs:       s.StartMs,
		EndMs:         s.EndMs,
		DurationMs:    s.DurationMs,
		Status:        s.Status.String(),
		HLSPath:       s.HLSPath,
		ThumbnailPath: s.ThumbnailPath,
		ErrorMessage:  s.ErrorMessage,
		AccessToken:   s.AccessToken,
		TTLHours:      s.TTLHours,
		MaxViews:      s.MaxViews,
		ViewCount:     s.ViewCount,
		ExpiresAt:     s.ExpiresAt.UTC(),
		CreatedAt:     s.CreatedAt.UTC(),
		UpdatedAt:     s.UpdatedAt.UTC(),
	}
}

// ToEntities 批量将PO转换为Entity
func (c *ClipConvertor) ToEntities(pos []*po.Clip) []*entity.ClipEntity {
	entities := make([]*entity.ClipEntity, 0, len(pos))
	for _, p := range pos {
		entities = append(entities, c.ToEntity(p))
	}
	return entities
}

// ViewToEntity 观看记录转换
func (c *ClipConvertor) ViewToEntity(p *po.ClipView) *entity.ClipViewEntity {
	ua := ""
	if p.UserAgent != nil {
		ua = *p.UserAgent
	}
	return &entity.ClipViewEntity{
		ID:              p.ID,
		ClipID:          p.ClipID,
		SessionHash:     p.SessionHash,
		WatchDurationMs: p.WatchDurationMs,
		WatchPercentage: p.WatchPercentage,
		UserAgent:       ua,
		CreatedAt:       p.CreatedAt,
	}
}

// ViewToPO 观看记录转换
func (c *ClipConvertor) ViewToPO(e *entity.ClipViewEntity) *po.ClipView {
	var ua *string
	if e.UserAgent != "" {
		v := e.UserAgent
		ua = &v
	}
	return &po.ClipView{
		ID:              e.ID,
		ClipID:          e.ClipID,
		SessionHash:     e.SessionHash,
		WatchDurationMs: e.WatchDurationMs,
		WatchPercentage: e.WatchPercentage,
		UserAgent:       ua,
		CreatedAt:       e.CreatedAt.UTC(),
	}
}
