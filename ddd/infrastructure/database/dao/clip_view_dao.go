package dao

import (
	"context"

	"gorm.io/gorm"

	"cliparr/ddd/infrastructure/database/po"
)

// ClipViewDAO 观看记录DAO
type ClipViewDAO struct {
	db *gorm.DB
}

func NewClipViewDAO(db *gorm.DB) *ClipViewDAO {
	return &ClipViewDAO{db: db}
}

func (d *ClipViewDAO) Create(ctx context.Context, view *po.ClipView) error {
	return d.db.WithContext(ctx).Model(&po.ClipView{}).Create(view).Error
}

func (d *ClipViewDAO) QueryByClip(ctx context.Context, clipID string) ([]*po.ClipView, error) {
	var views []*po.ClipView
	if err := d.db.WithContext(ctx).Where("clip_id = ?", clipID).Order("created_at ASC").Find(&views).Error; err != nil {
		return nil, err
	}
	return views, nil
}

type viewAggregate struct {
	UniqueViewers int64
	AvgWatch      *float64
}

// Aggregate 统计独立观众数和平均观看比例
func (d *ClipViewDAO) Aggregate(ctx context.Context, clipID string) (int64, float64, error) {
	var agg viewAggregate
	err := d.db.WithContext(ctx).Model(&po.ClipView{}).
		Select("COUNT(DISTINCT session_hash) AS unique_viewers, AVG(watch_percentage) AS avg_watch").
		Where("clip_id = ?", clipID).
		Scan(&agg).Error
	if err != nil {
		return 0, 0, err
	}
	avg := 0.0
	if agg.AvgWatch != nil {
		avg = *agg.AvgWatch
	}
	return agg.UniqueViewers, avg, nil
}
