package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"cliparr/ddd/infrastructure/database/po"
)

// ClipDAO 剪辑数据访问对象
type ClipDAO struct {
	db *gorm.DB
}

// NewClipDAO 创建剪辑DAO
func NewClipDAO(db *gorm.DB) *ClipDAO {
	return &ClipDAO{db: db}
}

// Create 创建剪辑
func (d *ClipDAO) Create(ctx context.Context, clip *po.Clip) error {
	return d.db.WithContext(ctx).Model(&po.Clip{}).Create(clip).Error
}

// FindByID returns gorm.ErrRecordNotFound when missing.
func (d *ClipDAO) FindByID(ctx context.Context, id string) (*po.Clip, error) {
	var clip po.Clip
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&clip).Error; err != nil {
		return nil, err
	}
	return &clip, nil
}

// FindByOwner 按 id 和所属用户查询
func (d *ClipDAO) FindByOwner(ctx context.Context, id, userID string) (*po.Clip, error) {
	var clip po.Clip
	if err := d.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&clip).Error; err != nil {
		return nil, err
	}
	return &clip, nil
}

// QueryByUser 按用户分页查询，最新的在前
func (d *ClipDAO) QueryByUser(ctx context.Context, userID, status string, limit, offset int) ([]*po.Clip, error) {
	var clips []*po.Clip
	q := d.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	q = q.Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&clips).Error; err != nil {
		return nil, err
	}
	return clips, nil
}

// Updates 按 id 更新字段
func (d *ClipDAO) Updates(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now().UTC()
	return d.db.WithContext(ctx).Model(&po.Clip{}).Where("id = ?", id).Updates(fields).Error
}

// UpdatesInStatus updates the row only while its status is one of from.
func (d *ClipDAO) UpdatesInStatus(ctx context.Context, id string, from []string, fields map[string]interface{}) (bool, error) {
	fields["updated_at"] = time.Now().UTC()
	res := d.db.WithContext(ctx).Model(&po.Clip{}).Where("id = ? AND status IN ?", id, from).Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IncrementViewUnderCap is a single conditional UPDATE, so concurrent viewers cannot overshoot max_views.
func (d *ClipDAO) IncrementViewUnderCap(ctx context.Context, id string) (bool, error) {
	res := d.db.WithContext(ctx).Model(&po.Clip{}).
		Where("id = ? AND (max_views IS NULL OR view_count < max_views)", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// QueryExpiring 查询已过截止时间但尚未标记过期的剪辑
func (d *ClipDAO) QueryExpiring(ctx context.Context, cutoff time.Time) ([]*po.Clip, error) {
	var clips []*po.Clip
	err := d.db.WithContext(ctx).
		Where("expires_at < ? AND status <> ?", cutoff, "expired").
		Order("expires_at ASC").
		Find(&clips).Error
	if err != nil {
		return nil, err
	}
	return clips, nil
}

// ExpireDue flips a clip to expired only while it is still past cutoff and not yet expired.
func (d *ClipDAO) ExpireDue(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	res := d.db.WithContext(ctx).Model(&po.Clip{}).
		Where("id = ? AND status <> ? AND expires_at < ?", id, "expired", cutoff).
		Updates(map[string]interface{}{"status": "expired", "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Delete removes the clip together with its views.
func (d *ClipDAO) Delete(ctx context.Context, id string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("clip_id = ?", id).Delete(&po.ClipView{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&po.Clip{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// IsNotFound 判断是否记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
