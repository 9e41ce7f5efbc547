package dao

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cliparr/ddd/infrastructure/database/po"
)

// UserDAO 用户DAO
type UserDAO struct {
	db *gorm.DB
}

func NewUserDAO(db *gorm.DB) *UserDAO {
	return &UserDAO{db: db}
}

func (d *UserDAO) FindByID(ctx context.Context, id string) (*po.User, error) {
	var user po.User
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *UserDAO) FindByPlexID(ctx context.Context, plexID string) (*po.User, error) {
	var user po.User
	if err := d.db.WithContext(ctx).Where("plex_id = ?", plexID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *UserDAO) Create(ctx context.Context, user *po.User) error {
	return d.db.WithContext(ctx).Create(user).Error
}

// RefreshProfile 更新 Plex 资料与最近登录时间
func (d *UserDAO) RefreshProfile(ctx context.Context, id string, fields map[string]interface{}) error {
	return d.db.WithContext(ctx).Model(&po.User{}).Where("id = ?", id).Updates(fields).Error
}

// SessionDAO 会话DAO
type SessionDAO struct {
	db *gorm.DB
}

func NewSessionDAO(db *gorm.DB) *SessionDAO {
	return &SessionDAO{db: db}
}

func (d *SessionDAO) Create(ctx context.Context, session *po.Session) error {
	return d.db.WithContext(ctx).Create(session).Error
}

func (d *SessionDAO) FindByID(ctx context.Context, id string) (*po.Session, error) {
	var session po.Session
	if err := d.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (d *SessionDAO) Delete(ctx context.Context, id string) error {
	return d.db.WithContext(ctx).Where("id = ?", id).Delete(&po.Session{}).Error
}

func (d *SessionDAO) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := d.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&po.Session{})
	return res.RowsAffected, res.Error
}

// SettingDAO 设置DAO
type SettingDAO struct {
	db *gorm.DB
}

func NewSettingDAO(db *gorm.DB) *SettingDAO {
	return &SettingDAO{db: db}
}

func (d *SettingDAO) All(ctx context.Context) ([]*po.Setting, error) {
	var rows []*po.Setting
	if err := d.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Upsert writes rows, replacing value and updated_at on key conflict.
func (d *SettingDAO) Upsert(ctx context.Context, rows []*po.Setting) error {
	if len(rows) == 0 {
		return nil
	}
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
}
