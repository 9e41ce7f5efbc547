package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"cliparr/ddd/domain/entity"
	"cliparr/ddd/domain/repo"
	"cliparr/ddd/infrastructure/database/convertor"
	"cliparr/ddd/infrastructure/database/dao"
	"cliparr/ddd/infrastructure/database/po"
	"cliparr/pkg/idgen"
)

type userRepositoryImpl struct {
	userDao   *dao.UserDAO
	convertor *convertor.AccountConvertor
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) repo.UserRepository {
	return &userRepositoryImpl{userDao: dao.NewUserDAO(db), convertor: convertor.NewAccountConvertor()}
}

// UpsertByPlexID keeps the local id and admin flag stable across logins.
// is_admin only ever moves from false to true here.
func (r *userRepositoryImpl) UpsertByPlexID(ctx context.Context, user *entity.UserEntity) (*entity.UserEntity, error) {
	now := time.Now().UTC()
	existing, err := r.userDao.FindByPlexID(ctx, user.PlexID)
	if err != nil && !dao.IsNotFound(err) {
		return nil, err
	}
	if existing == nil {
		user.ID = idgen.New()
		user.ClippingEnabled = true
		user.CreatedAt = now
		user.LastLoginAt = now
		if err := r.userDao.Create(ctx, r.convertor.UserToPO(user)); err != nil {
			return nil, err
		}
		return user, nil
	}

	fields := map[string]interface{}{
		"plex_username": user.PlexUsername,
		"plex_email":    nullable(user.PlexEmail),
		"plex_thumb":    nullable(user.PlexThumb),
		"last_login_at": now,
	}
	if user.IsAdmin && !existing.IsAdmin {
		fields["is_admin"] = true
	}
	if err := r.userDao.RefreshProfile(ctx, existing.ID, fields); err != nil {
		return nil, err
	}
	refreshed, err := r.userDao.FindByID(ctx, existing.ID)
	if err != nil {
		return nil, err
	}
	return r.convertor.UserToEntity(refreshed), nil
}

func (r *userRepositoryImpl) GetByID(ctx context.Context, id string) (*entity.UserEntity, error) {
	p, err := r.userDao.FindByID(ctx, id)
	if err != nil {
		if dao.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return r.convertor.UserToEntity(p), nil
}

type sessionRepositoryImpl struct {
	sessionDao *dao.SessionDAO
	convertor  *convertor.AccountConvertor
}

// NewSessionRepository 创建会话仓储
func NewSessionRepository(db *gorm.DB) repo.SessionRepository {
	return &sessionRepositoryImpl{sessionDao: dao.NewSessionDAO(db), convertor: convertor.NewAccountConvertor()}
}

func (r *sessionRepositoryImpl) Create(ctx context.Context, session *entity.SessionEntity) error {
	return r.sessionDao.Create(ctx, r.convertor.SessionToPO(session))
}

func (r *sessionRepositoryImpl) GetByID(ctx context.Context, id string) (*entity.SessionEntity, error) {
	p, err := r.sessionDao.FindByID(ctx, id)
	if err != nil {
		if dao.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return r.convertor.SessionToEntity(p), nil
}

func (r *sessionRepositoryImpl) Delete(ctx context.Context, id string) error {
	return r.sessionDao.Delete(ctx, id)
}

func (r *sessionRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.sessionDao.DeleteExpired(ctx, now.UTC())
}

type settingRepositoryImpl struct {
	settingDao *dao.SettingDAO
}

// NewSettingRepository 创建设置仓储
func NewSettingRepository(db *gorm.DB) repo.SettingRepository {
	return &settingRepositoryImpl{settingDao: dao.NewSettingDAO(db)}
}

func (r *settingRepositoryImpl) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.settingDao.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

func (r *settingRepositoryImpl) Upsert(ctx context.Context, values map[string]string) error {
	now := time.Now().UTC()
	rows := make([]*po.Setting, 0, len(values))
	for k, v := range values {
		rows = append(rows, &po.Setting{Key: k, Value: v, UpdatedAt: now})
	}
	return r.settingDao.Upsert(ctx, rows)
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
