package convertor

import (
	"cliparr/ddd/domain/entity"
	"cliparr/ddd/infrastructure/database/po"
)

// AccountConvertor 用户与会话转换器
type AccountConvertor struct{}

func NewAccountConvertor() *AccountConvertor {
	return &AccountConvertor{}
}

func (c *AccountConvertor) UserToEntity(p *po.User) *entity.UserEntity {
	if p == nil {
		return nil
	}
	u := &entity.UserEntity{
		ID:              p.ID,
		PlexID:          p.PlexID,
		PlexUsername:    p.PlexUsername,
		IsAdmin:         p.IsAdmin,
		ClippingEnabled: p.ClippingEnabled,
		CreatedAt:       p.CreatedAt,
	}
	if p.PlexEmail != nil {
		u.PlexEmail = *p.PlexEmail
	}
	if p.PlexThumb != nil {
		u.PlexThumb = *p.PlexThumb
	}
	if p.LastLoginAt != nil {
		u.LastLoginAt = *p.LastLoginAt
	}
	return u
}

func (c *AccountConvertor) UserToPO(e *entity.UserEntity) *po.User {
	p := &po.User{
		ID:              e.ID,
		PlexID:          e.PlexID,
		PlexUsername:    e.PlexUsername,
		PlexEmail:       optional(e.PlexEmail),
		PlexThumb:       optional(e.PlexThumb),
		IsAdmin:         e.IsAdmin,
		ClippingEnabled: e.ClippingEnabled,
		CreatedAt:       e.CreatedAt.UTC(),
	}
	if !e.LastLoginAt.IsZero() {
		t := e.LastLoginAt.UTC()
		p.LastLoginAt = &t
	}
	return p
}

func (c *AccountConvertor) SessionToEntity(p *po.Session) *entity.SessionEntity {
	if p == nil {
		return nil
	}
	return &entity.SessionEntity{
		ID:        p.ID,
		UserID:    p.UserID,
		PlexToken: p.PlexToken,
		ExpiresAt: p.ExpiresAt,
		CreatedAt: p.CreatedAt,
	}
}

func (c *AccountConvertor) SessionToPO(e *entity.SessionEntity) *po.Session {
	return &po.Session{
		ID:        e.ID,
		UserID:    e.UserID,
		PlexToken: e.PlexToken,
		ExpiresAt: e.ExpiresAt.UTC(),
		CreatedAt: e.CreatedAt.UTC(),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
