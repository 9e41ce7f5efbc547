package entity

import "time"

// UserEntity is a Plex account that has signed in at least once.
type UserEntity struct {
	ID              string
	PlexID          string
	PlexUsername    string
	PlexEmail       string
	PlexThumb       string
	IsAdmin         bool
	ClippingEnabled bool
	CreatedAt       time.Time
	LastLoginAt     time.Time
}

// SessionEntity 登录会话
type SessionEntity struct {
	ID        string
	UserID    string
	PlexToken string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired 会话是否过期
func (s *SessionEntity) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
