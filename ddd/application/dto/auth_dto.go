package dto

import "cliparr/ddd/domain/entity"

// LoginDTO PIN 登录开始
type LoginDTO struct {
	PinID   int64  `json:"pinId"`
	Code    string `json:"code"`
	AuthURL string `json:"authUrl"`
}

// SessionUserDTO is the user summary returned after login.
type SessionUserDTO struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Thumb    string `json:"thumb"`
	IsAdmin  bool   `json:"isAdmin"`
}

// PollDTO PIN 轮询结果
type PollDTO struct {
	Authenticated bool            `json:"authenticated"`
	Token         string          `json:"token,omitempty"`
	User          *SessionUserDTO `json:"user,omitempty"`
}

// UserDTO 当前用户
type UserDTO struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Thumb           string `json:"thumb"`
	IsAdmin         bool   `json:"isAdmin"`
	ClippingEnabled bool   `json:"clippingEnabled"`
}

func NewUserDTO(u *entity.UserEntity) *UserDTO {
	return &UserDTO{
		ID:              u.ID,
		Username:        u.PlexUsername,
		Email:           u.PlexEmail,
		Thumb:           u.PlexThumb,
		IsAdmin:         u.IsAdmin,
		ClippingEnabled: u.ClippingEnabled,
	}
}

// Principal is the authenticated caller behind a session token.
type Principal struct {
	UserID    string
	SessionID string
	PlexToken string
	IsAdmin   bool
}
