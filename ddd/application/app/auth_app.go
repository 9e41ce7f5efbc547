package app

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"cliparr/ddd/application/dto"
	"cliparr/ddd/domain/entity"
	"cliparr/ddd/domain/port"
	"cliparr/ddd/domain/repo"
	"cliparr/ddd/domain/service"
	"cliparr/pkg/errno"
	"cliparr/pkg/logger"
)

// AuthApp Plex PIN 登录与会话
type AuthApp interface {
	// StartLogin 创建 PIN 并返回授权地址
	StartLogin(ctx context.Context) (*dto.LoginDTO, error)
	// PollLogin finishes the login once the PIN has been claimed.
	PollLogin(ctx context.Context, pinID string) (*dto.PollDTO, error)
	// Authenticate resolves a session token into the calling principal.
	Authenticate(ctx context.Context, token string) (*dto.Principal, error)
	// Me 当前用户信息
	Me(ctx context.Context, userID string) (*dto.UserDTO, error)
	// Logout 删除会话
	Logout(ctx context.Context, sessionID string) error
}

type authAppImpl struct {
	plex     port.PlexAccount
	users    repo.UserRepository
	sessions repo.SessionRepository
	tokens   *service.TokenService
	now      func() time.Time
}

func NewAuthApp(plex port.PlexAccount, users repo.UserRepository, sessions repo.SessionRepository, tokens *service.TokenService) AuthApp {
	return &authAppImpl{
		plex:     plex,
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		now:      time.Now,
	}
}

func (a *authAppImpl) StartLogin(ctx context.Context) (*dto.LoginDTO, error) {
	pin, err := a.plex.CreatePin(ctx)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrPlexAuth, err)
	}
	return &dto.LoginDTO{PinID: pin.ID, Code: pin.Code, AuthURL: a.plex.AuthURL(pin.Code)}, nil
}

func (a *authAppImpl) PollLogin(ctx context.Context, pinID string) (*dto.PollDTO, error) {
	pinID = strings.TrimSpace(pinID)
	if id, err := strconv.ParseInt(pinID, 10, 64); err != nil || id <= 0 {
		return nil, errno.ErrPinRequired
	}

	pin, err := a.plex.CheckPin(ctx, pinID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrPlexAuth, err)
	}
	if pin.AuthToken == "" {
		return &dto.PollDTO{Authenticated: false}, nil
	}

	plexUser, err := a.plex.User(ctx, pin.AuthToken)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrPlexAuth, err)
	}
	admin, err := a.plex.IsServerOwner(ctx, pin.AuthToken)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrPlexAuth, err)
	}

	user, err := a.users.UpsertByPlexID(ctx, &entity.UserEntity{
		PlexID:       plexUser.ID,
		PlexUsername: plexUser.Username,
		PlexEmail:    plexUser.Email,
		PlexThumb:    plexUser.Thumb,
		IsAdmin:      admin,
	})
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}

	now := a.now()
	session := &entity.SessionEntity{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		PlexToken: pin.AuthToken,
		ExpiresAt: now.Add(service.SessionTokenTTL),
		CreatedAt: now,
	}
	if err := a.sessions.Create(ctx, session); err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	token, err := a.tokens.IssueSession(user.ID, session.ID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrInternalServer, err)
	}

	logger.Info("User signed in", map[string]interface{}{
		"user_id":  user.ID,
		"username": user.PlexUsername,
		"admin":    user.IsAdmin,
	})
	return &dto.PollDTO{
		Authenticated: true,
		Token:         token,
		User: &dto.SessionUserDTO{
			ID:       user.ID,
			Username: user.PlexUsername,
			Thumb:    user.PlexThumb,
			IsAdmin:  user.IsAdmin,
		},
	}, nil
}

func (a *authAppImpl) Authenticate(ctx context.Context, token string) (*dto.Principal, error) {
	if token == "" {
		return nil, errno.ErrUnauthorized
	}
	claims, ok := a.tokens.VerifySession(token)
	if !ok {
		return nil, errno.ErrSessionInvalid
	}
	session, err := a.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	if session == nil || session.UserID != claims.UserID || session.IsExpired(a.now()) {
		return nil, errno.ErrSessionInvalid
	}
	user, err := a.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	if user == nil {
		return nil, errno.ErrSessionInvalid
	}
	return &dto.Principal{
		UserID:    user.ID,
		SessionID: session.ID,
		PlexToken: session.PlexToken,
		IsAdmin:   user.IsAdmin,
	}, nil
}

func (a *authAppImpl) Me(ctx context.Context, userID string) (*dto.UserDTO, error) {
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	if user == nil {
		return nil, errno.ErrUserNotFound
	}
	return dto.NewUserDTO(user), nil
}

func (a *authAppImpl) Logout(ctx context.Context, sessionID string) error {
	if err := a.sessions.Delete(ctx, sessionID); err != nil {
		return errno.NewBizError(errno.ErrDatabase, err)
	}
	return nil
}
