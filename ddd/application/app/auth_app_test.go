package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cliparr/ddd/domain/port"
	"cliparr/ddd/infrastructure/database/persistence"
	"cliparr/pkg/errno"
)

type fakePlex struct {
	claimed bool
	owner   bool
	userErr error
	lastPin string
}

func (f *fakePlex) CreatePin(context.Context) (*port.PlexPin, error) {
	return &port.PlexPin{ID: 77, Code: "ABCD"}, nil
}

func (f *fakePlex) CheckPin(_ context.Context, pinID string) (*port.PlexPin, error) {
	f.lastPin = pinID
	if !f.claimed {
		return &port.PlexPin{ID: 77}, nil
	}
	return &port.PlexPin{ID: 77, Code: "ABCD", AuthToken: "plex-auth"}, nil
}

func (f *fakePlex) AuthURL(code string) string { return "https://app.plex.tv/auth#?code=" + code }

func (f *fakePlex) User(context.Context, string) (*port.PlexUser, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	return &port.PlexUser{ID: "9001", Username: "alice", Email: "a@example.com", Thumb: "https://plex.tv/a.png"}, nil
}

func (f *fakePlex) IsServerOwner(context.Context, string) (bool, error) { return f.owner, nil }

func newAuthApp(t *testing.T, plex *fakePlex) AuthApp {
	db := openTestDB(t)
	return NewAuthApp(plex, persistence.NewUserRepository(db), persistence.NewSessionRepository(db), newTokens(t))
}

func TestLoginFlow(t *testing.T) {
	ctx := context.Background()
	plex := &fakePlex{owner: true}
	auth := newAuthApp(t, plex)

	start, err := auth.StartLogin(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(77), start.PinID)
	assert.Contains(t, start.AuthURL, "ABCD")

	poll, err := auth.PollLogin(ctx, "77")
	require.NoError(t, err)
	assert.False(t, poll.Authenticated)
	assert.Empty(t, poll.Token)

	plex.claimed = true
	poll, err = auth.PollLogin(ctx, "77")
	require.NoError(t, err)
	require.True(t, poll.Authenticated)
	require.NotNil(t, poll.User)
	assert.Equal(t, "alice", poll.User.Username)
	assert.True(t, poll.User.IsAdmin)

	principal, err := auth.Authenticate(ctx, poll.Token)
	require.NoError(t, err)
	assert.Equal(t, poll.User.ID, principal.UserID)
	assert.Equal(t, "plex-auth", principal.PlexToken)
	assert.True(t, principal.IsAdmin)

	me, err := auth.Me(ctx, principal.UserID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", me.Email)
	assert.True(t, me.ClippingEnabled)

	require.NoError(t, auth.Logout(ctx, principal.SessionID))
	_, err = auth.Authenticate(ctx, poll.Token)
	assert.ErrorIs(t, err, errno.ErrSessionInvalid)
}

func TestPollLoginErrors(t *testing.T) {
	ctx := context.Background()
	plex := &fakePlex{claimed: true, userErr: errors.New("401")}
	auth := newAuthApp(t, plex)

	for _, id := range []string{"", "abc", "0"} {
		_, err := auth.PollLogin(ctx, id)
		assert.ErrorIs(t, err, errno.ErrPinRequired)
	}

	_, err := auth.PollLogin(ctx, "77")
	assert.ErrorIs(t, err, errno.ErrPlexAuth)
	assert.Equal(t, 502, errno.HTTPStatus(err))
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	auth := newAuthApp(t, &fakePlex{})

	_, err := auth.Authenticate(ctx, "")
	assert.ErrorIs(t, err, errno.ErrUnauthorized)
	_, err = auth.Authenticate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, errno.ErrSessionInvalid)

	// 签名有效但会话不存在
	tok, err := newTokens(t).IssueSession("u1", "ghost")
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, tok)
	assert.ErrorIs(t, err, errno.ErrSessionInvalid)
}
