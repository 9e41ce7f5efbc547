package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cliparr/ddd/domain/service"
)

func TestJWTSignerRoundTrip(t *testing.T) {
	s, err := NewJWTSigner("secret")
	require.NoError(t, err)

	tok, err := s.Sign(map[string]any{"clipId": "abc"}, time.Minute)
	require.NoError(t, err)

	claims, ok := s.Verify(tok)
	require.True(t, ok)
	assert.Equal(t, "abc", claims["clipId"])
}

func TestJWTSignerRejectsBadTokens(t *testing.T) {
	s, _ := NewJWTSigner("secret")
	other, _ := NewJWTSigner("other")

	tok, err := s.Sign(map[string]any{"clipId": "abc"}, time.Minute)
	require.NoError(t, err)

	expired, err := s.Sign(map[string]any{"clipId": "abc"}, -time.Minute)
	require.NoError(t, err)

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"wrong secret": mustSign(t, other),
		"expired":      expired,
		"tampered":     tok[:strings.LastIndex(tok, ".")] + ".AAAA",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := s.Verify(in)
			assert.False(t, ok)
		})
	}
}

func TestNewJWTSignerRequiresSecret(t *testing.T) {
	_, err := NewJWTSigner("")
	assert.Error(t, err)
}

func TestTokenServiceScopesDoNotCross(t *testing.T) {
	s, _ := NewJWTSigner("secret")
	ts := service.NewTokenService(s)

	session, err := ts.IssueSession("u1", "s1")
	require.NoError(t, err)
	clip, err := ts.IssueClip("c1", time.Now().Add(time.Hour))
	require.NoError(t, err)
	seg, err := ts.IssueSegment("c1", "v0/playlist.m3u8")
	require.NoError(t, err)

	sc, ok := ts.VerifySession(session)
	require.True(t, ok)
	assert.Equal(t, "u1", sc.UserID)
	assert.Equal(t, "s1", sc.SessionID)

	cc, ok := ts.VerifyClip(clip)
	require.True(t, ok)
	assert.Equal(t, "c1", cc.ClipID)
	assert.True(t, ts.VerifyClipFor(clip, "c1"))
	assert.False(t, ts.VerifyClipFor(clip, "c2"))

	gc, ok := ts.VerifySegment(seg)
	require.True(t, ok)
	assert.Equal(t, "v0/playlist.m3u8", gc.Path)

	_, ok = ts.VerifyClip(session)
	assert.False(t, ok)
	_, ok = ts.VerifySession(clip)
	assert.False(t, ok)
	_, ok = ts.VerifyClip(seg)
	assert.False(t, ok)
}

func TestClipTokenLivesAsLongAsTheClip(t *testing.T) {
	s, _ := NewJWTSigner("secret")
	ts := service.NewTokenService(s)

	past, err := ts.IssueClip("c1", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, ok := ts.VerifyClip(past)
	assert.False(t, ok)

	expiresAt := time.Now().Add(2 * time.Hour)
	tok, err := ts.IssueClip("c1", expiresAt)
	require.NoError(t, err)
	claims, ok := ts.VerifyClip(tok)
	require.True(t, ok)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt, 2*time.Second)
}

func mustSign(t *testing.T, s *JWTSigner) string {
	t.Helper()
	tok, err := s.Sign(map[string]any{"clipId": "abc"}, time.Minute)
	require.NoError(t, err)
	return tok
}
