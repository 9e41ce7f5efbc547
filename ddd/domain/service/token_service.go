package service

import (
	"time"

	"cliparr/ddd/domain/port"
)

const (
	SessionTokenTTL = 7 * 24 * time.Hour
	SegmentTokenTTL = 5 * time.Minute

	scopeSession = "session"
	scopeClip    = "clip"
	scopeSegment = "segment"
)

// SessionClaims 会话令牌载荷
type SessionClaims struct {
	UserID    string
	SessionID string
}

// ClipClaims 分享令牌载荷
type ClipClaims struct {
	ClipID    string
	ExpiresAt time.Time
}

// SegmentClaims 分片令牌载荷
type SegmentClaims struct {
	ClipID string
	Path   string
}

// TokenService issues the three token scopes on top of a Signer.
type TokenService struct {
	signer port.Signer
	now    func() time.Time
}

// NewTokenService 创建令牌服务
func NewTokenService(signer port.Signer) *TokenService {
	return &TokenService{signer: signer, now: time.Now}
}

// WithClock overrides the time source.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

func (s *TokenService) IssueSession(userID, sessionID string) (string, error) {
	return s.signer.Sign(map[string]any{
		"scope":     scopeSession,
		"userId":    userID,
		"sessionId": sessionID,
	}, SessionTokenTTL)
}

func (s *TokenService) VerifySession(token string) (*SessionClaims, bool) {
	claims, ok := s.verifyScope(token, scopeSession)
	if !ok {
		return nil, false
	}
	userID, _ := claims["userId"].(string)
	sessionID, _ := claims["sessionId"].(string)
	if userID == "" || sessionID == "" {
		return nil, false
	}
	return &SessionClaims{UserID: userID, SessionID: sessionID}, true
}

// IssueClip signs a share token that lives exactly as long as the clip.
func (s *TokenService) IssueClip(clipID string, expiresAt time.Time) (string, error) {
	return s.signer.Sign(map[string]any{
		"scope":  scopeClip,
		"clipId": clipID,
	}, expiresAt.Sub(s.now()))
}

func (s *TokenService) VerifyClip(token string) (*ClipClaims, bool) {
	claims, ok := s.verifyScope(token, scopeClip)
	if !ok {
		return nil, false
	}
	clipID, _ := claims["clipId"].(string)
	if clipID == "" {
		return nil, false
	}
	out := &ClipClaims{ClipID: clipID}
	if exp, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return out, true
}

// VerifyClipFor checks the token is a clip token for clipID.
func (s *TokenService) VerifyClipFor(token, clipID string) bool {
	claims, ok := s.VerifyClip(token)
	return ok && claims.ClipID == clipID
}

func (s *TokenService) IssueSegment(clipID, path string) (string, error) {
	return s.signer.Sign(map[string]any{
		"scope":  scopeSegment,
		"clipId": clipID,
		"seg":    path,
	}, SegmentTokenTTL)
}

func (s *TokenService) VerifySegment(token string) (*SegmentClaims, bool) {
	claims, ok := s.verifyScope(token, scopeSegment)
	if !ok {
		return nil, false
	}
	clipID, _ := claims["clipId"].(string)
	seg, _ := claims["seg"].(string)
	if clipID == "" {
		return nil, false
	}
	return &SegmentClaims{ClipID: clipID, Path: seg}, true
}

func (s *TokenService) verifyScope(token, scope string) (map[string]any, bool) {
	if token == "" {
		return nil, false
	}
	claims, ok := s.signer.Verify(token)
	if !ok {
		return nil, false
	}
	if got, _ := claims["scope"].(string); got != scope {
		return nil, false
	}
	return claims, true
}
