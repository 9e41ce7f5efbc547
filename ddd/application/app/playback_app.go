package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"cliparr/ddd/application/dto"
	"cliparr/ddd/domain/entity"
	"cliparr/ddd/domain/repo"
	"cliparr/ddd/domain/service"
	"cliparr/ddd/domain/vo"
	"cliparr/pkg/errno"
	"cliparr/pkg/logger"
)

const masterPlaylist = "master.m3u8"

// ArtifactLocator maps a path relative to the clips root onto local disk.
type ArtifactLocator interface {
	Path(rel string) (string, error)
}

// ClipPage is everything the public clip page renders.
type ClipPage struct {
	Data         dto.ClipPageData
	Title        string
	Description  string
	PageURL      string
	ThumbnailURL string
	StreamURL    string
	// Gone is set when the clip is missing, expired or out of views.
	Gone bool
}

// PlaybackApp 公开播放页与 HLS 流网关
type PlaybackApp interface {
	// Page 构建公开播放页数据
	Page(ctx context.Context, clipID, token string) (*ClipPage, error)
	// MasterPlaylist consumes one view and returns the master playlist with signed variant URIs.
	MasterPlaylist(ctx context.Context, clipID, token string) (string, error)
	// VariantPlaylist returns a rendition playlist whose segment URIs each carry a segment token.
	VariantPlaylist(ctx context.Context, clipID, rel, segmentToken string) (string, error)
	// SegmentFile returns the local path of an authorized media segment.
	SegmentFile(ctx context.Context, clipID, rel, segmentToken string) (string, error)
	// VerifyClipToken 校验分享令牌是否属于该剪辑
	VerifyClipToken(clipID, token string) bool
}

type playbackAppImpl struct {
	clips   repo.ClipRepository
	views   ViewApp
	tokens  *service.TokenService
	files   ArtifactLocator
	baseURL string
	now     func() time.Time
}

func NewPlaybackApp(clips repo.ClipRepository, views ViewApp, tokens *service.TokenService, files ArtifactLocator, baseURL string) PlaybackApp {
	return &playbackAppImpl{
		clips:   clips,
		views:   views,
		tokens:  tokens,
		files:   files,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func (p *playbackAppImpl) VerifyClipToken(clipID, token string) bool {
	return p.tokens.VerifyClipFor(token, clipID)
}

func (p *playbackAppImpl) Page(ctx context.Context, clipID, token string) (*ClipPage, error) {
	clip, err := p.clips.GetByID(ctx, clipID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}

	gone := !p.views.Accessible(clip, p.now())
	valid := !gone && p.tokens.VerifyClipFor(token, clipID)

	page := &ClipPage{
		Title:   "Shared Clip",
		PageURL: p.baseURL + "/c/" + clipID + "?t=" + token,
		Gone:    gone,
		Data: dto.ClipPageData{
			ClipID:    clipID,
			IsExpired: gone,
			IsValid:   valid,
		},
	}
	var durationSec int64
	if clip != nil {
		title := clip.TitleOrEmpty()
		if title == "" {
			title = clip.MediaTitle()
		}
		page.Title = title
		mediaTitle := clip.MediaTitle()
		duration := clip.DurationMs()
		page.Data.Title = &title
		page.Data.MediaTitle = &mediaTitle
		page.Data.DurationMs = &duration
		durationSec = (duration + 500) / 1000
		if thumb := dto.ThumbnailURL(clip); thumb != nil {
			page.ThumbnailURL = p.baseURL + *thumb
			page.Data.ThumbnailURL = &page.ThumbnailURL
		}
	}
	page.Description = fmt.Sprintf("Watch this %d:%02d clip shared via Cliparr", durationSec/60, durationSec%60)
	if valid {
		page.StreamURL = "/stream/" + clipID + "/" + masterPlaylist + "?t=" + url.QueryEscape(token)
		page.Data.StreamURL = &page.StreamURL
	}
	return page, nil
}

func (p *playbackAppImpl) MasterPlaylist(ctx context.Context, clipID, token string) (string, error) {
	if !p.tokens.VerifyClipFor(token, clipID) {
		return "", errno.ErrTokenInvalid
	}
	clip, err := p.playable(ctx, clipID)
	if err != nil {
		return "", err
	}
	granted, err := p.views.ConsumeView(ctx, clipID)
	if err != nil {
		return "", err
	}
	if !granted {
		return "", errno.ErrViewLimit
	}

	body, err := p.readPlaylist(clip.ArtifactDir(), masterPlaylist)
	if err != nil {
		return "", err
	}
	return p.signURIs(body, clipID, "")
}

func (p *playbackAppImpl) VariantPlaylist(ctx context.Context, clipID, rel, segmentToken string) (string, error) {
	rel, err := cleanStreamPath(rel, ".m3u8")
	if err != nil {
		return "", err
	}
	if !p.segmentAllowed(clipID, rel, segmentToken) {
		return "", errno.ErrTokenInvalid
	}
	clip, err := p.playable(ctx, clipID)
	if err != nil {
		return "", err
	}
	body, err := p.readPlaylist(clip.ArtifactDir(), rel)
	if err != nil {
		return "", err
	}
	return p.signURIs(body, clipID, path.Dir(rel))
}

func (p *playbackAppImpl) SegmentFile(ctx context.Context, clipID, rel, segmentToken string) (string, error) {
	rel, err := cleanStreamPath(rel, ".ts")
	if err != nil {
		return "", err
	}
	if !p.segmentAllowed(clipID, rel, segmentToken) {
		return "", errno.ErrTokenInvalid
	}
	clip, err := p.clips.GetByID(ctx, clipID)
	if err != nil {
		return "", errno.NewBizError(errno.ErrDatabase, err)
	}
	if clip == nil || clip.Status() == vo.ClipStatusExpired {
		return "", errno.ErrClipGone
	}
	full, err := p.files.Path(path.Join(clip.ArtifactDir(), rel))
	if err != nil {
		return "", errno.ErrNotFound
	}
	if _, err := os.Stat(full); err != nil {
		return "", errno.ErrNotFound
	}
	return full, nil
}

// segmentAllowed accepts a token minted for rel itself or, for segments, for any file of the same rendition.
func (p *playbackAppImpl) segmentAllowed(clipID, rel, token string) bool {
	claims, ok := p.tokens.VerifySegment(token)
	if !ok || claims.ClipID != clipID {
		return false
	}
	if claims.Path == rel {
		return true
	}
	return strings.HasSuffix(rel, ".ts") && path.Dir(claims.Path) == path.Dir(rel) && path.Dir(rel) != "."
}

func (p *playbackAppImpl) playable(ctx context.Context, clipID string) (*entity.ClipEntity, error) {
	clip, err := p.clips.GetByID(ctx, clipID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	if clip == nil {
		return nil, errno.ErrClipNotFound
	}
	now := p.now()
	if clip.Status() == vo.ClipStatusExpired || !clip.ExpiresAt().After(now) {
		return nil, errno.ErrClipGone
	}
	if clip.Status() != vo.ClipStatusReady {
		return nil, errno.ErrClipNotReady
	}
	return clip, nil
}

func (p *playbackAppImpl) readPlaylist(dir, rel string) (string, error) {
	full, err := p.files.Path(path.Join(dir, rel))
	if err != nil {
		return "", errno.ErrNotFound
	}
	b, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", errno.ErrNotFound
		}
		return "", errno.NewBizError(errno.ErrInternalServer, err)
	}
	return string(b), nil
}

// signURIs appends a segment token to every URI line. Tokens are bound to the URI resolved against base.
func (p *playbackAppImpl) signURIs(body, clipID, base string) (string, error) {
	var out strings.Builder
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}
		uri := strings.SplitN(trimmed, "?", 2)[0]
		target := path.Clean(path.Join(base, uri))
		st, err := p.tokens.IssueSegment(clipID, target)
		if err != nil {
			return "", errno.NewBizError(errno.ErrInternalServer, err)
		}
		out.WriteString(uri + "?st=" + url.QueryEscape(st))
		out.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		logger.Warn("Failed to scan playlist", map[string]interface{}{"clip_id": clipID, "error": err.Error()})
		return "", errno.NewBizError(errno.ErrInternalServer, err)
	}
	return out.String(), nil
}

// cleanStreamPath normalizes a client supplied path and restricts it to ext.
func cleanStreamPath(rel, ext string) (string, error) {
	rel = strings.TrimPrefix(rel, "/")
	clean := path.Clean(rel)
	if clean == "." || strings.HasPrefix(clean, "..") || path.IsAbs(clean) || path.Ext(clean) != ext {
		return "", errno.ErrNotFound
	}
	return clean, nil
}
