package entity

import (
	"time"

	"cliparr/ddd/domain/vo"
)

// ClipEntity 剪辑聚合根
type ClipEntity struct {
	id            string
	userID        string
	ratingKey     string
	filePath      string
	title         *string
	mediaTitle    string
	mediaYear     *int
	mediaType     vo.MediaType
	seasonEpisode *string
	startMs       int64
	endMs         int64
	durationMs    int64
	status        vo.ClipStatus
	hlsPath       *string
	thumbnailPath *string
	errorMessage  *string
	accessToken   string
	ttlHours      int
	maxViews      *int
	viewCount     int
	expiresAt     time.Time
	createdAt     time.Time
	updatedAt     time.Time
}

// ClipSnapshot carries every clip field across the persistence boundary.
type ClipSnapshot struct {
	ID            string
	UserID        string
	RatingKey     string
	FilePath      string
	Title         *string
	MediaTitle    string
	MediaYear     *int
	MediaType     vo.MediaType
	SeasonEpisode *string
	StartMs       int64
	EndMs         int64
	DurationMs    int64
	Status        vo.ClipStatus
	HLSPath       *string
	ThumbnailPath *string
	ErrorMessage  *string
	AccessToken   string
	TTLHours      int
	MaxViews      *int
	ViewCount     int
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewClipEntity 创建 pending 状态的剪辑
func NewClipEntity(id, userID string, media vo.MediaItem, title string, startMs, endMs int64, ttlHours int, maxViews *int, now time.Time) *ClipEntity {
	t := title
	return &ClipEntity{
		id:            id,
		userID:        userID,
		ratingKey:     media.RatingKey,
		filePath:      media.FilePath,
		title:         &t,
		mediaTitle:    media.DisplayTitle(),
		mediaYear:     media.Year,
		mediaType:     media.Type,
		seasonEpisode: media.SeasonEpisode(),
		startMs:       startMs,
		endMs:         endMs,
		durationMs:    endMs - startMs,
		status:        vo.ClipStatusPending,
		ttlHours:      ttlHours,
		maxViews:      maxViews,
		expiresAt:     now.Add(time.Duration(ttlHours) * time.Hour),
		createdAt:     now,
		updatedAt:     now,
	}
}

// RestoreClipEntity rebuilds an entity from stored state.
func RestoreClipEntity(s ClipSnapshot) *ClipEntity {
	return &ClipEntity{
		id:            s.ID,
		userID:        s.UserID,
		ratingKey:     s.RatingKey,
		filePath:      s.FilePath,
		title:         s.Title,
		mediaTitle:    s.MediaTitle,
		mediaYear:     s.MediaYear,
		mediaType:     s.MediaType,
		seasonEpisode: s.SeasonEpisode,
		startMs:       s.StartMs,
		endMs:         s.EndMs,
		durationMs:    s.DurationMs,
		status:        s.Status,
		hlsPath:       s.HLSPath,
		thumbnailPath: s.ThumbnailPath,
		errorMessage:  s.ErrorMessage,
		accessToken:   s.AccessToken,
		ttlHours:      s.TTLHours,
		maxViews:      s.MaxViews,
		viewCount:     s.ViewCount,
		expiresAt:     s.ExpiresAt,
		createdAt:     s.CreatedAt,
		updatedAt:     s.UpdatedAt,
	}
}

// Snapshot 导出全部字段
func (c *ClipEntity) Snapshot() ClipSnapshot {
	return ClipSnapshot{
		ID:            c.id,
		UserID:        c.userID,
		RatingKey:     c.ratingKey,
		FilePath:      c.filePath,
		Title:         c.title,
		MediaTitle:    c.mediaTitle,
		MediaYear:     c.mediaYear,
		MediaType:     c.mediaType,
		SeasonEpisode: c.seasonEpisode,
		StartMs:       c.startMs,
		EndMs:         c.endMs,
		DurationMs:    c.durationMs,
		Status:        c.status,
		HLSPath:       c.hlsPath,
		ThumbnailPath: c.thumbnailPath,
		ErrorMessage:  c.errorMessage,
		AccessToken:   c.accessToken,
		TTLHours:      c.ttlHours,
		MaxViews:      c.maxViews,
		ViewCount:     c.viewCount,
		ExpiresAt:     c.expiresAt,
		CreatedAt:     c.createdAt,
		UpdatedAt:     c.updatedAt,
	}
}

// Getters
func (c *ClipEntity) ID() string                { return c.id }
func (c *ClipEntity) UserID() string            { return c.userID }
func (c *ClipEntity) RatingKey() string         { return c.ratingKey }
func (c *ClipEntity) FilePath() string          { return c.filePath }
func (c *ClipEntity) Title() *string            { return c.title }
func (c *ClipEntity) MediaTitle() string        { return c.mediaTitle }
func (c *ClipEntity) MediaYear() *int           { return c.mediaYear }
func (c *ClipEntity) MediaType() vo.MediaType   { return c.mediaType }
func (c *ClipEntity) SeasonEpisode() *string    { return c.seasonEpisode }
func (c *ClipEntity) StartMs() int64            { return c.startMs }
func (c *ClipEntity) EndMs() int64              { return c.endMs }
func (c *ClipEntity) DurationMs() int64         { return c.durationMs }
func (c *ClipEntity) Status() vo.ClipStatus     { return c.status }
func (c *ClipEntity) HLSPath() *string          { return c.hlsPath }
func (c *ClipEntity) ThumbnailPath() *string    { return c.thumbnailPath }
func (c *ClipEntity) ErrorMessage() *string     { return c.errorMessage }
func (c *ClipEntity) AccessToken() string       { return c.accessToken }
func (c *ClipEntity) TTLHours() int             { return c.ttlHours }
func (c *ClipEntity) MaxViews() *int            { return c.maxViews }
func (c *ClipEntity) ViewCount() int            { return c.viewCount }
func (c *ClipEntity) ExpiresAt() time.Time      { return c.expiresAt }
func (c *ClipEntity) CreatedAt() time.Time      { return c.createdAt }
func (c *ClipEntity) UpdatedAt() time.Time      { return c.updatedAt }

// TitleOrEmpty 返回标题，未设置时为空串
func (c *ClipEntity) TitleOrEmpty() string {
	if c.title == nil {
		return ""
	}
	return *c.title
}

// ArtifactDir is the directory name under the clips root holding this clip's files.
func (c *ClipEntity) ArtifactDir() string {
	if c.hlsPath != nil && *c.hlsPath != "" {
		return *c.hlsPath
	}
	return c.id
}

// SetAccessToken 设置访问令牌
func (c *ClipEntity) SetAccessToken(token string) {
	c.accessToken = token
}

// TransitionTo moves the clip along the lifecycle graph.
func (c *ClipEntity) TransitionTo(target vo.ClipStatus, now time.Time) error {
	if !c.status.CanTransitionTo(target) {
		return NewDomainError("cannot move clip from " + c.status.String() + " to " + target.String())
	}
	c.status = target
	c.updatedAt = now
	return nil
}

// Rename 修改标题
func (c *ClipEntity) Rename(title string, now time.Time) {
	c.title = &title
	c.updatedAt = now
}

// SetMaxViews 设置观看上限，nil 表示不限
func (c *ClipEntity) SetMaxViews(maxViews *int, now time.Time) {
	c.maxViews = maxViews
	c.updatedAt = now
}

// ExtendTTL recomputes expiresAt from now and revives an expired clip.
// The caller must reissue the access token afterwards.
func (c *ClipEntity) ExtendTTL(ttlHours int, now time.Time) {
	c.ttlHours = ttlHours
	c.expiresAt = now.Add(time.Duration(ttlHours) * time.Hour)
	if c.status == vo.ClipStatusExpired {
		c.status = vo.ClipStatusReady
	}
	c.updatedAt = now
}

// IsAccessible reports whether the clip may still be watched at now.
func (c *ClipEntity) IsAccessible(now time.Time) bool {
	if !c.expiresAt.After(now) {
		return false
	}
	if c.status == vo.ClipStatusExpired {
		return false
	}
	if c.maxViews != nil && c.viewCount >= *c.maxViews {
		return false
	}
	return true
}
