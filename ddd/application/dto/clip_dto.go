package dto

import (
	"time"

	"cliparr/ddd/domain/entity"
	"cliparr/ddd/domain/repo"
)

// CreateClipResp 创建剪辑响应
type CreateClipResp struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	ShareURL    string    `json:"shareUrl"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	DurationMs  int64     `json:"durationMs"`
}

// ClipDTO 剪辑详情
type ClipDTO struct {
	ID            string    `json:"id"`
	Title         *string   `json:"title"`
	MediaTitle    string    `json:"mediaTitle"`
	MediaType     string    `json:"mediaType"`
	SeasonEpisode *string   `json:"seasonEpisode"`
	DurationMs    int64     `json:"durationMs"`
	StartMs       int64     `json:"startMs"`
	EndMs         int64     `json:"endMs"`
	Status        string    `json:"status"`
	ThumbnailPath *string   `json:"thumbnailPath"`
	ShareURL      string    `json:"shareUrl"`
	ErrorMessage  *string   `json:"errorMessage,omitempty"`
	TTLHours      int       `json:"ttlHours"`
	MaxViews      *int      `json:"maxViews"`
	ViewCount     int       `json:"viewCount"`
	ExpiresAt     time.Time `json:"expiresAt"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ClipListDTO 剪辑分页列表
type ClipListDTO struct {
	Clips []*ClipDTO `json:"clips"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

// ShareURL builds the public page link for a clip.
func ShareURL(baseURL, clipID, token string) string {
	return baseURL + "/c/" + clipID + "?t=" + token
}

// ThumbnailURL is the public thumbnail route, nil until the clip is rendered.
func ThumbnailURL(c *entity.ClipEntity) *string {
	if c.ThumbnailPath() == nil || *c.ThumbnailPath() == "" {
		return nil
	}
	p := "/clips/" + *c.ThumbnailPath()
	return &p
}

// NewClipDTO 实体转 DTO
func NewClipDTO(c *entity.ClipEntity, baseURL string) *ClipDTO {
	return &ClipDTO{
		ID:            c.ID(),
		Title:         c.Title(),
		MediaTitle:    c.MediaTitle(),
		MediaType:     c.MediaType().String(),
		SeasonEpisode: c.SeasonEpisode(),
		DurationMs:    c.DurationMs(),
		StartMs:       c.StartMs(),
		EndMs:         c.EndMs(),
		Status:        c.Status().String(),
		ThumbnailPath: ThumbnailURL(c),
		ShareURL:      ShareURL(baseURL, c.ID(), c.AccessToken()),
		ErrorMessage:  c.ErrorMessage(),
		TTLHours:      c.TTLHours(),
		MaxViews:      c.MaxViews(),
		ViewCount:     c.ViewCount(),
		ExpiresAt:     c.ExpiresAt(),
		CreatedAt:     c.CreatedAt(),
		UpdatedAt:     c.UpdatedAt(),
	}
}

// ViewDTO 单次观看
type ViewDTO struct {
	WatchDurationMs int64     `json:"watchDurationMs"`
	WatchPercentage float64   `json:"watchPercentage"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ClipAnalyticsDTO 剪辑观看统计
type ClipAnalyticsDTO struct {
	ClipID             string     `json:"clipId"`
	TotalViews         int        `json:"totalViews"`
	UniqueViewers      int64      `json:"uniqueViewers"`
	AvgWatchPercentage float64    `json:"avgWatchPercentage"`
	Views              []*ViewDTO `json:"views"`
}

// NewClipAnalyticsDTO rounds the average to two decimals.
func NewClipAnalyticsDTO(c *entity.ClipEntity, stats repo.ClipViewStats, views []*entity.ClipViewEntity) *ClipAnalyticsDTO {
	out := &ClipAnalyticsDTO{
		ClipID:             c.ID(),
		TotalViews:         c.ViewCount(),
		UniqueViewers:      stats.UniqueViewers,
		AvgWatchPercentage: round2(stats.AvgWatchPercentage),
		Views:              make([]*ViewDTO, 0, len(views)),
	}
	for _, v := range views {
		out.Views = append(out.Views, &ViewDTO{
			WatchDurationMs: v.WatchDurationMs,
			WatchPercentage: v.WatchPercentage,
			CreatedAt:       v.CreatedAt,
		})
	}
	return out
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
