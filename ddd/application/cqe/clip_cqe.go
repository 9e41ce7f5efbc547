package cqe

import (
	"bytes"
	"encoding/json"
	"strings"

	"cliparr/ddd/domain/vo"
	"cliparr/pkg/errno"
)

// CreateClipReq 创建剪辑请求
type CreateClipReq struct {
	RatingKey string  `json:"ratingKey"`
	StartMs   int64   `json:"startMs"`
	EndMs     int64   `json:"endMs"`
	Title     *string `json:"title"`
	TTLHours  *int    `json:"ttlHours"`
	MaxViews  *int    `json:"maxViews"`
}

// Validate checks the request against the current clip settings. Nothing is persisted on failure.
func (req *CreateClipReq) Validate(settings vo.ClipSettings) error {
	req.RatingKey = strings.TrimSpace(req.RatingKey)
	if req.RatingKey == "" {
		return errno.ErrRatingKeyMissing
	}
	if req.StartMs < 0 || req.EndMs < 0 {
		return errno.ErrClipRange
	}
	duration := req.EndMs - req.StartMs
	if duration <= 0 || duration > settings.MaxDurationMs() {
		return errno.Errorf(errno.ErrClipDuration, "Clip duration must be between 1ms and %d seconds", settings.MaxClipDuration)
	}
	if req.MaxViews != nil && *req.MaxViews < 1 {
		return errno.ErrMaxViewsInvalid
	}
	return nil
}

// RequestedTTL returns the requested ttl, 0 when absent.
func (req *CreateClipReq) RequestedTTL() int {
	if req.TTLHours == nil {
		return 0
	}
	return *req.TTLHours
}

// RequestedTitle returns the trimmed title, "" when absent.
func (req *CreateClipReq) RequestedTitle() string {
	if req.Title == nil {
		return ""
	}
	return strings.TrimSpace(*req.Title)
}

// ListClipsReq 剪辑列表查询
type ListClipsReq struct {
	Status string `form:"status"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalize 补全分页参数并校验状态过滤
func (req *ListClipsReq) Normalize() (*vo.ClipStatus, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit <= 0 {
		req.Limit = DefaultPageLimit
	}
	if req.Limit > MaxPageLimit {
		req.Limit = MaxPageLimit
	}
	if req.Status == "" {
		return nil, nil
	}
	status, err := vo.NewClipStatusFromString(req.Status)
	if err != nil {
		return nil, errno.Errorf(errno.ErrInvalidParam, "unknown status %q", req.Status)
	}
	return &status, nil
}

// Offset 计算偏移量
func (req *ListClipsReq) Offset() int {
	return (req.Page - 1) * req.Limit
}

// OptionalInt tells an absent JSON field apart from an explicit null.
type OptionalInt struct {
	Set   bool
	Value *int
}

func (o *OptionalInt) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// UpdateClipReq 剪辑更新请求，未出现的字段不做修改；maxViews 为 null 时取消观看上限
type UpdateClipReq struct {
	Title    *string     `json:"title"`
	TTLHours *int        `json:"ttlHours"`
	MaxViews OptionalInt `json:"maxViews"`
}

func (req *UpdateClipReq) Validate() error {
	if req.TTLHours != nil && *req.TTLHours < 1 {
		return errno.ErrTTLInvalid
	}
	if req.MaxViews.Set && req.MaxViews.Value != nil && *req.MaxViews.Value < 1 {
		return errno.ErrMaxViewsInvalid
	}
	return nil
}

// RecordViewReq 观看记录
type RecordViewReq struct {
	ClipID          string
	SessionKey      string
	WatchDurationMs int64
	WatchPercentage float64
	UserAgent       string
}

// RecordViewBody is the player's JSON payload.
type RecordViewBody struct {
	SessionID       string  `json:"sessionId"`
	WatchDurationMs int64   `json:"watchDurationMs"`
	WatchPercentage float64 `json:"watchPercentage"`
}

func (b *RecordViewBody) Validate() error {
	if b.WatchDurationMs < 0 {
		return errno.Errorf(errno.ErrInvalidParam, "watchDurationMs must not be negative")
	}
	return nil
}
