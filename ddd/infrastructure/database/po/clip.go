package po

import "time"

// Clip 剪辑持久化对象
type Clip struct {
	ID            string    `gorm:"column:id;type:varchar(32);primaryKey" json:"id"`
	UserID        string    `gorm:"column:user_id;type:varchar(32);index;not null" json:"user_id"`
	Title         *string   `gorm:"column:title;type:varchar(255)" json:"title"`
	RatingKey     string    `gorm:"column:rating_key;type:varchar(64);not null" json:"rating_key"`
	MediaTitle    string    `gorm:"column:media_title;type:varchar(512);not null" json:"media_title"`
	MediaYear     *int      `gorm:"column:media_year" json:"media_year"`
	MediaType     string    `gorm:"column:media_type;type:varchar(20);not null" json:"media_type"` // movie, episode
	SeasonEpisode *string   `gorm:"column:season_episode;type:varchar(16)" json:"season_episode"`
	FilePath      string    `gorm:"column:file_path;type:varchar(1024);not null" json:"file_path"`
	StartMs       int64     `gorm:"column:start_ms;not null" json:"start_ms"`
	EndMs         int64     `gorm:"column:end_ms;not null" json:"end_ms"`
	DurationMs    int64     `gorm:"column:duration_ms;not null" json:"duration_ms"`
	Status        string    `gorm:"column:status;type:varchar(20);index;not null;default:pending" json:"status"` // pending, transcoding, ready, failed, expired
	HLSPath       *string   `gorm:"column:hls_path;type:varchar(255)" json:"hls_path"`
	ThumbnailPath *string   `gorm:"column:thumbnail_path;type:varchar(255)" json:"thumbnail_path"`
	ErrorMessage  *string   `gorm:"column:error_message;type:varchar(512)" json:"error_message"`
	AccessToken   string    `gorm:"column:access_token;type:text;not null" json:"access_token"`
	TTLHours      int       `gorm:"column:ttl_hours;not null" json:"ttl_hours"`
	MaxViews      *int      `gorm:"column:max_views" json:"max_views"` // null 表示不限
	ViewCount     int       `gorm:"column:view_count;not null;default:0" json:"view_count"`
	ExpiresAt     time.Time `gorm:"column:expires_at;index;not null" json:"expires_at"`
	CreatedAt     time.Time `gorm:"column:created_at;index;not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName 指定表名
func (Clip) TableName() string {
	return "clips"
}

// ClipView 观看记录
type ClipView struct {
	ID              string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	ClipID          string    `gorm:"column:clip_id;type:varchar(32);index;not null" json:"clip_id"`
	SessionHash     string    `gorm:"column:session_hash;type:varchar(64);not null" json:"session_hash"`
	WatchDurationMs int64     `gorm:"column:watch_duration_ms;not null;default:0" json:"watch_duration_ms"`
	WatchPercentage float64   `gorm:"column:watch_percentage;not null;default:0" json:"watch_percentage"`
	UserAgent       *string   `gorm:"column:user_agent;type:varchar(512)" json:"user_agent"`
	CreatedAt       time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

func (ClipView) TableName() string {
	return "clip_views"
}
