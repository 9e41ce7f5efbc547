package po

import "time"

// User Plex 用户
type User struct {
	ID              string     `gorm:"column:id;type:varchar(32);primaryKey"`
	PlexID          string     `gorm:"column:plex_id;type:varchar(64);uniqueIndex;not null"`
	PlexUsername    string     `gorm:"column:plex_username;type:varchar(255);not null"`
	PlexEmail       *string    `gorm:"column:plex_email;type:varchar(255)"`
	PlexThumb       *string    `gorm:"column:plex_thumb;type:varchar(1024)"`
	IsAdmin         bool       `gorm:"column:is_admin;not null;default:false"`
	ClippingEnabled bool       `gorm:"column:clipping_enabled;not null;default:true"`
	CreatedAt       time.Time  `gorm:"column:created_at;not null"`
	LastLoginAt     *time.Time `gorm:"column:last_login_at"`
}

func (User) TableName() string {
	return "users"
}

// Session 登录会话
type Session struct {
	ID        string    `gorm:"column:id;type:varchar(32);primaryKey"`
	UserID    string    `gorm:"column:user_id;type:varchar(32);index;not null"`
	PlexToken string    `gorm:"column:plex_token;type:varchar(255);not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;index;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (Session) TableName() string {
	return "sessions"
}

// Setting 运行时可调的剪辑策略
type Setting struct {
	Key       string    `gorm:"column:key;type:varchar(64);primaryKey"`
	Value     string    `gorm:"column:value;type:varchar(255);not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (Setting) TableName() string {
	return "settings"
}

// Models lists every table for migrations.
func Models() []interface{} {
	return []interface{}{&User{}, &Session{}, &Clip{}, &ClipView{}, &Setting{}}
}
