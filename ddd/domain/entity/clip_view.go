package entity

import "time"

// ClipViewEntity 一次观看记录
type ClipViewEntity struct {
	ID              string
	ClipID          string
	SessionHash     string
	WatchDurationMs int64
	WatchPercentage float64
	UserAgent       string
	CreatedAt       time.Time
}

// ClampPercentage bounds a reported watch percentage to [0,100].
func ClampPercentage(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
