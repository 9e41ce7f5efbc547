package vo

// Setting keys stored in the settings table.
const (
	SettingDefaultTTLHours         = "default_ttl_hours"
	SettingMaxTTLHours             = "max_ttl_hours"
	SettingMaxClipDuration         = "max_clip_duration"
	SettingMaxConcurrentTranscodes = "max_concurrent_transcodes"
	SettingCleanupGraceHours       = "cleanup_grace_hours"
)

// ClipSettings is the effective clip policy: stored values layered over config defaults.
type ClipSettings struct {
	DefaultTTLHours         int `json:"defaultTtlHours"`
	MaxTTLHours             int `json:"maxTtlHours"`
	MaxClipDuration         int `json:"maxClipDuration"` // seconds
	MaxConcurrentTranscodes int `json:"maxConcurrentTranscodes"`
	CleanupGraceHours       int `json:"cleanupGraceHours"`
}

// EffectiveTTL returns min(requested or default, max).
func (s ClipSettings) EffectiveTTL(requested int) int {
	ttl := requested
	if ttl <= 0 {
		ttl = s.DefaultTTLHours
	}
	if ttl > s.MaxTTLHours {
		ttl = s.MaxTTLHours
	}
	return ttl
}

// MaxDurationMs is the clip duration ceiling in milliseconds.
func (s ClipSettings) MaxDurationMs() int64 {
	return int64(s.MaxClipDuration) * 1000
}
