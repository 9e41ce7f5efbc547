package cqe

import (
	"strconv"

	"cliparr/ddd/domain/vo"
	"cliparr/pkg/errno"
)

// UpdateSettingsReq 管理员更新设置，只写入出现的字段
type UpdateSettingsReq struct {
	DefaultTTLHours         *int `json:"defaultTtlHours"`
	MaxTTLHours             *int `json:"maxTtlHours"`
	MaxClipDuration         *int `json:"maxClipDuration"`
	MaxConcurrentTranscodes *int `json:"maxConcurrentTranscodes"`
	CleanupGraceHours       *int `json:"cleanupGraceHours"`
}

func (req *UpdateSettingsReq) Validate() error {
	for name, v := range map[string]*int{
		"defaultTtlHours":         req.DefaultTTLHours,
		"maxTtlHours":             req.MaxTTLHours,
		"maxClipDuration":         req.MaxClipDuration,
		"maxConcurrentTranscodes": req.MaxConcurrentTranscodes,
	} {
		if v != nil && *v < 1 {
			return errno.Errorf(errno.ErrSettingInvalid, "%s must be at least 1", name)
		}
	}
	if req.CleanupGraceHours != nil && *req.CleanupGraceHours < 0 {
		return errno.Errorf(errno.ErrSettingInvalid, "cleanupGraceHours must not be negative")
	}
	return nil
}

// Values returns the supplied fields keyed by setting name.
func (req *UpdateSettingsReq) Values() map[string]string {
	out := make(map[string]string)
	put := func(key string, v *int) {
		if v != nil {
			out[key] = strconv.Itoa(*v)
		}
	}
	put(vo.SettingDefaultTTLHours, req.DefaultTTLHours)
	put(vo.SettingMaxTTLHours, req.MaxTTLHours)
	put(vo.SettingMaxClipDuration, req.MaxClipDuration)
	put(vo.SettingMaxConcurrentTranscodes, req.MaxConcurrentTranscodes)
	put(vo.SettingCleanupGraceHours, req.CleanupGraceHours)
	return out
}
