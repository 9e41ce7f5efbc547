package app

import (
	"context"
	"strconv"

	"cliparr/ddd/application/cqe"
	"cliparr/ddd/domain/repo"
	"cliparr/ddd/domain/vo"
	"cliparr/pkg/config"
	"cliparr/pkg/errno"
	"cliparr/pkg/logger"
)

// SettingsApp 剪辑策略设置
type SettingsApp interface {
	// Current returns stored settings layered over the configured defaults.
	Current(ctx context.Context) vo.ClipSettings
	// Update 写入请求中出现的字段
	Update(ctx context.Context, req *cqe.UpdateSettingsReq) (vo.ClipSettings, error)
}

type settingsAppImpl struct {
	settingRepo repo.SettingRepository
	defaults    vo.ClipSettings
}

// SettingsFromConfig converts the clips config section into default settings.
func SettingsFromConfig(cfg config.ClipsConfig) vo.ClipSettings {
	return vo.ClipSettings{
		DefaultTTLHours:         cfg.DefaultTTLHours,
		MaxTTLHours:             cfg.MaxTTLHours,
		MaxClipDuration:         cfg.MaxDuration,
		MaxConcurrentTranscodes: cfg.MaxConcurrentTranscodes,
		CleanupGraceHours:       cfg.CleanupGraceHours,
	}
}

func NewSettingsApp(settingRepo repo.SettingRepository, defaults vo.ClipSettings) SettingsApp {
	return &settingsAppImpl{settingRepo: settingRepo, defaults: defaults}
}

func (s *settingsAppImpl) Current(ctx context.Context) vo.ClipSettings {
	out := s.defaults
	rows, err := s.settingRepo.All(ctx)
	if err != nil {
		logger.Warn("Failed to load settings, using defaults", map[string]interface{}{"error": err.Error()})
		return out
	}
	overlay(rows, vo.SettingDefaultTTLHours, &out.DefaultTTLHours)
	overlay(rows, vo.SettingMaxTTLHours, &out.MaxTTLHours)
	overlay(rows, vo.SettingMaxClipDuration, &out.MaxClipDuration)
	overlay(rows, vo.SettingMaxConcurrentTranscodes, &out.MaxConcurrentTranscodes)
	overlay(rows, vo.SettingCleanupGraceHours, &out.CleanupGraceHours)
	return out
}

// overlay keeps the default when the stored value is missing or unparsable.
func overlay(rows map[string]string, key string, dst *int) {
	raw, ok := rows[key]
	if !ok {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		logger.Warnf("Ignoring unparsable setting %s=%q", key, raw)
		return
	}
	*dst = v
}

func (s *settingsAppImpl) Update(ctx context.Context, req *cqe.UpdateSettingsReq) (vo.ClipSettings, error) {
	if err := req.Validate(); err != nil {
		return vo.ClipSettings{}, err
	}
	values := req.Values()
	if len(values) > 0 {
		if err := s.settingRepo.Upsert(ctx, values); err != nil {
			return vo.ClipSettings{}, errno.NewBizError(errno.ErrDatabase, err)
		}
		logger.Info("Settings updated", map[string]interface{}{"keys": len(values)})
	}
	return s.Current(ctx), nil
}
