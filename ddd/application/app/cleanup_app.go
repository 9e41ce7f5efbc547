package app

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"

	"cliparr/ddd/domain/port"
	"cliparr/ddd/domain/repo"
	"cliparr/ddd/domain/vo"
	"cliparr/pkg/errno"
	"cliparr/pkg/logger"
	"cliparr/pkg/observability"
)

// SweepReport 一次清理的结果
type SweepReport struct {
	Scanned         int   `json:"scanned"`
	Expired         int   `json:"expired"`
	BytesReclaimed  int64 `json:"bytesReclaimed"`
	SessionsRemoved int64 `json:"sessionsRemoved"`
}

// CleanupApp 过期剪辑回收
type CleanupApp interface {
	// Sweep expires every clip past expires_at plus the grace period and releases its artifacts.
	Sweep(ctx context.Context) (*SweepReport, error)
}

// CleanupAppDeps 清理依赖
type CleanupAppDeps struct {
	Clips    repo.ClipRepository
	Sessions repo.SessionRepository
	Settings SettingsApp
	Store    port.ArtifactStore
	Events   port.EventPublisher
	Metrics  *observability.Metrics
	Now      func() time.Time
}

type cleanupAppImpl struct {
	CleanupAppDeps
}

func NewCleanupApp(d CleanupAppDeps) CleanupApp {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Events == nil {
		d.Events = noopEvents{}
	}
	return &cleanupAppImpl{CleanupAppDeps: d}
}

func (c *cleanupAppImpl) Sweep(ctx context.Context) (*SweepReport, error) {
	now := c.Now()
	grace := time.Duration(c.Settings.Current(ctx).CleanupGraceHours) * time.Hour
	cutoff := now.Add(-grace)

	clips, err := c.Clips.ListExpiring(ctx, cutoff)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}

	report := &SweepReport{Scanned: len(clips)}
	for _, clip := range clips {
		if ctx.Err() != nil {
			break
		}
		released, err := c.Store.Remove(ctx, clip.ArtifactDir())
		if err != nil {
			// 下一轮重试
			logger.Warn("Failed to remove expired clip artifacts", map[string]interface{}{
				"clip_id": clip.ID(),
				"error":   err.Error(),
			})
			continue
		}
		expired, err := c.Clips.MarkExpired(ctx, clip.ID(), cutoff)
		if err != nil {
			logger.Warn("Failed to mark clip expired", map[string]interface{}{
				"clip_id": clip.ID(),
				"error":   err.Error(),
			})
			continue
		}
		if !expired {
			// 期间被延长或已过期
			logger.Infof("Clip %s no longer due for expiry, skipped", clip.ID())
			continue
		}
		report.Expired++
		report.BytesReclaimed += released
		publishEvent(c.Events, port.ClipEvent{
			Type:       port.EventClipExpired,
			ClipID:     clip.ID(),
			UserID:     clip.UserID(),
			Status:     vo.ClipStatusExpired.String(),
			OccurredAt: now.UTC(),
		})
	}

	if c.Sessions != nil {
		n, err := c.Sessions.DeleteExpired(ctx, now)
		if err != nil {
			logger.Warn("Failed to prune sessions", map[string]interface{}{"error": err.Error()})
		}
		report.SessionsRemoved = n
	}

	c.Metrics.ObserveSweep(report.Expired, report.BytesReclaimed)
	logger.Info("Expiry sweep finished", map[string]interface{}{
		"scanned":   report.Scanned,
		"expired":   report.Expired,
		"reclaimed": humanize.Bytes(uint64(report.BytesReclaimed)),
		"sessions":  report.SessionsRemoved,
		"cutoff":    cutoff.UTC().Format(time.RFC3339),
	})
	return report, nil
}
