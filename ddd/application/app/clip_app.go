package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"cliparr/ddd/application/cqe"
	"cliparr/ddd/application/dto"
	"cliparr/ddd/domain/entity"
	"cliparr/ddd/domain/port"
	"cliparr/ddd/domain/repo"
	"cliparr/ddd/domain/service"
	"cliparr/ddd/domain/vo"
	"cliparr/ddd/infrastructure/scheduler"
	"cliparr/pkg/errno"
	"cliparr/pkg/idgen"
	"cliparr/pkg/logger"
)

// ErrorMessageLimit bounds the encoder output kept on a failed clip.
const ErrorMessageLimit = 500

// JobSubmitter hands a render job to the transcode scheduler.
type JobSubmitter interface {
	Submit(job scheduler.Job) *scheduler.Handle
}

// ClipApp 剪辑生命周期
type ClipApp interface {
	// CreateClip 校验、入库并提交转码
	CreateClip(ctx context.Context, userID, plexToken string, req *cqe.CreateClipReq) (*dto.CreateClipResp, error)
	// ListClips 分页列出当前用户的剪辑
	ListClips(ctx context.Context, userID string, req *cqe.ListClipsReq) (*dto.ClipListDTO, error)
	// GetClip 获取剪辑详情
	GetClip(ctx context.Context, userID, clipID string) (*dto.ClipDTO, error)
	// UpdateClip 修改标题、有效期或观看上限
	UpdateClip(ctx context.Context, userID, clipID string, req *cqe.UpdateClipReq) error
	// DeleteClip 删除记录并释放产物
	DeleteClip(ctx context.Context, userID, clipID string) error
	// ClipAnalytics 观看统计
	ClipAnalytics(ctx context.Context, userID, clipID string) (*dto.ClipAnalyticsDTO, error)
	// Wait blocks until every in-flight completion has been persisted.
	Wait()
}

// ClipAppDeps 剪辑应用依赖
type ClipAppDeps struct {
	Clips     repo.ClipRepository
	Views     repo.ClipViewRepository
	Settings  SettingsApp
	Resolver  port.MediaResolver
	Tokens    *service.TokenService
	Scheduler JobSubmitter
	Store     port.ArtifactStore
	Events    port.EventPublisher
	BaseURL   string
	Now       func() time.Time
}

type clipAppImpl struct {
	clips     repo.ClipRepository
	views     repo.ClipViewRepository
	settings  SettingsApp
	resolver  port.MediaResolver
	tokens    *service.TokenService
	scheduler JobSubmitter
	store     port.ArtifactStore
	events    port.EventPublisher
	baseURL   string
	now       func() time.Time

	inflight sync.WaitGroup
}

func NewClipApp(d ClipAppDeps) ClipApp {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Events == nil {
		d.Events = noopEvents{}
	}
	return &clipAppImpl{
		clips:     d.Clips,
		views:     d.Views,
		settings:  d.Settings,
		resolver:  d.Resolver,
		tokens:    d.Tokens,
		scheduler: d.Scheduler,
		store:     d.Store,
		events:    d.Events,
		baseURL:   strings.TrimRight(d.BaseURL, "/"),
		now:       d.Now,
	}
}

func (a *clipAppImpl) CreateClip(ctx context.Context, userID, plexToken string, req *cqe.CreateClipReq) (*dto.CreateClipResp, error) {
	settings := a.settings.Current(ctx)
	if err := req.Validate(settings); err != nil {
		return nil, err
	}

	media, err := a.resolver.Resolve(ctx, plexToken, req.RatingKey)
	if err != nil {
		logger.Warn("Media resolution failed", map[string]interface{}{
			"rating_key": req.RatingKey,
			"error":      err.Error(),
		})
		return nil, errno.NewBizError(errno.ErrUpstream, err)
	}

	title := req.RequestedTitle()
	if title == "" {
		title = media.DefaultClipTitle()
	}
	ttl := settings.EffectiveTTL(req.RequestedTTL())
	now := a.now()
	clip := entity.NewClipEntity(idgen.New(), userID, *media, title, req.StartMs, req.EndMs, ttl, req.MaxViews, now)

	token, err := a.tokens.IssueClip(clip.ID(), clip.ExpiresAt())
	if err != nil {
		return nil, errno.NewBizError(errno.ErrInternalServer, err)
	}
	clip.SetAccessToken(token)

	if err := a.clips.Create(ctx, clip); err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	a.publish(clip, port.EventClipCreated, "")

	if err := clip.TransitionTo(vo.ClipStatusTranscoding, now); err != nil {
		return nil, errno.NewBizError(errno.ErrInternalServer, err)
	}
	if err := a.clips.UpdateStatus(ctx, clip.ID(), vo.ClipStatusTranscoding); err != nil {
		// 没有任务会接手这条记录，直接置为失败
		a.abandon(clip, "could not start transcode: "+err.Error())
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}

	handle := a.scheduler.Submit(scheduler.Job{
		ClipID:   clip.ID(),
		FilePath: clip.FilePath(),
		StartMs:  clip.StartMs(),
		EndMs:    clip.EndMs(),
	})
	a.inflight.Add(1)
	go a.awaitJob(clip, handle)

	logger.Info("Clip created", map[string]interface{}{
		"clip_id":     clip.ID(),
		"user_id":     userID,
		"rating_key":  clip.RatingKey(),
		"duration_ms": clip.DurationMs(),
		"ttl_hours":   ttl,
	})

	return &dto.CreateClipResp{
		ID:          clip.ID(),
		Title:       title,
		Status:      clip.Status().String(),
		ShareURL:    dto.ShareURL(a.baseURL, clip.ID(), token),
		AccessToken: token,
		ExpiresAt:   clip.ExpiresAt(),
		DurationMs:  clip.DurationMs(),
	}, nil
}

// awaitJob persists the job outcome. Completion writes only land on clips still in flight.
func (a *clipAppImpl) awaitJob(clip *entity.ClipEntity, handle *scheduler.Handle) {
	defer a.inflight.Done()
	res := <-handle.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if res.Err != nil {
		msg := failureMessage(res.Err)
		updated, err := a.clips.MarkFailed(ctx, clip.ID(), msg)
		if err != nil {
			logger.Error("Failed to persist transcode failure", map[string]interface{}{
				"clip_id": clip.ID(),
				"error":   err.Error(),
			})
			return
		}
		if updated {
			a.publish(clip, port.EventClipFailed, msg)
		}
		return
	}

	updated, err := a.clips.MarkReady(ctx, clip.ID(), res.Output.HLSPath, res.Output.ThumbnailPath)
	if err != nil {
		logger.Error("Failed to persist transcode result", map[string]interface{}{
			"clip_id": clip.ID(),
			"error":   err.Error(),
		})
		return
	}
	if !updated {
		// 剪辑已删除或已过期，丢弃本次产物
		if _, err := a.store.Remove(ctx, res.Output.HLSPath); err != nil {
			logger.Warn("Failed to discard stale artifacts", map[string]interface{}{
				"clip_id": clip.ID(),
				"error":   err.Error(),
			})
		}
		logger.Infof("Discarded render of settled clip %s", clip.ID())
		return
	}
	a.publish(clip, port.EventClipReady, "")
}

// abandon fails a clip that was persisted but never handed to the scheduler.
func (a *clipAppImpl) abandon(clip *entity.ClipEntity, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	updated, err := a.clips.MarkFailed(ctx, clip.ID(), msg)
	if err != nil {
		logger.Error("Failed to persist abandoned clip", map[string]interface{}{
			"clip_id": clip.ID(),
			"error":   err.Error(),
		})
		return
	}
	if updated {
		a.publish(clip, port.EventClipFailed, msg)
	}
}

// failureMessage keeps the last ErrorMessageLimit characters of the encoder output.
func failureMessage(err error) string {
	msg := err.Error()
	var encErr *port.EncodeError
	if errors.As(err, &encErr) && strings.TrimSpace(encErr.StderrTail) != "" {
		msg = encErr.StderrTail
	}
	r := []rune(msg)
	if len(r) > ErrorMessageLimit {
		r = r[len(r)-ErrorMessageLimit:]
	}
	return string(r)
}

func (a *clipAppImpl) ListClips(ctx context.Context, userID string, req *cqe.ListClipsReq) (*dto.ClipListDTO, error) {
	status, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	clips, err := a.clips.List(ctx, repo.ClipQuery{
		UserID: userID,
		Status: status,
		Limit:  req.Limit,
		Offset: req.Offset(),
	})
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	out := &dto.ClipListDTO{Clips: make([]*dto.ClipDTO, 0, len(clips)), Page: req.Page, Limit: req.Limit}
	for _, c := range clips {
		out.Clips = append(out.Clips, dto.NewClipDTO(c, a.baseURL))
	}
	return out, nil
}

func (a *clipAppImpl) GetClip(ctx context.Context, userID, clipID string) (*dto.ClipDTO, error) {
	clip, err := a.owned(ctx, userID, clipID)
	if err != nil {
		return nil, err
	}
	return dto.NewClipDTO(clip, a.baseURL), nil
}

func (a *clipAppImpl) UpdateClip(ctx context.Context, userID, clipID string, req *cqe.UpdateClipReq) error {
	if err := req.Validate(); err != nil {
		return err
	}
	clip, err := a.owned(ctx, userID, clipID)
	if err != nil {
		return err
	}

	now := a.now()
	if req.Title != nil {
		clip.Rename(strings.TrimSpace(*req.Title), now)
	}
	if req.MaxViews.Set {
		clip.SetMaxViews(req.MaxViews.Value, now)
	}
	if req.TTLHours != nil {
		ttl := *req.TTLHours
		if maxTTL := a.settings.Current(ctx).MaxTTLHours; ttl > maxTTL {
			ttl = maxTTL
		}
		wasExpired := clip.Status() == vo.ClipStatusExpired
		clip.ExtendTTL(ttl, now)
		token, err := a.tokens.IssueClip(clip.ID(), clip.ExpiresAt())
		if err != nil {
			return errno.NewBizError(errno.ErrInternalServer, err)
		}
		clip.SetAccessToken(token)
		if wasExpired {
			logger.Info("Expired clip revived", map[string]interface{}{"clip_id": clip.ID(), "ttl_hours": ttl})
		}
	}

	if err := a.clips.Save(ctx, clip); err != nil {
		return errno.NewBizError(errno.ErrDatabase, err)
	}
	return nil
}

func (a *clipAppImpl) DeleteClip(ctx context.Context, userID, clipID string) error {
	clip, err := a.owned(ctx, userID, clipID)
	if err != nil {
		return err
	}
	if err := a.clips.Delete(ctx, clip.ID()); err != nil {
		return errno.NewBizError(errno.ErrDatabase, err)
	}
	released, err := a.store.Remove(ctx, clip.ArtifactDir())
	if err != nil {
		logger.Warn("Failed to remove clip artifacts", map[string]interface{}{
			"clip_id": clip.ID(),
			"error":   err.Error(),
		})
	}
	a.publish(clip, port.EventClipDeleted, "")
	logger.Info("Clip deleted", map[string]interface{}{"clip_id": clip.ID(), "bytes": released})
	return nil
}

func (a *clipAppImpl) ClipAnalytics(ctx context.Context, userID, clipID string) (*dto.ClipAnalyticsDTO, error) {
	clip, err := a.owned(ctx, userID, clipID)
	if err != nil {
		return nil, err
	}
	views, err := a.views.ListByClip(ctx, clip.ID())
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	stats, err := a.views.Stats(ctx, clip.ID())
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	return dto.NewClipAnalyticsDTO(clip, stats, views), nil
}

func (a *clipAppImpl) Wait() {
	a.inflight.Wait()
}

func (a *clipAppImpl) owned(ctx context.Context, userID, clipID string) (*entity.ClipEntity, error) {
	clip, err := a.clips.GetByOwner(ctx, clipID, userID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	if clip == nil {
		return nil, errno.ErrClipNotFound
	}
	return clip, nil
}

func (a *clipAppImpl) publish(clip *entity.ClipEntity, eventType, errMsg string) {
	status := clip.Status().String()
	switch eventType {
	case port.EventClipReady:
		status = vo.ClipStatusReady.String()
	case port.EventClipFailed:
		status = vo.ClipStatusFailed.String()
	}
	publishEvent(a.events, port.ClipEvent{
		Type:       eventType,
		ClipID:     clip.ID(),
		UserID:     clip.UserID(),
		Status:     status,
		DurationMs: clip.DurationMs(),
		Error:      errMsg,
		OccurredAt: a.now().UTC(),
	})
}

// publishEvent only logs publish failures.
func publishEvent(events port.EventPublisher, ev port.ClipEvent) {
	if err := events.Publish(context.Background(), ev); err != nil {
		logger.Warn("Failed to publish clip event", map[string]interface{}{
			"type":    ev.Type,
			"clip_id": ev.ClipID,
			"error":   err.Error(),
		})
	}
}

type noopEvents struct{}

func (noopEvents) Publish(context.Context, port.ClipEvent) error { return nil }
