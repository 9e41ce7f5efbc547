package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cliparr/ddd/application/cqe"
	"cliparr/ddd/domain/entity"
	"cliparr/ddd/domain/port"
	"cliparr/ddd/domain/vo"
	"cliparr/ddd/infrastructure/database/persistence"
)

func seedClip(t *testing.T, h *harness, id string, createdAt time.Time, ttl int) {
	t.Helper()
	media := vo.MediaItem{RatingKey: "42", Title: "Heat", Type: vo.MediaTypeMovie, FilePath: "/media/heat.mkv"}
	c := entity.NewClipEntity(id, "u1", media, "clip", 0, 1_000, ttl, nil, createdAt)
	c.SetAccessToken("tok")
	require.NoError(t, h.clips.Create(context.Background(), c))
}

func TestSweepHonorsGracePeriod(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeExecutor{})
	h.store.size = 2048
	now := time.Now()

	// expiresAt 25h ago and 1h ago
	seedClip(t, h, "old", now.Add(-49*time.Hour), 24)
	seedClip(t, h, "recent", now.Add(-25*time.Hour), 24)
	_, err := h.clips.MarkReady(ctx, "old", "old", "old/thumb.jpg")
	require.NoError(t, err)

	sweeper := NewCleanupApp(CleanupAppDeps{
		Clips:    h.clips,
		Settings: h.settings,
		Store:    h.store,
		Events:   h.events,
		Now:      func() time.Time { return now },
	})

	report, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Expired)
	assert.Equal(t, int64(2048), report.BytesReclaimed)
	assert.Equal(t, []string{"old"}, h.store.Removed())

	old, err := h.clips.GetByID(ctx, "old")
	require.NoError(t, err)
	require.NotNil(t, old)
	assert.Equal(t, vo.ClipStatusExpired, old.Status())

	recent, err := h.clips.GetByID(ctx, "recent")
	require.NoError(t, err)
	assert.Equal(t, vo.ClipStatusPending, recent.Status())

	// 再次执行不应重复处理
	report, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Scanned)
	assert.Len(t, h.store.Removed(), 1)
	old, err = h.clips.GetByID(ctx, "old")
	require.NoError(t, err)
	require.NotNil(t, old)
}

// hookStore runs before ahead of every Remove.
type hookStore struct {
	*memStore
	before func(dir string)
}

func (s *hookStore) Remove(ctx context.Context, dir string) (int64, error) {
	if s.before != nil {
		s.before(dir)
	}
	return s.memStore.Remove(ctx, dir)
}

func TestSweepKeepsClipExtendedDuringRemoval(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeExecutor{})
	now := h.now
	seedClip(t, h, "old", now.Add(-49*time.Hour), 24)
	_, err := h.clips.MarkReady(ctx, "old", "old", "old/thumb.jpg")
	require.NoError(t, err)

	// 属主在列出之后、写回之前延长了有效期
	store := &hookStore{memStore: h.store, before: func(string) {
		require.NoError(t, h.app.UpdateClip(ctx, "u1", "old", &cqe.UpdateClipReq{TTLHours: intPtr(48)}))
	}}
	sweeper := NewCleanupApp(CleanupAppDeps{
		Clips:    h.clips,
		Settings: h.settings,
		Store:    store,
		Events:   h.events,
		Now:      func() time.Time { return now },
	})

	report, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Zero(t, report.Expired)
	assert.Zero(t, report.BytesReclaimed)
	assert.NotContains(t, h.events.Types(), port.EventClipExpired)

	clip, err := h.clips.GetByID(ctx, "old")
	require.NoError(t, err)
	require.NotNil(t, clip)
	assert.Equal(t, vo.ClipStatusReady, clip.Status())
	assert.True(t, clip.ExpiresAt().After(now.Add(47*time.Hour)))

	store.before = nil
	report, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Scanned)
}

func TestSweepRetriesWhenRemovalFails(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeExecutor{})
	now := time.Now()
	seedClip(t, h, "old", now.Add(-100*time.Hour), 24)
	h.store.err = errors.New("disk busy")

	sweeper := NewCleanupApp(CleanupAppDeps{Clips: h.clips, Settings: h.settings, Store: h.store, Now: func() time.Time { return now }})
	report, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Zero(t, report.Expired)

	h.store.err = nil
	report, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Expired)
}

func TestSweepPrunesExpiredSessions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, &fakeExecutor{})
	sessions := persistence.NewSessionRepository(h.db)
	now := time.Now()
	require.NoError(t, sessions.Create(ctx, &entity.SessionEntity{ID: "s1", UserID: "u1", PlexToken: "p", ExpiresAt: now.Add(-time.Minute), CreatedAt: now}))

	sweeper := NewCleanupApp(CleanupAppDeps{Clips: h.clips, Sessions: sessions, Settings: h.settings, Store: h.store, Now: func() time.Time { return now }})
	report, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.SessionsRemoved)
}
