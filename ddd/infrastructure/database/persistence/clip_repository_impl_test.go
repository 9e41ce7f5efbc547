package persistence

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cliparr/ddd/domain/entity"
	"cliparr/ddd/domain/repo"
	"cliparr/ddd/domain/vo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cliparr.db")
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, AutoMigrate(db))
	return db
}

func newClip(id, user string, maxViews *int, now time.Time) *entity.ClipEntity {
	media := vo.MediaItem{RatingKey: "42", Title: "Movie", Type: vo.MediaTypeMovie, FilePath: "/media/movie.mkv"}
	c := entity.NewClipEntity(id, user, media, "clip "+id, 0, 10_000, 24, maxViews, now)
	c.SetAccessToken("tok-" + id)
	return c
}

func intPtr(v int) *int { return &v }

func TestClipRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	r := NewClipRepository(newTestDB(t))
	now := time.Now()

	require.NoError(t, r.Create(ctx, newClip("c1", "u1", nil, now)))

	got, err := r.GetByID(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, vo.ClipStatusPending, got.Status())
	assert.Equal(t, int64(10_000), got.DurationMs())
	assert.Equal(t, "Movie", got.MediaTitle())

	other, err := r.GetByOwner(ctx, "c1", "u2")
	require.NoError(t, err)
	assert.Nil(t, other)

	missing, err := r.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestClipRepositoryConsumeViewRespectsCap(t *testing.T) {
	ctx := context.Background()
	r := NewClipRepository(newTestDB(t))
	require.NoError(t, r.Create(ctx, newClip("c1", "u1", intPtr(3), time.Now())))

	for i := 0; i < 3; i++ {
		ok, err := r.ConsumeView(ctx, "c1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := r.ConsumeView(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, ok)

	got, _ := r.GetByID(ctx, "c1")
	assert.Equal(t, 3, got.ViewCount())
}

func TestClipRepositoryConsumeViewConcurrent(t *testing.T) {
	ctx := context.Background()
	r := NewClipRepository(newTestDB(t))
	require.NoError(t, r.Create(ctx, newClip("c1", "u1", intPtr(5), time.Now())))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := r.ConsumeView(ctx, "c1")
			if err == nil && ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, granted)
}

func TestClipRepositoryListNewestFirstWithFilter(t *testing.T) {
	ctx := context.Background()
	r := NewClipRepository(newTestDB(t))
	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.Create(ctx, newClip(id, "u1", nil, base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, r.Create(ctx, newClip("x", "u2", nil, base)))
	ok, err := r.MarkReady(ctx, "b", "b", "b/thumb.jpg")
	require.NoError(t, err)
	require.True(t, ok)

	all, err := r.List(ctx, repo.ClipQuery{UserID: "u1", Limit: 20})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID())
	assert.Equal(t, "a", all[2].ID())

	ready := vo.ClipStatusReady
	filtered, err := r.List(ctx, repo.ClipQuery{UserID: "u1", Status: &ready, Limit: 20})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "b", filtered[0].ID())
	assert.Equal(t, "b/thumb.jpg", *filtered[0].ThumbnailPath())

	page2, err := r.List(ctx, repo.ClipQuery{UserID: "u1", Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "a", page2[0].ID())
}

func TestClipRepositoryListExpiringSkipsExpired(t *testing.T) {
	ctx := context.Background()
	r := NewClipRepository(newTestDB(t))
	old := time.Now().Add(-72 * time.Hour)
	require.NoError(t, r.Create(ctx, newClip("old", "u1", nil, old)))
	require.NoError(t, r.Create(ctx, newClip("done", "u1", nil, old)))
	require.NoError(t, r.UpdateStatus(ctx, "done", vo.ClipStatusExpired))
	require.NoError(t, r.Create(ctx, newClip("fresh", "u1", nil, time.Now())))

	clips, err := r.ListExpiring(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, clips, 1)
	assert.Equal(t, "old", clips[0].ID())
}

func TestClipRepositoryMarkExpiredIsConditional(t *testing.T) {
	ctx := context.Background()
	r := NewClipRepository(newTestDB(t))
	old := time.Now().Add(-72 * time.Hour)
	require.NoError(t, r.Create(ctx, newClip("old", "u1", nil, old)))
	require.NoError(t, r.Create(ctx, newClip("fresh", "u1", nil, time.Now())))

	ok, err := r.MarkExpired(ctx, "fresh", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.MarkExpired(ctx, "old", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	// 已过期的不再重复计数
	ok, err = r.MarkExpired(ctx, "old", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	clip, err := r.GetByID(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, vo.ClipStatusExpired, clip.Status())
}

func TestClipRepositoryDeleteRemovesViews(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	r := NewClipRepository(db)
	views := NewClipViewRepository(db)
	require.NoError(t, r.Create(ctx, newClip("c1", "u1", nil, time.Now())))
	require.NoError(t, views.Create(ctx, &entity.ClipViewEntity{ID: "v1", ClipID: "c1", SessionHash: "h", CreatedAt: time.Now()}))

	require.NoError(t, r.Delete(ctx, "c1"))

	got, err := views.ListByClip(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Error(t, r.Delete(ctx, "c1"))
}

func TestClipViewRepositoryStats(t *testing.T) {
	ctx := context.Background()
	views := NewClipViewRepository(newTestDB(t))

	stats, err := views.Stats(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.UniqueViewers)
	assert.Equal(t, 0.0, stats.AvgWatchPercentage)

	for i, v := range []struct {
		hash string
		pct  float64
	}{{"a", 50}, {"a", 100}, {"b", 30}} {
		require.NoError(t, views.Create(ctx, &entity.ClipViewEntity{
			ID: string(rune('0' + i)), ClipID: "c1", SessionHash: v.hash, WatchPercentage: v.pct, CreatedAt: time.Now(),
		}))
	}
	stats, err = views.Stats(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.UniqueViewers)
	assert.InDelta(t, 60.0, stats.AvgWatchPercentage, 0.001)
}

func TestSettingRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	r := NewSettingRepository(newTestDB(t))

	require.NoError(t, r.Upsert(ctx, map[string]string{"max_ttl_hours": "48"}))
	require.NoError(t, r.Upsert(ctx, map[string]string{"max_ttl_hours": "72", "default_ttl_hours": "12"}))

	all, err := r.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"max_ttl_hours": "72", "default_ttl_hours": "12"}, all)
}

func TestUserRepositoryUpsertKeepsID(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepository(db)

	first, err := users.UpsertByPlexID(ctx, &entity.UserEntity{PlexID: "p1", PlexUsername: "alice", IsAdmin: true})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := users.UpsertByPlexID(ctx, &entity.UserEntity{PlexID: "p1", PlexUsername: "alice2"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "alice2", second.PlexUsername)
	assert.True(t, second.IsAdmin)
	assert.True(t, second.ClippingEnabled)

	sessions := NewSessionRepository(db)
	now := time.Now()
	require.NoError(t, sessions.Create(ctx, &entity.SessionEntity{ID: "s1", UserID: first.ID, PlexToken: "pt", ExpiresAt: now.Add(time.Hour), CreatedAt: now}))
	require.NoError(t, sessions.Create(ctx, &entity.SessionEntity{ID: "s2", UserID: first.ID, PlexToken: "pt", ExpiresAt: now.Add(-time.Hour), CreatedAt: now}))

	n, err := sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	s, err := sessions.GetByID(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "pt", s.PlexToken)
}

func TestClipRepositoryCompletionIgnoresSettledClips(t *testing.T) {
	ctx := context.Background()
	r := NewClipRepository(newTestDB(t))
	require.NoError(t, r.Create(ctx, newClip("z", "u1", nil, time.Now())))
	require.NoError(t, r.UpdateStatus(ctx, "z", vo.ClipStatusExpired))

	ok, err := r.MarkReady(ctx, "z", "z", "z/thumb.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = r.MarkFailed(ctx, "missing", "boom")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := r.GetByID(ctx, "z")
	require.NoError(t, err)
	assert.Equal(t, vo.ClipStatusExpired, got.Status())
	assert.Nil(t, got.HLSPath())
}
