package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"cliparr/ddd/domain/port"
	"cliparr/ddd/domain/repo"
	"cliparr/ddd/domain/service"
	"cliparr/ddd/domain/vo"
	"cliparr/ddd/infrastructure/database/persistence"
	"cliparr/ddd/infrastructure/scheduler"
	"cliparr/ddd/infrastructure/token"
)

var testDefaults = vo.ClipSettings{
	DefaultTTLHours:         24,
	MaxTTLHours:             72,
	MaxClipDuration:         180,
	MaxConcurrentTranscodes: 2,
	CleanupGraceHours:       24,
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cliparr.db")
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=busy_timeout(5000)"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, persistence.AutoMigrate(db))
	return db
}

func newTokens(t *testing.T) *service.TokenService {
	t.Helper()
	signer, err := token.NewJWTSigner("test-secret")
	require.NoError(t, err)
	return service.NewTokenService(signer)
}

type fakeResolver struct {
	mu    sync.Mutex
	item  vo.MediaItem
	err   error
	calls int
}

func (f *fakeResolver) Resolve(_ context.Context, _, ratingKey string) (*vo.MediaItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	item := f.item
	item.RatingKey = ratingKey
	return &item, nil
}

// fakeExecutor writes a minimal HLS package, or fails with err. A non-nil gate holds every job until closed.
type fakeExecutor struct {
	err  error
	gate chan struct{}
}

func (f *fakeExecutor) Execute(ctx context.Context, _ string, _, _ int64, outputDir string) (port.TranscodeResult, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return port.TranscodeResult{}, ctx.Err()
		}
	}
	if f.err != nil {
		return port.TranscodeResult{}, f.err
	}
	if err := os.MkdirAll(filepath.Join(outputDir, "v0"), 0o755); err != nil {
		return port.TranscodeResult{}, err
	}
	_ = os.WriteFile(filepath.Join(outputDir, "master.m3u8"), []byte(testMaster), 0o644)
	_ = os.WriteFile(filepath.Join(outputDir, "v0", "playlist.m3u8"), []byte(testVariant), 0o644)
	_ = os.WriteFile(filepath.Join(outputDir, "v0", "seg0.ts"), []byte("ts-bytes"), 0o644)
	dir := filepath.Base(outputDir)
	return port.TranscodeResult{HLSPath: dir, ThumbnailPath: dir + "/thumb.jpg"}, nil
}

const testMaster = "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-STREAM-INF:BANDWIDTH=5500000,RESOLUTION=1920x1080\nv0/playlist.m3u8\n"

const testVariant = "#EXTM3U\n#EXT-X-TARGETDURATION:2\n#EXTINF:2.000000,\nseg0.ts\n#EXT-X-ENDLIST\n"

type memStore struct {
	mu      sync.Mutex
	removed []string
	size    int64
	err     error
}

func (m *memStore) Publish(context.Context, string, string) error { return nil }

func (m *memStore) Remove(_ context.Context, dir string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.removed = append(m.removed, dir)
	return m.size, nil
}

func (m *memStore) Removed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []port.ClipEvent
}

func (r *recordingEvents) Publish(_ context.Context, ev port.ClipEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingEvents) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type harness struct {
	db       *gorm.DB
	root     string
	clips    repo.ClipRepository
	views    repo.ClipViewRepository
	settings SettingsApp
	tokens   *service.TokenService
	resolver *fakeResolver
	store    *memStore
	events   *recordingEvents
	sched    *scheduler.Scheduler
	app      ClipApp
	now      time.Time
}

func newHarness(t *testing.T, exec port.TranscodeExecutor) *harness {
	t.Helper()
	db := openTestDB(t)
	h := &harness{
		db:       db,
		root:     t.TempDir(),
		clips:    persistence.NewClipRepository(db),
		views:    persistence.NewClipViewRepository(db),
		tokens:   newTokens(t),
		resolver: &fakeResolver{item: vo.MediaItem{Title: "Heat", Year: intPtr(1995), Type: vo.MediaTypeMovie, FilePath: "/media/heat.mkv"}},
		store:    &memStore{},
		events:   &recordingEvents{},
		now:      time.Now(),
	}
	h.settings = NewSettingsApp(persistence.NewSettingRepository(db), testDefaults)
	h.sched = scheduler.New(exec, func(id string) string { return filepath.Join(h.root, id) }, func() int {
		return h.settings.Current(context.Background()).MaxConcurrentTranscodes
	})
	require.NoError(t, h.sched.Start(context.Background()))
	h.app = NewClipApp(ClipAppDeps{
		Clips:     h.clips,
		Views:     h.views,
		Settings:  h.settings,
		Resolver:  h.resolver,
		Tokens:    h.tokens,
		Scheduler: h.sched,
		Store:     h.store,
		Events:    h.events,
		BaseURL:   "https://clips.example/",
		Now:       func() time.Time { return h.now },
	})
	t.Cleanup(func() {
		_ = h.sched.Stop()
		h.app.Wait()
	})
	return h
}

func intPtr(v int) *int { return &v }

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }
