package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	grpcAdapter "cliparr/ddd/adapter/grpc"
	httpAdapter "cliparr/ddd/adapter/http"
	"cliparr/ddd/application/app"
	"cliparr/ddd/domain/port"
	"cliparr/ddd/domain/service"
	"cliparr/ddd/infrastructure/database/persistence"
	"cliparr/ddd/infrastructure/event"
	"cliparr/ddd/infrastructure/executor"
	"cliparr/ddd/infrastructure/plex"
	"cliparr/ddd/infrastructure/scheduler"
	"cliparr/ddd/infrastructure/storage"
	"cliparr/ddd/infrastructure/token"
	"cliparr/ddd/infrastructure/worker"
	"cliparr/internal/resource"
	"cliparr/pkg/config"
	"cliparr/pkg/kafka"
	"cliparr/pkg/logger"
	"cliparr/pkg/middleware"
	"cliparr/pkg/observability"
)

// Container holds the wired application graph.
type Container struct {
	Config    *config.Config
	DB        *gorm.DB
	Metrics   *observability.Metrics
	Scheduler *scheduler.Scheduler
	Sweeper   *worker.Sweeper
	Health    *grpcAdapter.HealthServer

	ClipApp    app.ClipApp
	CleanupApp app.CleanupApp
	Router     *httpAdapter.Router
}

// buildContainer wires repositories, infrastructure and apps. Resources must already be open.
func buildContainer(cfg *config.Config) (*Container, error) {
	db := resource.DefaultDatabaseResource().MainDB()
	if db == nil {
		return nil, errors.New("database resource not opened")
	}

	secret, err := ensureSecret(cfg)
	if err != nil {
		return nil, err
	}
	signer, err := token.NewJWTSigner(secret)
	if err != nil {
		return nil, fmt.Errorf("create token signer: %w", err)
	}
	tokens := service.NewTokenService(signer)

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.DefaultMetrics()
	}

	// 仓储
	clipRepo := persistence.NewClipRepository(db)
	viewRepo := persistence.NewClipViewRepository(db)
	sessionRepo := persistence.NewSessionRepository(db)

	settingsApp := app.NewSettingsApp(persistence.NewSettingRepository(db), app.SettingsFromConfig(cfg.Clips))

	// 产物存储：本地目录为主，MinIO 开启时做镜像
	local := storage.NewLocalStorage(cfg.Paths.ClipsDir)
	var store port.ArtifactStore = local
	ffmpeg := executor.NewFFmpegExecutor(executor.NewExecRunner(cfg.Transcode.FFmpeg.BinaryPath), cfg.Transcode.FFmpeg)
	if mirror := storage.NewMinioStorage(resource.DefaultMinioResource()); mirror != nil {
		store = storage.NewMirroredStorage(local, mirror)
	}
	ffmpeg.WithStore(store)

	sched := scheduler.New(ffmpeg,
		func(clipID string) string { return filepath.Join(cfg.Paths.ClipsDir, clipID) },
		func() int { return settingsApp.Current(context.Background()).MaxConcurrentTranscodes },
		scheduler.WithTimeout(cfg.Transcode.FFmpeg.Timeout),
		scheduler.WithMetrics(metrics),
	)

	var events port.EventPublisher = event.NoopPublisher{}
	if resource.KafkaEnabled() && cfg.Kafka.Topics.ClipEvents != "" {
		events = event.NewKafkaPublisher(kafka.DefaultClient(), cfg.Kafka.Topics.ClipEvents)
	}

	plexClient := plex.NewClient(cfg.Plex, cfg.Paths)

	clipApp := app.NewClipApp(app.ClipAppDeps{
		Clips:     clipRepo,
		Views:     viewRepo,
		Settings:  settingsApp,
		Resolver:  plexClient,
		Tokens:    tokens,
		Scheduler: sched,
		Store:     store,
		Events:    events,
		BaseURL:   cfg.Server.BaseURL,
	})
	cleanupApp := app.NewCleanupApp(app.CleanupAppDeps{
		Clips:    clipRepo,
		Sessions: sessionRepo,
		Settings: settingsApp,
		Store:    store,
		Events:   events,
		Metrics:  metrics,
	})
	viewApp := app.NewViewApp(clipRepo, viewRepo, secret, metrics)

	var limiter middleware.Limiter
	if cfg.RateLimit.Enabled {
		if client := resource.DefaultRedisResource().Client(); client != nil {
			limiter = middleware.NewRedisLimiter(client, cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window)
		} else {
			limiter = middleware.NewMemoryLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.Window)
		}
	}

	sweep := func(ctx context.Context) error {
		_, err := cleanupApp.Sweep(ctx)
		return err
	}
	sweeper := worker.NewSweeper(sweep, cfg.Cleanup.Interval)

	router := httpAdapter.NewRouter(httpAdapter.RouterDeps{
		ClipApp:      clipApp,
		ViewApp:      viewApp,
		AuthApp:      app.NewAuthApp(plexClient, persistence.NewUserRepository(db), sessionRepo, tokens),
		SettingsApp:  settingsApp,
		ShareApp:     app.NewShareApp(clipRepo, cfg.Server.BaseURL),
		PlaybackApp:  app.NewPlaybackApp(clipRepo, viewApp, tokens, local, cfg.Server.BaseURL),
		Files:        local,
		Stats:        sched.Stats,
		Sweeper:      sweeper,
		Limiter:      limiter,
		Metrics:      metrics,
		MetricsPath:  cfg.Metrics.Path,
		SecureCookie: cfg.Server.SecureCookie,
		Version:      Version,
	})

	probes := map[string]grpcAdapter.Probe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if client := resource.DefaultRedisResource().Client(); client != nil {
		probes["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	return &Container{
		Config:     cfg,
		DB:         db,
		Metrics:    metrics,
		Scheduler:  sched,
		Sweeper:    sweeper,
		Health:     grpcAdapter.NewHealthServer(0, probes),
		ClipApp:    clipApp,
		CleanupApp: cleanupApp,
		Router:     router,
	}, nil
}

// ensureSecret returns the configured secret, or a random one persisted under config_dir.
func ensureSecret(cfg *config.Config) (string, error) {
	if s := strings.TrimSpace(cfg.Secret); s != "" {
		return s, nil
	}
	path := filepath.Join(cfg.Paths.ConfigDir, "secret")
	if b, err := os.ReadFile(path); err == nil {
		if s := strings.TrimSpace(string(b)); s != "" {
			return s, nil
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read secret: %w", err)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	s := hex.EncodeToString(buf)
	if err := os.WriteFile(path, []byte(s+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write secret: %w", err)
	}
	logger.Infof("Generated new secret path=%s", path)
	return s, nil
}
