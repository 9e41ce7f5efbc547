package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"cliparr/ddd/infrastructure/database/persistence"
	"cliparr/internal/resource"
	"cliparr/pkg/config"
	"cliparr/pkg/logger"
	"cliparr/pkg/manager"
	"cliparr/pkg/observability"
	"cliparr/pkg/registry"
	"cliparr/pkg/task"
)

// Version is overridden at build time with -ldflags "-X cliparr/app.Version=...".
var Version = "dev"

const shutdownTimeout = 5 * time.Second

// environment 启动公共部分：配置、日志、目录
type environment struct {
	cfg *config.Config
	log *logger.Logger
}

func prepare(cfgPath string) (*environment, error) {
	if cfgPath == "" {
		cfgPath = resolveConfigPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config (%s): %w", cfgPath, err)
	}
	// 设置全局配置（必须在资源管理器初始化之前）
	config.SetGlobalConfig(cfg)

	logService := logger.NewLogger(cfg)
	logger.SetGlobalLogger(logService)
	logger.Debug("Logger initialized", map[string]interface{}{
		"level":  cfg.Log.Level,
		"format": cfg.Log.Format,
		"output": cfg.Log.Output,
		"config": cfgPath,
	})

	for _, dir := range []string{cfg.Paths.ConfigDir, cfg.Paths.ClipsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return &environment{cfg: cfg, log: logService}, nil
}

func (e *environment) close() {
	if e.log != nil {
		e.log.Close()
	}
}

// openStore opens registered resources and migrates the schema.
func openStore() (func(), error) {
	manager.MustInitResources()
	db := resource.DefaultDatabaseResource().MainDB()
	if db == nil {
		manager.CloseResources()
		return nil, errors.New("database resource not opened")
	}
	if err := persistence.AutoMigrate(db); err != nil {
		manager.CloseResources()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return manager.CloseResources, nil
}

// Run starts the HTTP and gRPC servers plus background tasks and blocks until SIGINT/SIGTERM.
func Run(cfgPath string) error {
	env, err := prepare(cfgPath)
	if err != nil {
		return err
	}
	defer env.close()
	cfg := env.cfg

	logger.Infof("Cliparr starting version=%s", Version)

	// 检查 FFmpeg 是否可用，直接在启动阶段失败
	if err := checkFFmpeg(cfg.Transcode.FFmpeg); err != nil {
		return err
	}

	// 单实例锁
	lock := flock.New(filepath.Join(cfg.Paths.ConfigDir, "cliparr.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another cliparr instance holds %s", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	stopProfiling, err := observability.StartProfiling(cfg.Profiling)
	if err != nil {
		logger.Warnf("Pyroscope profiling disabled error=%v", err)
	}
	defer stopProfiling()

	closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	c, err := buildContainer(cfg)
	if err != nil {
		return err
	}

	// 后台任务：健康探测、转码调度、过期清理、服务注册
	tasks := task.NewManager()
	tasks.Register(c.Health)
	tasks.Register(c.Scheduler)
	if cfg.Cleanup.Enabled {
		tasks.Register(c.Sweeper)
	}
	if cfg.ServiceRegistry.Enabled && cfg.GRPCServer.Enabled {
		reg, err := newRegistry(cfg)
		if err != nil {
			return err
		}
		tasks.Register(reg)
	}
	if err := tasks.StartAll(context.Background()); err != nil {
		return fmt.Errorf("start background tasks: %w", err)
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	engine := gin.New()
	c.Router.SetupMiddleware(engine)
	c.Router.SetupRoutes(engine)

	server := &http.Server{
		Addr:         cfg.Server.HTTPAddr(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var grpcServer *grpc.Server
	var grpcListener net.Listener
	if cfg.GRPCServer.Enabled {
		grpcListener, err = net.Listen("tcp", cfg.GRPCServer.GRPCAddr())
		if err != nil {
			tasks.StopAll()
			return fmt.Errorf("listen grpc %s: %w", cfg.GRPCServer.GRPCAddr(), err)
		}
		grpcServer = grpc.NewServer()
		c.Health.Register(grpcServer)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("HTTP server started addr=%s base_url=%s", server.Addr, cfg.Server.BaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if grpcServer != nil {
		g.Go(func() error {
			logger.Infof("gRPC server started addr=%s", grpcListener.Addr())
			if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Infof("Shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("HTTP server forced to close error=%v", err)
		}
		return nil
	})

	runErr := g.Wait()

	// 停止后台任务；排队中的转码以失败结束，等待回写完成
	tasks.StopAll()
	c.ClipApp.Wait()

	if runErr != nil {
		logger.Errorf("Cliparr stopped with error=%v", runErr)
		return runErr
	}
	logger.Infof("Cliparr exited safely")
	return nil
}

// Sweep runs one expiry sweep and exits.
func Sweep(cfgPath string) error {
	env, err := prepare(cfgPath)
	if err != nil {
		return err
	}
	defer env.close()

	closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	c, err := buildContainer(env.cfg)
	if err != nil {
		return err
	}
	report, err := c.CleanupApp.Sweep(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("scanned=%d expired=%d bytes_reclaimed=%d sessions_removed=%d\n",
		report.Scanned, report.Expired, report.BytesReclaimed, report.SessionsRemoved)
	return nil
}

// Migrate applies the schema and exits.
func Migrate(cfgPath string) error {
	env, err := prepare(cfgPath)
	if err != nil {
		return err
	}
	defer env.close()

	closeStore, err := openStore()
	if err != nil {
		return err
	}
	closeStore()
	logger.Infof("Database migrated driver=%s", env.cfg.Database.Driver)
	return nil
}

func checkFFmpeg(cfg config.FFmpegConfig) error {
	bin := strings.TrimSpace(cfg.BinaryPath)
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("ffmpeg binary %q not found, install it or set transcode.ffmpeg.binary_path: %w", bin, err)
	}
	if strings.Contains(strings.ToLower(cfg.VideoCodec), "nvenc") {
		if out, err := exec.Command(bin, "-hide_banner", "-encoders").Output(); err == nil &&
			!strings.Contains(strings.ToLower(string(out)), "nvenc") {
			logger.Warnf("NVENC encoder not detected in FFmpeg, codec=%s", cfg.VideoCodec)
		}
	}
	return nil
}

func newRegistry(cfg *config.Config) (*registry.ServiceRegistry, error) {
	host := cfg.ServiceRegistry.RegisterHost
	if host == "" {
		host = cfg.GRPCServer.Host
	}
	serviceID := cfg.ServiceRegistry.ServiceID
	if serviceID == "" {
		serviceID, _ = os.Hostname()
	}
	name := cfg.ServiceRegistry.ServiceName
	if name == "" {
		name = "cliparr"
	}
	return registry.NewServiceRegistry(
		registry.RegistryConfig{
			Endpoints:   cfg.Etcd.Endpoints,
			DialTimeout: cfg.Etcd.DialTimeout,
			Username:    cfg.Etcd.Username,
			Password:    cfg.Etcd.Password,
		},
		registry.ServiceConfig{
			ServiceName: name,
			ServiceID:   serviceID,
			TTL:         cfg.ServiceRegistry.TTL,
		},
		net.JoinHostPort(host, fmt.Sprint(cfg.GRPCServer.Port)),
	)
}

// resolveConfigPath 根据环境选择配置文件，支持CONFIG_PATH覆盖、CONFIG_ENV区分环境
func resolveConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	env := strings.ToLower(strings.TrimSpace(os.Getenv("CONFIG_ENV")))
	if env == "" {
		env = "dev"
	}

	switch env {
	case "prod", "production":
		return "configs/config.prod.yaml"
	case "dev", "development":
		return "configs/config.dev.yaml"
	default:
		return fmt.Sprintf("configs/config.%s.yaml", env)
	}
}
