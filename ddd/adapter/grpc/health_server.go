package grpc

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"cliparr/pkg/logger"
)

// ServiceName is the health service key reported for the clip engine.
const ServiceName = "cliparr.ClipService"

// Probe returns nil while a dependency is usable.
type Probe func(ctx context.Context) error

// HealthServer publishes grpc.health.v1 status derived from periodic probes.
type HealthServer struct {
	hs       *health.Server
	probes   map[string]Probe
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHealthServer 创建健康检查服务，interval<=0 时默认 15s
func NewHealthServer(interval time.Duration, probes map[string]Probe) *HealthServer {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &HealthServer{
		hs:       health.NewServer(),
		probes:   probes,
		interval: interval,
	}
}

// Register 注册到 gRPC server
func (s *HealthServer) Register(server *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(server, s.hs)
}

func (s *HealthServer) Name() string { return "grpc-health" }

// Start runs the first probe synchronously, then re-probes every interval.
func (s *HealthServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.Check(runCtx)
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.Check(runCtx)
			}
		}
	}()
	return nil
}

// Stop marks every service NOT_SERVING so clients drain before the listener closes.
func (s *HealthServer) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	s.hs.Shutdown()
	return nil
}

// Check runs all probes once and updates the serving status.
func (s *HealthServer) Check(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	for name, probe := range s.probes {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := probe(probeCtx)
		cancel()
		if err != nil {
			logger.Warn("health probe failed", map[string]interface{}{"probe": name, "error": err.Error()})
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	s.hs.SetServingStatus("", status)
	s.hs.SetServingStatus(ServiceName, status)
	return status
}
