package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cliparr/pkg/logger"
)

// SweepFunc runs one expiry sweep.
type SweepFunc func(ctx context.Context) error

// SweeperStats 清理任务统计信息
type SweeperStats struct {
	Runs      uint64    `json:"runs"`
	Failures  uint64    `json:"failures"`
	StartTime time.Time `json:"startTime"`
	LastRun   time.Time `json:"lastRun"`
	LastError string    `json:"lastError,omitempty"`
}

// Sweeper runs the expiry sweep once on start and then on every tick.
type Sweeper struct {
	sweep    SweepFunc
	interval time.Duration

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stats   SweeperStats
}

// NewSweeper 创建过期清理任务，interval<=0 时按一小时执行
func NewSweeper(sweep SweepFunc, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{sweep: sweep, interval: interval}
}

func (s *Sweeper) Name() string { return "expiry-sweeper" }

// Start 启动清理循环
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("sweeper is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.stats.StartTime = time.Now()

	s.wg.Add(1)
	go s.loop(loopCtx)
	logger.Infof("Expiry sweeper started interval=%s", s.interval)
	return nil
}

// Stop 停止清理循环并等待正在执行的一轮结束
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	logger.Infof("Expiry sweeper stopped")
	return nil
}

// IsRunning 检查是否运行中
func (s *Sweeper) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// GetStats 获取统计信息
func (s *Sweeper) GetStats() SweeperStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Sweeper) loop(ctx context.Context) {
	defer s.wg.Done()

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	err := s.safeSweep(ctx)

	s.mu.Lock()
	s.stats.Runs++
	s.stats.LastRun = time.Now()
	s.stats.LastError = ""
	if err != nil {
		s.stats.Failures++
		s.stats.LastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		logger.Errorf("Expiry sweep failed error=%v", err)
	}
}

func (s *Sweeper) safeSweep(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panicked: %v", r)
		}
	}()
	return s.sweep(ctx)
}
