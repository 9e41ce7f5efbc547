package task

import (
	"context"
	"sync"

	"cliparr/pkg/logger"
)

// BackgroundTask represents a long-running background process (scheduler, sweeper, registry).
type BackgroundTask interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
}

// Manager starts registered tasks in order and stops them in reverse order.
type Manager struct {
	tasks  []BackgroundTask
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{tasks: make([]BackgroundTask, 0)}
}

// Register adds a background task; should be called during assembly before StartAll.
func (m *Manager) Register(task BackgroundTask) {
	if task == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
}

// StartAll starts all registered tasks once. On failure the already started
// tasks are stopped again.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return nil
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	for i, t := range m.tasks {
		if t == nil {
			continue
		}
		if err := t.Start(m.ctx); err != nil {
			logger.Errorf("background task failed to start name=%s error=%v", t.Name(), err)
			m.stopLocked(i - 1)
			return err
		}
		logger.Infof("background task started name=%s", t.Name())
	}
	return nil
}

// StopAll stops all running tasks.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked(len(m.tasks) - 1)
}

func (m *Manager) stopLocked(from int) {
	if m.cancel != nil {
		m.cancel()
	}
	for i := from; i >= 0; i-- {
		if t := m.tasks[i]; t != nil {
			if err := t.Stop(); err != nil {
				logger.Warnf("background task stop error name=%s error=%v", t.Name(), err)
			}
		}
	}
	m.cancel = nil
}
