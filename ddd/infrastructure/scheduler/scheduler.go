package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cliparr/ddd/domain/port"
	"cliparr/pkg/logger"
	"cliparr/pkg/observability"
)

// ErrSchedulerStopped resolves jobs that never got a slot before Stop.
var ErrSchedulerStopped = errors.New("transcode scheduler stopped")

// Job is one clip render request.
type Job struct {
	ClipID   string
	FilePath string
	StartMs  int64
	EndMs    int64
}

// Result is delivered exactly once on a Handle.
type Result struct {
	Output port.TranscodeResult
	Err    error
}

// Handle is the caller's side of a submitted job.
type Handle struct {
	job  Job
	done chan Result
}

func newHandle(job Job) *Handle {
	return &Handle{job: job, done: make(chan Result, 1)}
}

// Job returns the submitted job.
func (h *Handle) Job() Job { return h.job }

// Done receives exactly one Result and is then closed.
func (h *Handle) Done() <-chan Result { return h.done }

// Wait blocks until the job resolves or ctx ends.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case r := <-h.done:
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (h *Handle) resolve(r Result) {
	h.done <- r
	close(h.done)
}

// LimitFunc returns the current number of transcode slots. Values below one count as one.
type LimitFunc func() int

// OutputDirFunc maps a clip id to its artifact directory.
type OutputDirFunc func(clipID string) string

// Stats is a point-in-time view of the scheduler.
type Stats struct {
	Active    int    `json:"active"`
	Queued    int    `json:"queued"`
	Submitted uint64 `json:"submitted"`
	Succeeded uint64 `json:"succeeded"`
	Failed    uint64 `json:"failed"`
}

type completion struct {
	handle  *Handle
	err     error
	elapsed time.Duration
}

// Scheduler runs at most LimitFunc() jobs at once and queues the rest in submission order.
// The active count and backlog belong to the run goroutine.
type Scheduler struct {
	executor  port.TranscodeExecutor
	outputDir OutputDirFunc
	limit     LimitFunc
	timeout   time.Duration
	metrics   *observability.Metrics

	inboxMu sync.Mutex
	inbox   []*Handle
	stopped bool
	wake    chan struct{}

	doneCh chan completion
	exited chan struct{}
	cancel context.CancelFunc
	jobs   sync.WaitGroup

	statsMu sync.RWMutex
	stats   Stats

	startOnce sync.Once
	stopOnce  sync.Once
}

// Option 调度器可选项
type Option func(*Scheduler)

// WithTimeout bounds each job's wall time. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// WithMetrics exports depth and job counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New 创建调度器
func New(executor port.TranscodeExecutor, outputDir OutputDirFunc, limit LimitFunc, opts ...Option) *Scheduler {
	if limit == nil {
		limit = func() int { return 1 }
	}
	s := &Scheduler{
		executor:  executor,
		outputDir: outputDir,
		limit:     limit,
		wake:      make(chan struct{}, 1),
		doneCh:    make(chan completion),
		exited:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Name() string { return "transcode-scheduler" }

// Submit enqueues a job and returns immediately.
func (s *Scheduler) Submit(job Job) *Handle {
	h := newHandle(job)
	s.inboxMu.Lock()
	if s.stopped {
		s.inboxMu.Unlock()
		h.resolve(Result{Err: ErrSchedulerStopped})
		return h
	}
	s.inbox = append(s.inbox, h)
	s.inboxMu.Unlock()

	s.statsMu.Lock()
	s.stats.Submitted++
	s.stats.Queued++
	s.statsMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return h
}

// Start launches the dispatch loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.startOnce.Do(func() {
		loopCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		go s.run(loopCtx)
		logger.Infof("Transcode scheduler started slots=%d", s.currentLimit())
	})
	return nil
}

// Stop cancels running jobs, fails queued ones and waits for the loop to exit.
func (s *Scheduler) Stop() error {
	s.stopOnce.Do(func() {
		s.inboxMu.Lock()
		s.stopped = true
		s.inboxMu.Unlock()

		if s.cancel == nil {
			s.drainInbox(nil)
			return
		}
		s.cancel()
		<-s.exited
		s.jobs.Wait()
		logger.Infof("Transcode scheduler stopped")
	})
	return nil
}

// Stats returns the latest counters.
func (s *Scheduler) Stats() Stats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.exited)

	var (
		active  int
		backlog []*Handle
	)

	publish := func() {
		s.statsMu.Lock()
		s.stats.Active = active
		s.inboxMu.Lock()
		s.stats.Queued = len(backlog) + len(s.inbox)
		s.inboxMu.Unlock()
		s.statsMu.Unlock()
		s.metrics.SetSchedulerDepth(active, len(backlog))
	}

	dispatch := func() {
		for len(backlog) > 0 && active < s.currentLimit() {
			h := backlog[0]
			backlog[0] = nil
			backlog = backlog[1:]
			active++
			s.jobs.Add(1)
			go s.execute(ctx, h)
		}
		publish()
	}

	for {
		select {
		case <-ctx.Done():
			s.drainInbox(backlog)
			backlog = nil
			publish()
			return
		case <-s.wake:
			s.inboxMu.Lock()
			backlog = append(backlog, s.inbox...)
			s.inbox = nil
			s.inboxMu.Unlock()
			dispatch()
		case c := <-s.doneCh:
			// Releasing the slot and refilling it happen in this one iteration.
			active--
			s.statsMu.Lock()
			if c.err != nil {
				s.stats.Failed++
			} else {
				s.stats.Succeeded++
			}
			s.statsMu.Unlock()
			s.metrics.ObserveJob(c.err == nil, c.elapsed)
			dispatch()
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, h *Handle) {
	defer s.jobs.Done()

	jobCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	job := h.Job()
	started := time.Now()
	out, err := s.runExecutor(jobCtx, job)
	elapsed := time.Since(started)
	if err != nil {
		logger.Warn("Transcode job failed", map[string]interface{}{
			"clip_id": job.ClipID,
			"elapsed": elapsed.String(),
			"error":   err.Error(),
		})
	} else {
		logger.Info("Transcode job finished", map[string]interface{}{
			"clip_id": job.ClipID,
			"elapsed": elapsed.String(),
		})
	}
	h.resolve(Result{Output: out, Err: err})

	select {
	case s.doneCh <- completion{handle: h, err: err, elapsed: elapsed}:
	case <-s.exited:
	}
}

func (s *Scheduler) runExecutor(ctx context.Context, job Job) (out port.TranscodeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transcode panic: %v", r)
		}
	}()
	return s.executor.Execute(ctx, job.FilePath, job.StartMs, job.EndMs, s.outputDir(job.ClipID))
}

// drainInbox closes the inbox for good and fails everything still waiting.
func (s *Scheduler) drainInbox(backlog []*Handle) {
	s.inboxMu.Lock()
	s.stopped = true
	pending := append(backlog, s.inbox...)
	s.inbox = nil
	s.inboxMu.Unlock()
	for _, h := range pending {
		h.resolve(Result{Err: ErrSchedulerStopped})
	}
	if len(pending) > 0 {
		logger.Warnf("Transcode scheduler stopped with %d queued jobs", len(pending))
	}
}

func (s *Scheduler) currentLimit() int {
	n := s.limit()
	if n < 1 {
		return 1
	}
	return n
}
