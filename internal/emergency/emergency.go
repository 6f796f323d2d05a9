// Package emergency repeats pipeline runs on a fixed interval while monitoring is active.
package emergency

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drishti-ai/drishti/internal/metrics"
	"github.com/drishti-ai/drishti/internal/pipeline"
)

// DefaultInterval is used when Options.Interval is not positive.
const DefaultInterval = 10 * time.Second

// Runner executes one pipeline pass.
type Runner interface {
	Run(ctx context.Context) pipeline.Run
}

// Options configures a Monitor.
type Options struct {
	Interval time.Duration
	Metrics  *metrics.Recorder
	Logger   *slog.Logger
	// OnActivity observes monitoring start and stop.
	OnActivity func(active bool)
}

// Monitor owns at most one active Session.
type Monitor struct {
	runner Runner
	opts   Options

	mu      sync.Mutex
	session *Session
}

// Session is one active monitoring period.
type Session struct {
	monitor  *Monitor
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	ticks    atomic.Int32
}

// NewMonitor returns an idle monitor.
func NewMonitor(runner Runner, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Monitor{runner: runner, opts: opts}
}

// Start begins monitoring. When a session is already active it is returned
// unchanged and started is false. The first run happens one interval after
// Start. The session ends on Stop or when ctx is done.
func (m *Monitor) Start(ctx context.Context) (session *Session, started bool) {
	m.mu.Lock()
	if m.session != nil {
		s := m.session
		m.mu.Unlock()
		return s, false
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s := &Session{monitor: m, cancel: cancel, done: make(chan struct{})}
	m.session = s
	m.mu.Unlock()

	m.logInfo("emergency monitoring started", "interval_ms", m.opts.Interval.Milliseconds())
	m.notify(true)
	go s.loop(loopCtx)
	return s, true
}

// Stop ends the active session, if any. It never interrupts an in-flight run.
func (m *Monitor) Stop() bool {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return false
	}
	s.Stop()
	return true
}

// Active reports whether a session is running.
func (m *Monitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// Stop is idempotent. The loop exits once any in-flight run completes.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		s.monitor.release(s)
	})
}

// Done is closed when the ticker loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Ticks reports how many runs the session has started.
func (s *Session) Ticks() int {
	return int(s.ticks.Load())
}

func (s *Session) loop(ctx context.Context) {
	defer close(s.done)
	defer s.Stop()

	m := s.monitor
	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}

		// Runs are detached so Stop lets the current announcement finish.
		s.ticks.Add(1)
		run := m.runner.Run(context.WithoutCancel(ctx))
		m.opts.Metrics.ObserveEmergencyTick(run.Failed())
		if run.Failed() {
			m.logWarn("emergency run failed", "run_id", run.ID, "stage", string(run.Stage), "error", run.Err.Error())
		}
	}
}

func (m *Monitor) release(s *Session) {
	m.mu.Lock()
	owned := m.session == s
	if owned {
		m.session = nil
	}
	m.mu.Unlock()
	if !owned {
		return
	}
	m.logInfo("emergency monitoring stopped", "ticks", s.Ticks())
	m.notify(false)
}

func (m *Monitor) notify(active bool) {
	if m.opts.OnActivity != nil {
		m.opts.OnActivity(active)
	}
}

func (m *Monitor) logInfo(msg string, args ...any) {
	if m.opts.Logger != nil {
		m.opts.Logger.Info(msg, args...)
	}
}

func (m *Monitor) logWarn(msg string, args ...any) {
	if m.opts.Logger != nil {
		m.opts.Logger.Warn(msg, args...)
	}
}
