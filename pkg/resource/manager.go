// pkg/resource/manager.go
package resource

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-blob/pkg/config"
	"github.com/opd-ai/go-blob/pkg/logging"
)

// ErrShuttingDown is returned by Go once Shutdown has begun
var ErrShuttingDown = errors.New("task manager is shutting down")

// Manager runs the long-lived tasks of the headless runner (the tick
// loop, the health endpoint) under a shared context, a task limit and a
// heap budget.
type Manager struct {
	maxMemoryMB     int64
	maxTasks        int64
	shutdownTimeout time.Duration
	checkInterval   time.Duration

	taskCount     int64
	memoryUsageMB int64
	failures      int64

	ctx     context.Context
	cancel  context.CancelFunc
	tasks   sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
	closed  bool
	logger  *logging.Logger

	lastCheck time.Time
	errs      []error
}

// NewManager creates a manager whose tasks inherit ctx
func NewManager(ctx context.Context, cfg config.RuntimeConfig, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &Manager{
		maxMemoryMB:     cfg.MaxMemoryMB,
		maxTasks:        int64(cfg.MaxTasks),
		shutdownTimeout: cfg.ShutdownTimeout,
		checkInterval:   cfg.CheckInterval,
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
		logger:          logger,
		lastCheck:       time.Now(),
	}
}

// Context is cancelled when Shutdown starts
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Start begins the memory monitoring loop
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.running || m.closed {
		m.mu.Unlock()
		return fmt.Errorf("task manager already started")
	}
	m.running = true
	m.mu.Unlock()

	go m.monitoringLoop()

	m.logger.Info(m.ctx, "Task manager started",
		"max_memory_mb", m.maxMemoryMB,
		"max_tasks", m.maxTasks,
		"check_interval", m.checkInterval,
	)
	return nil
}

// Go runs fn in a tracked goroutine. A returned error or a panic is
// logged and kept for Err; neither stops the other tasks.
func (m *Manager) Go(name string, fn func(ctx context.Context) error) error {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return ErrShuttingDown
	}

	if n := atomic.AddInt64(&m.taskCount, 1); n > m.maxTasks {
		atomic.AddInt64(&m.taskCount, -1)
		m.logger.Warn(m.ctx, "Task limit exceeded",
			"current", n-1,
			"limit", m.maxTasks,
			"name", name,
		)
		return fmt.Errorf("task limit exceeded: %d/%d", n-1, m.maxTasks)
	}

	m.tasks.Add(1)
	go func() {
		defer m.tasks.Done()
		defer atomic.AddInt64(&m.taskCount, -1)

		defer func() {
			if r := recover(); r != nil {
				m.fail(name, fmt.Errorf("panic: %v", r))
			}
		}()

		if err := fn(m.ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.fail(name, err)
		}
	}()
	return nil
}

func (m *Manager) fail(name string, err error) {
	m.logger.Error(m.ctx, "Task failed", err, "name", name)

	m.mu.Lock()
	m.errs = append(m.errs, fmt.Errorf("%s: %w", name, err))
	m.mu.Unlock()
	atomic.AddInt64(&m.failures, 1)
}

// Err joins the errors of every failed task
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return errors.Join(m.errs...)
}

// CheckMemoryUsage samples the heap and compares it with the budget
func (m *Manager) CheckMemoryUsage() error {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	currentMB := int64(ms.Alloc / 1024 / 1024)
	atomic.StoreInt64(&m.memoryUsageMB, currentMB)

	m.mu.Lock()
	m.lastCheck = time.Now()
	m.mu.Unlock()

	if currentMB > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, m.maxMemoryMB)
	}
	return nil
}

// TaskCount returns the number of running tasks
func (m *Manager) TaskCount() int64 {
	return atomic.LoadInt64(&m.taskCount)
}

// MemoryUsage returns the heap size seen by the last check, in MB
func (m *Manager) MemoryUsage() int64 {
	return atomic.LoadInt64(&m.memoryUsageMB)
}

// Stats contains task and memory usage
type Stats struct {
	TaskCount     int64     `json:"task_count"`
	MaxTasks      int64     `json:"max_tasks"`
	Failures      int64     `json:"failures"`
	MemoryUsageMB int64     `json:"memory_usage_mb"`
	MaxMemoryMB   int64     `json:"max_memory_mb"`
	LastCheck     time.Time `json:"last_check"`
}

// Stats returns current usage
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	lastCheck := m.lastCheck
	m.mu.RUnlock()

	return Stats{
		TaskCount:     m.TaskCount(),
		MaxTasks:      m.maxTasks,
		Failures:      atomic.LoadInt64(&m.failures),
		MemoryUsageMB: m.MemoryUsage(),
		MaxMemoryMB:   m.maxMemoryMB,
		LastCheck:     lastCheck,
	}
}

// Shutdown cancels the shared context and waits for every task, giving
// up after the configured timeout or when ctx ends.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	wasRunning := m.running
	m.running = false
	m.mu.Unlock()

	m.logger.Info(ctx, "Shutting down task manager", "tasks", m.TaskCount())
	m.cancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, m.shutdownTimeout)
	defer cancel()

	if wasRunning {
		select {
		case <-m.done:
		case <-shutdownCtx.Done():
			m.logger.Warn(ctx, "Monitoring loop did not stop gracefully")
		}
	}

	return m.waitForTasks(shutdownCtx)
}

func (m *Manager) waitForTasks(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		m.tasks.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		m.logger.Info(ctx, "All tasks finished")
		return nil
	case <-ctx.Done():
		remaining := m.TaskCount()
		m.logger.Warn(ctx, "Shutdown timeout exceeded with tasks still running",
			"remaining", remaining,
		)
		return fmt.Errorf("shutdown timeout: %d tasks still running", remaining)
	}
}

func (m *Manager) monitoringLoop() {
	defer close(m.done)

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performChecks()
		case <-m.ctx.Done():
			m.logger.Debug(m.ctx, "Monitoring loop stopping")
			return
		}
	}
}

func (m *Manager) performChecks() {
	if err := m.CheckMemoryUsage(); err != nil {
		m.logger.Error(m.ctx, "Memory limit exceeded", err,
			"current_mb", m.MemoryUsage(),
			"limit_mb", m.maxMemoryMB,
		)
	}

	m.logger.Debug(m.ctx, "Resource usage check",
		"tasks", m.TaskCount(),
		"max_tasks", m.maxTasks,
		"memory_mb", m.MemoryUsage(),
		"max_memory_mb", m.maxMemoryMB,
	)
}
