// pkg/resource/manager_test.go
package resource

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opd-ai/go-blob/pkg/config"
	"github.com/opd-ai/go-blob/pkg/logging"
)

func testRuntime(maxTasks int) config.RuntimeConfig {
	return config.RuntimeConfig{
		MaxMemoryMB:     500,
		MaxTasks:        maxTasks,
		ShutdownTimeout: 5 * time.Second,
		CheckInterval:   time.Second,
	}
}

func newTestManager(cfg config.RuntimeConfig) *Manager {
	return NewManager(context.Background(), cfg, logging.Discard())
}

func TestNewManager(t *testing.T) {
	m := newTestManager(config.RuntimeConfig{
		MaxMemoryMB:     500,
		MaxTasks:        100,
		ShutdownTimeout: 30 * time.Second,
		CheckInterval:   10 * time.Second,
	})
	defer m.Shutdown(context.Background())

	if m.maxMemoryMB != 500 {
		t.Errorf("Expected MaxMemoryMB 500, got %d", m.maxMemoryMB)
	}
	if m.maxTasks != 100 {
		t.Errorf("Expected MaxTasks 100, got %d", m.maxTasks)
	}
	if m.shutdownTimeout != 30*time.Second {
		t.Errorf("Expected ShutdownTimeout 30s, got %v", m.shutdownTimeout)
	}
	if m.checkInterval != 10*time.Second {
		t.Errorf("Expected CheckInterval 10s, got %v", m.checkInterval)
	}
}

func TestManager_Go(t *testing.T) {
	m := newTestManager(testRuntime(3))
	defer m.Shutdown(context.Background())

	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		err := m.Go("worker", func(ctx context.Context) error {
			defer wg.Done()
			<-release
			return nil
		})
		if err != nil {
			t.Errorf("Expected no error for task %d, got: %v", i, err)
		}
	}

	err := m.Go("one-too-many", func(ctx context.Context) error { return nil })
	if err == nil {
		t.Error("Expected error when exceeding task limit")
	}

	close(release)
	wg.Wait()
	waitFor(t, func() bool { return m.TaskCount() == 0 })

	if m.Err() != nil {
		t.Errorf("Expected no task errors, got %v", m.Err())
	}
}

func TestManager_GoRecordsFailures(t *testing.T) {
	m := newTestManager(testRuntime(10))
	defer m.Shutdown(context.Background())

	boom := errors.New("boom")
	if err := m.Go("failing", func(ctx context.Context) error { return boom }); err != nil {
		t.Fatalf("Go failed: %v", err)
	}
	if err := m.Go("panicking", func(ctx context.Context) error { panic("test panic") }); err != nil {
		t.Fatalf("Go failed: %v", err)
	}

	waitFor(t, func() bool { return m.Stats().Failures == 2 })

	err := m.Err()
	if !errors.Is(err, boom) {
		t.Errorf("Expected joined error to wrap boom, got %v", err)
	}
	if !strings.Contains(err.Error(), "panicking: panic: test panic") {
		t.Errorf("Expected panic to be recorded, got %v", err)
	}
	waitFor(t, func() bool { return m.TaskCount() == 0 })
}

func TestManager_CancelledTaskIsNotAFailure(t *testing.T) {
	m := newTestManager(testRuntime(10))

	err := m.Go("loop", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != nil {
		t.Fatalf("Go failed: %v", err)
	}

	if err := m.Shutdown(context.Background()); err != nil {
		t.Errorf("Expected clean shutdown, got %v", err)
	}
	if m.Err() != nil {
		t.Errorf("Expected cancellation to be ignored, got %v", m.Err())
	}
}

func TestManager_GoAfterShutdown(t *testing.T) {
	m := newTestManager(testRuntime(10))
	m.Shutdown(context.Background())

	err := m.Go("late", func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrShuttingDown) {
		t.Errorf("Expected ErrShuttingDown, got %v", err)
	}
}

func TestManager_CheckMemoryUsage(t *testing.T) {
	m := newTestManager(config.RuntimeConfig{
		MaxMemoryMB:     100000,
		MaxTasks:        10,
		ShutdownTimeout: time.Second,
		CheckInterval:   time.Second,
	})
	defer m.Shutdown(context.Background())

	if err := m.CheckMemoryUsage(); err != nil {
		t.Errorf("Expected memory check to pass with a large limit, got: %v", err)
	}

	low := newTestManager(config.RuntimeConfig{
		MaxMemoryMB:     -1,
		MaxTasks:        10,
		ShutdownTimeout: time.Second,
		CheckInterval:   time.Second,
	})
	defer low.Shutdown(context.Background())

	if err := low.CheckMemoryUsage(); err == nil {
		t.Error("Expected memory check to fail with a negative limit")
	}
}

func TestManager_Stats(t *testing.T) {
	m := newTestManager(testRuntime(10))
	defer m.Shutdown(context.Background())

	before := time.Now()
	m.CheckMemoryUsage()
	stats := m.Stats()

	if stats.MaxMemoryMB != 500 {
		t.Errorf("Expected MaxMemoryMB 500, got %d", stats.MaxMemoryMB)
	}
	if stats.MaxTasks != 10 {
		t.Errorf("Expected MaxTasks 10, got %d", stats.MaxTasks)
	}
	if stats.LastCheck.Before(before) {
		t.Error("Expected LastCheck to be refreshed")
	}
}

func TestManager_StartAndShutdown(t *testing.T) {
	m := newTestManager(config.RuntimeConfig{
		MaxMemoryMB:     500,
		MaxTasks:        10,
		ShutdownTimeout: 5 * time.Second,
		CheckInterval:   20 * time.Millisecond,
	})

	before := time.Now()
	if err := m.Start(); err != nil {
		t.Errorf("Expected no error starting manager, got: %v", err)
	}
	if err := m.Start(); err == nil {
		t.Error("Expected error when starting a running manager")
	}

	waitFor(t, func() bool { return m.Stats().LastCheck.After(before) })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.Shutdown(ctx); err != nil {
		t.Errorf("Expected no error during shutdown, got: %v", err)
	}
	if err := m.Shutdown(ctx); err != nil {
		t.Errorf("Expected no error during second shutdown, got: %v", err)
	}
	if m.Context().Err() == nil {
		t.Error("Expected task context to be cancelled")
	}
}

func TestManager_ShutdownTimeout(t *testing.T) {
	m := newTestManager(config.RuntimeConfig{
		MaxMemoryMB:     500,
		MaxTasks:        10,
		ShutdownTimeout: 100 * time.Millisecond,
		CheckInterval:   time.Second,
	})
	if err := m.Start(); err != nil {
		t.Fatalf("Failed to start manager: %v", err)
	}

	stop := make(chan struct{})
	defer close(stop)

	var started int32
	err := m.Go("stubborn", func(ctx context.Context) error {
		atomic.StoreInt32(&started, 1)
		<-stop
		return nil
	})
	if err != nil {
		t.Fatalf("Go failed: %v", err)
	}
	waitFor(t, func() bool { return atomic.LoadInt32(&started) == 1 })

	start := time.Now()
	err = m.Shutdown(context.Background())
	elapsed := time.Since(start)

	if err == nil {
		t.Error("Expected shutdown to time out")
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("Shutdown finished too quickly: %v", elapsed)
	}
}

func TestManager_ConcurrentGo(t *testing.T) {
	m := newTestManager(testRuntime(50))
	defer m.Shutdown(context.Background())

	var wg sync.WaitGroup
	var ran int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			err := m.Go("concurrent", func(ctx context.Context) error {
				atomic.AddInt32(&ran, 1)
				return nil
			})
			if err != nil {
				t.Errorf("Worker %d failed to start task: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	waitFor(t, func() bool { return atomic.LoadInt32(&ran) == 20 && m.TaskCount() == 0 })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func BenchmarkManager_Go(b *testing.B) {
	m := newTestManager(config.RuntimeConfig{
		MaxMemoryMB:     500,
		MaxTasks:        1 << 20,
		ShutdownTimeout: 5 * time.Second,
		CheckInterval:   10 * time.Second,
	})
	defer m.Shutdown(context.Background())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Go("bench", func(ctx context.Context) error { return nil })
	}
}
