// pkg/resource/health.go
package resource

import (
	"context"
	"fmt"
)

// HealthCheck reports the task manager as unhealthy when it is over its
// heap budget, close to its task limit, or has seen a task fail.
type HealthCheck struct {
	manager *Manager
}

// NewHealthCheck creates a health check for manager
func NewHealthCheck(manager *Manager) *HealthCheck {
	return &HealthCheck{manager: manager}
}

// Name returns the name of this health check
func (r *HealthCheck) Name() string {
	return "resource"
}

// Check verifies that usage is within limits
func (r *HealthCheck) Check(ctx context.Context) error {
	stats := r.manager.Stats()

	if stats.MemoryUsageMB > stats.MaxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB",
			stats.MemoryUsageMB, stats.MaxMemoryMB)
	}

	// warn at 80% of the limit
	threshold := int64(float64(stats.MaxTasks) * 0.8)
	if stats.TaskCount > threshold {
		return fmt.Errorf("task count %d exceeds 80%% threshold (%d/%d)",
			stats.TaskCount, threshold, stats.MaxTasks)
	}

	if stats.Failures > 0 {
		return fmt.Errorf("%d task(s) failed: %w", stats.Failures, r.manager.Err())
	}
	return nil
}
