// Package mirror synchronizes chore definitions with an external task
// provider. The mirror is strictly best-effort: recurrence and occurrence
// tracking are correct with no provider configured, and provider failures are
// logged, retried briefly, and never surfaced to lifecycle callers.
package mirror

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// Task is the provider's view of a mirrored chore.
type Task struct {
	ID      string
	Title   string
	Notes   string
	DueDate time.Time
	Status  string
}

// Provider is the narrow seam to the external task tracker.
type Provider interface {
	CreateTask(ctx context.Context, title string, dueDate time.Time, notes string) (string, error)
	UpdateTaskStatus(ctx context.Context, taskID, status string) error
	GetTask(ctx context.Context, taskID string) (*Task, error)
}

const (
	maxAttempts  = 3
	baseInterval = 250 * time.Millisecond
)

// Mirror wraps a Provider with retry and error isolation. A nil Mirror is
// valid and does nothing, so callers never branch on whether mirroring is
// configured.
type Mirror struct {
	provider Provider
	logger   *slog.Logger
}

func New(provider Provider, logger *slog.Logger) *Mirror {
	if provider == nil {
		return nil
	}
	return &Mirror{provider: provider, logger: logger}
}

func (m *Mirror) backoff() retry.Backoff {
	return retry.WithMaxRetries(maxAttempts-1, retry.NewFibonacci(baseInterval))
}

// TaskCreated pushes a newly created chore definition to the provider and
// returns the provider's task id, or "" when mirroring failed or is disabled.
func (m *Mirror) TaskCreated(ctx context.Context, title string, dueDate time.Time) string {
	if m == nil {
		return ""
	}

	var taskID string
	err := retry.Do(ctx, m.backoff(), func(ctx context.Context) error {
		id, err := m.provider.CreateTask(ctx, title, dueDate, "")
		if err != nil {
			return retry.RetryableError(err)
		}
		taskID = id
		return nil
	})
	if err != nil {
		m.logger.Warn("mirror create task failed", "title", title, "error", err)
		return ""
	}

	m.logger.Debug("mirrored task created", "title", title, "provider_task_id", taskID)
	return taskID
}

// TaskResolved pushes an occurrence resolution to the provider.
func (m *Mirror) TaskResolved(ctx context.Context, providerTaskID, status string) {
	if m == nil || providerTaskID == "" {
		return
	}

	err := retry.Do(ctx, m.backoff(), func(ctx context.Context) error {
		if err := m.provider.UpdateTaskStatus(ctx, providerTaskID, status); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		m.logger.Warn("mirror update task failed", "provider_task_id", providerTaskID, "status", status, "error", err)
	}
}
