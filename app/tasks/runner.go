package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const DefaultTaskTimeout = 30 * time.Minute

// Runner executes tasks one after another. There is no queue and no retry:
// a failed task stops the run and its error is returned to the caller.
type Runner struct {
	timeout time.Duration
}

func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	return &Runner{timeout: timeout}
}

func (r *Runner) Run(ctx context.Context, tasks ...TaskInterface) error {
	for _, task := range tasks {
		if err := r.execute(ctx, task); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) execute(ctx context.Context, task TaskInterface) error {
	task.Start()

	taskCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	slog.Debug("Task started", "type", string(task.GetType()), "id", task.GetID())

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(), "duration", task.GetDuration(), "error", err)
		return fmt.Errorf("%s task failed: %w", task.GetType(), err)
	}

	return nil
}
