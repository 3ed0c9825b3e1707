package tasks

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubTask struct {
	Task
	err      error
	executed *[]string
	deadline bool
}

func (s *stubTask) Execute(ctx context.Context) error {
	*s.executed = append(*s.executed, s.ID)
	_, s.deadline = ctx.Deadline()
	return s.err
}

func TestRunnerRunsSequentially(t *testing.T) {
	var executed []string
	first := &stubTask{Task: Task{ID: "first", Type: TaskTypeSync}, executed: &executed}
	second := &stubTask{Task: Task{ID: "second", Type: TaskTypeTag}, executed: &executed}

	if err := NewRunner(time.Minute).Run(context.Background(), first, second); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(executed) != 2 || executed[0] != "first" || executed[1] != "second" {
		t.Errorf("Expected tasks in order, got: %v", executed)
	}
	if !first.deadline {
		t.Error("Expected task context to carry a deadline")
	}
	if first.StartedAt == nil {
		t.Error("Expected task to be started")
	}
}

func TestRunnerStopsOnError(t *testing.T) {
	var executed []string
	boom := errors.New("boom")
	failing := &stubTask{Task: Task{ID: "failing", Type: TaskTypeSync}, err: boom, executed: &executed}
	skipped := &stubTask{Task: Task{ID: "skipped", Type: TaskTypeTag}, executed: &executed}

	err := NewRunner(0).Run(context.Background(), failing, skipped)
	if !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped task error, got: %v", err)
	}
	if len(executed) != 1 {
		t.Errorf("Expected the run to stop after the failure, got: %v", executed)
	}
}

func TestNewTaskAssignsUniqueIDs(t *testing.T) {
	a := NewTask(TaskTypeSync)
	b := NewTask(TaskTypeSync)

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("Expected unique non-empty ids, got %q and %q", a.ID, b.ID)
	}
	if a.GetDuration() != 0 {
		t.Error("Expected zero duration before Start")
	}
}
