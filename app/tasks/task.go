package tasks

import (
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeFetchEnqueue TaskType = "fetch_enqueue"
	TaskTypeScanDeliver  TaskType = "scan_deliver"
)

// Task identifies a single pipeline run for logging.
type Task struct {
	ID        string
	Type      TaskType
	StartedAt *time.Time
}

func NewTask(taskType TaskType) *Task {
	return &Task{
		ID:   uuid.NewString(),
		Type: taskType,
	}
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}
