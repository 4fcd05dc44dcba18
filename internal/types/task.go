// Package types holds the shared data model: tasks, queues, resource
// limits and GPU telemetry snapshots.
package types

// TaskState is the lifecycle state of a Task.
type TaskState string

const (
	TaskWaiting  TaskState = "waiting"
	TaskRunning  TaskState = "running"
	TaskFinished TaskState = "finished"
	TaskFailed   TaskState = "failed"
)

// Terminal reports whether a state accepts no further transitions.
func (s TaskState) Terminal() bool {
	return s == TaskFinished || s == TaskFailed
}

// Task is a submitted unit of work and its metadata.
type Task struct {
	ID             uint64
	Name           string
	Command        string
	GPURequire     int
	State          TaskState
	Priority       int
	Queue          string
	CreatedAtUnix  int64
	StartedAtUnix  int64
	LogPath        string
	AssignedGPUs   []int
	PID            *int
	FailureReason  string
	User           string // reserved, unused
}

// Clone returns a deep-enough copy safe to hand to a caller outside the
// state store's lock.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.AssignedGPUs != nil {
		c.AssignedGPUs = append([]int(nil), t.AssignedGPUs...)
	}
	if t.PID != nil {
		pid := *t.PID
		c.PID = &pid
	}
	return &c
}
