package handlers

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/gavelrs/gavel/internal/types"
	"github.com/gavelrs/gavel/internal/wire"
)

// TaskList filters by the requested predicate. Default when none
// specified is ByQueue(waiting_queue); ByUser is accepted but rejected
// per Q4 (no user model behind it).
func (h *Handlers) TaskList(filter wire.TaskFilter) wire.Reply {
	if filter.Kind == wire.FilterByUser {
		return wire.Err("task filter by_user is not supported")
	}
	if filter.Kind == "" {
		filter = wire.TaskFilter{Kind: wire.FilterByQueue, Value: types.WaitingQueueName}
	}

	var out []types.Task
	for _, t := range h.store.GetAllTasks() {
		if !matchesFilter(t, filter) {
			continue
		}
		out = append(out, *t)
	}
	return wire.Reply{Kind: wire.ReplyTaskStatus, Tasks: out}
}

func matchesFilter(t *types.Task, filter wire.TaskFilter) bool {
	switch filter.Kind {
	case wire.FilterAll:
		return true
	case wire.FilterRunning:
		return t.State == types.TaskRunning
	case wire.FilterFinished:
		return t.State == types.TaskFinished
	case wire.FilterByQueue:
		return t.Queue == filter.Value
	default:
		return true
	}
}

// TaskInfo returns a single task's record.
func (h *Handlers) TaskInfo(id uint64) wire.Reply {
	t := h.store.GetTask(id)
	if t == nil {
		return wire.Err(fmt.Sprintf("unknown task %d", id))
	}
	return wire.Reply{Kind: wire.ReplyTaskStatus, Tasks: []types.Task{*t}}
}

// TaskLogs reads the task's log file, returning the last 10 lines when
// tail is set, else the full content.
func (h *Handlers) TaskLogs(id uint64, tail bool) wire.Reply {
	t := h.store.GetTask(id)
	if t == nil {
		return wire.Err(fmt.Sprintf("unknown task %d", id))
	}

	f, err := os.Open(t.LogPath)
	if err != nil {
		return wire.Err(fmt.Sprintf("log file for task %d: %v", id, err))
	}
	defer f.Close()

	if !tail {
		content, err := os.ReadFile(t.LogPath)
		if err != nil {
			return wire.Err(fmt.Sprintf("read log file for task %d: %v", id, err))
		}
		return wire.Ack(string(content))
	}

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > 10 {
			lines = lines[1:]
		}
	}
	return wire.Ack(strings.Join(lines, "\n"))
}

// TaskRun moves a task from waiting_queue to running_queue; its state
// stays Waiting, the scheduler will pick it up next tick.
func (h *Handlers) TaskRun(id uint64) wire.Reply {
	t := h.store.GetTask(id)
	if t == nil {
		return wire.Err(fmt.Sprintf("unknown task %d", id))
	}
	if t.Queue != types.WaitingQueueName {
		return wire.Err(fmt.Sprintf("task %d is not in %s", id, types.WaitingQueueName))
	}
	if err := h.store.UpdateTaskQueue(id, types.RunningQueueName); err != nil {
		return wire.Err(err.Error())
	}
	return wire.Ack(fmt.Sprintf("task %d moved to %s", id, types.RunningQueueName))
}

// TaskKill sends the graceful-termination signal to a Running task's
// process; the monitor observes the exit and finalizes state, not this
// handler.
func (h *Handlers) TaskKill(id uint64) wire.Reply {
	t := h.store.GetTask(id)
	if t == nil {
		return wire.Err(fmt.Sprintf("unknown task %d", id))
	}
	if t.State != types.TaskRunning || t.PID == nil {
		return wire.Err(fmt.Sprintf("task %d is not running", id))
	}
	if err := killPid(*t.PID); err != nil {
		return wire.Err(fmt.Sprintf("kill task %d: %v", id, err))
	}
	return wire.Ack(fmt.Sprintf("sent termination signal to task %d", id))
}

// TaskRemove deletes a non-Running task from the state store.
func (h *Handlers) TaskRemove(id uint64) wire.Reply {
	t := h.store.GetTask(id)
	if t == nil {
		return wire.Err(fmt.Sprintf("unknown task %d", id))
	}
	if t.State == types.TaskRunning {
		return wire.Err(fmt.Sprintf("task %d is running; kill it first", id))
	}
	if err := h.store.RemoveTask(id); err != nil {
		return wire.Err(err.Error())
	}
	return wire.Ack(fmt.Sprintf("removed task %d", id))
}
