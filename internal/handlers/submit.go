package handlers

import (
	"fmt"
	"os"

	"github.com/gavelrs/gavel/internal/types"
	"github.com/gavelrs/gavel/internal/wire"
)

// nowUnix is overridable in tests; production uses the wall clock.
var nowUnix = func() int64 { return realNowUnix() }

func (h *Handlers) newTask(command string, gpuRequire int, queue, name string, priority int) (*types.Task, error) {
	id := h.allocID()
	if name == "" {
		name = h.nextTaskName()
	}
	if queue == "" {
		queue = types.WaitingQueueName
	}
	logPath, err := h.logPathFor(id)
	if err != nil {
		return nil, err
	}
	return &types.Task{
		ID:            id,
		Name:          name,
		Command:       command,
		GPURequire:    gpuRequire,
		State:         types.TaskWaiting,
		Priority:      priority,
		Queue:         queue,
		CreatedAtUnix: nowUnix(),
		LogPath:       logPath,
	}, nil
}

// SubmitCommand inserts a new task running an arbitrary shell command
// line.
func (h *Handlers) SubmitCommand(command string, gpuRequire int, queue, name string) wire.Reply {
	if command == "" {
		return wire.Err("command must not be empty")
	}
	if gpuRequire < 0 {
		return wire.Err("gpus_required must be >= 0")
	}
	task, err := h.newTask(command, gpuRequire, queue, name, 5)
	if err != nil {
		return wire.Err(err.Error())
	}
	h.store.AddTask(task)
	if h.metrics != nil {
		h.metrics.RecordTaskSubmitted()
	}
	return wire.Ack(fmt.Sprintf("%d", task.ID))
}

// SubmitScript treats the script path as a plain executable: no
// interpreter is invoked, so the file must be executable on its own.
func (h *Handlers) SubmitScript(path string, gpuRequire int, queue, name string) wire.Reply {
	if path == "" {
		return wire.Err("script path must not be empty")
	}
	if info, err := os.Stat(path); err != nil {
		return wire.Err(fmt.Sprintf("script not found: %v", err))
	} else if info.Mode()&0111 == 0 {
		return wire.Err(fmt.Sprintf("script %q is not executable", path))
	}
	return h.SubmitCommand(path, gpuRequire, queue, name)
}

// SubmitBatchJson inserts one task per spec, falling back to
// defaultQueue when a spec omits its own queue.
func (h *Handlers) SubmitBatchJson(specs []wire.BatchTaskSpec, defaultQueue string) wire.Reply {
	if len(specs) == 0 {
		return wire.Err("batch submission must contain at least one task")
	}

	ids := make([]string, 0, len(specs))
	for _, spec := range specs {
		if spec.Command == "" {
			return wire.Err("batch task command must not be empty")
		}
		if spec.GPURequire < 0 {
			return wire.Err("batch task gpus_required must be >= 0")
		}
		queue := spec.Queue
		if queue == "" {
			queue = defaultQueue
		}
		priority := spec.Priority
		if !spec.HasPriority {
			priority = 5
		}
		task, err := h.newTask(spec.Command, spec.GPURequire, queue, spec.Name, priority)
		if err != nil {
			return wire.Err(err.Error())
		}
		h.store.AddTask(task)
		if h.metrics != nil {
			h.metrics.RecordTaskSubmitted()
		}
		ids = append(ids, fmt.Sprintf("%d", task.ID))
	}
	return wire.Ack(fmt.Sprintf("submitted %d task(s): %v", len(ids), ids))
}
