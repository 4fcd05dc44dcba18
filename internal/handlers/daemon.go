package handlers

import (
	"fmt"

	"github.com/gavelrs/gavel/internal/types"
	"github.com/gavelrs/gavel/internal/wire"
)

// DaemonStop signals shutdown and acknowledges; the RPC server's accept
// loop exits after this reply is sent and the in-flight handler
// returns.
func (h *Handlers) DaemonStop() wire.Reply {
	select {
	case <-h.Shutdown:
		// already closed; idempotent
	default:
		close(h.Shutdown)
	}
	return wire.Ack("daemon stopping")
}

// DaemonStatus emits a human-readable summary of task/queue/GPU counts.
func (h *Handlers) DaemonStatus() wire.Reply {
	tasks := h.store.GetAllTasks()
	queues := h.store.GetAllQueues()
	gpus := h.store.GetAllGPUStats()
	ignored := h.store.GetIgnoredGPUs()

	running := 0
	for _, t := range tasks {
		if t.State == types.TaskRunning {
			running++
		}
	}

	return wire.Ack(fmt.Sprintf(
		"tasks=%d (running=%d) queues=%d gpus=%d ignored=%d",
		len(tasks), running, len(queues), len(gpus), len(ignored)))
}
