package handlers

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gavelrs/gavel/internal/types"
	"github.com/gavelrs/gavel/internal/wire"
)

// GpuList returns the current telemetry snapshot for every known GPU.
func (h *Handlers) GpuList() wire.Reply {
	return wire.Reply{Kind: wire.ReplyGpuStatus, Gpus: h.store.GetAllGPUStats()}
}

// GpuInfo returns one GPU's snapshot, or every GPU's if no id was given.
func (h *Handlers) GpuInfo(id int, hasID bool) wire.Reply {
	if !hasID {
		return h.GpuList()
	}
	st, ok := h.store.GetGPUStats(id)
	if !ok {
		return wire.Err(fmt.Sprintf("unknown gpu %d", id))
	}
	return wire.Reply{Kind: wire.ReplyGpuStatus, Gpus: []types.GpuStats{st}}
}

// GpuAllocate assigns GPUs to a queue, rejecting ignored ids or ids
// already owned by another queue; idempotent if already owned by the
// named queue.
func (h *Handlers) GpuAllocate(ids []int, queue string) wire.Reply {
	if len(ids) == 0 {
		return wire.Err("gpu allocate requires at least one gpu id")
	}
	if h.store.GetQueue(queue) == nil {
		return wire.Err(fmt.Sprintf("unknown queue %q", queue))
	}

	for _, id := range ids {
		if h.store.IsIgnored(id) {
			return wire.Err(fmt.Sprintf("gpu %d is ignored", id))
		}
		if owner, owned := h.store.GetGPUAllocation(id); owned && owner != queue {
			return wire.Err(fmt.Sprintf("gpu %d is owned by queue %q", id, owner))
		}
	}

	for _, id := range ids {
		if err := h.store.SetGPUAllocation(id, queue); err != nil {
			return wire.Err(err.Error())
		}
	}
	return wire.Ack(fmt.Sprintf("allocated %d gpu(s) to queue %q", len(ids), queue))
}

// GpuRelease kills every Running task using this GPU, then clears the
// allocation.
func (h *Handlers) GpuRelease(id int) wire.Reply {
	for _, t := range h.store.GetAllTasks() {
		if t.State != types.TaskRunning || t.PID == nil {
			continue
		}
		for _, g := range t.AssignedGPUs {
			if g == id {
				if err := killPid(*t.PID); err != nil {
					h.log.Warn("gpu release: failed to kill task", zap.Uint64("task_id", t.ID), zap.Error(err))
				}
				break
			}
		}
	}
	h.store.RemoveGPUAllocation(id)
	return wire.Ack(fmt.Sprintf("released gpu %d", id))
}

// GpuIgnore adds a GPU to the ignored set, rejecting it if currently
// owned by any queue.
func (h *Handlers) GpuIgnore(id int) wire.Reply {
	if _, owned := h.store.GetGPUAllocation(id); owned {
		return wire.Err(fmt.Sprintf("gpu %d is owned by a queue; release it first", id))
	}
	h.store.SetGPUIgnore(id)
	return wire.Ack(fmt.Sprintf("ignoring gpu %d", id))
}

// GpuResetIgnored clears the ignored set entirely; each formerly
// ignored id returns as free.
func (h *Handlers) GpuResetIgnored() wire.Reply {
	for _, id := range h.store.GetIgnoredGPUs() {
		h.store.UnsetGPUIgnore(id)
	}
	return wire.Ack("cleared ignored gpu set")
}
