package handlers

import (
	"fmt"

	"github.com/gavelrs/gavel/internal/types"
	"github.com/gavelrs/gavel/internal/wire"
)

// QueueList returns every queue's current status.
func (h *Handlers) QueueList() wire.Reply {
	var out []types.Queue
	for _, q := range h.store.GetAllQueues() {
		out = append(out, *q)
	}
	return wire.Reply{Kind: wire.ReplyQueueStatus, Queues: out}
}

// QueueStatus returns one queue's current status.
func (h *Handlers) QueueStatus(name string) wire.Reply {
	q := h.store.GetQueue(name)
	if q == nil {
		return wire.Err(fmt.Sprintf("unknown queue %q", name))
	}
	return wire.Reply{Kind: wire.ReplyQueueStatus, Queues: []types.Queue{*q}}
}

// QueueCreate creates a new named queue, rejecting duplicates.
func (h *Handlers) QueueCreate(name string, priority int) wire.Reply {
	if priority < 0 || priority > 9 {
		return wire.Err(fmt.Sprintf("priority %d out of range [0,9]", priority))
	}
	if h.store.GetQueue(name) != nil {
		return wire.Err(fmt.Sprintf("queue %q already exists", name))
	}
	h.store.AddQueue(types.NewQueue(name, priority))
	return wire.Ack(fmt.Sprintf("created queue %q", name))
}

// QueueMerge moves every task whose queue==src to dst.
func (h *Handlers) QueueMerge(src, dst string) wire.Reply {
	if src == dst {
		return wire.Err("cannot merge a queue with itself")
	}
	if h.store.GetQueue(src) == nil {
		return wire.Err(fmt.Sprintf("unknown queue %q", src))
	}
	if h.store.GetQueue(dst) == nil {
		return wire.Err(fmt.Sprintf("unknown queue %q", dst))
	}

	moved := 0
	for _, t := range h.store.GetAllTasks() {
		if t.Queue != src {
			continue
		}
		if err := h.store.UpdateTaskQueue(t.ID, dst); err != nil {
			return wire.Err(err.Error())
		}
		moved++
	}
	return wire.Ack(fmt.Sprintf("merged %d task(s) from %q into %q", moved, src, dst))
}

// QueueMove moves a single task into dst. It does not kill a Running
// task — the move only changes routing/ownership bookkeeping.
func (h *Handlers) QueueMove(taskID uint64, dst string) wire.Reply {
	if h.store.GetTask(taskID) == nil {
		return wire.Err(fmt.Sprintf("unknown task %d", taskID))
	}
	if h.store.GetQueue(dst) == nil {
		return wire.Err(fmt.Sprintf("unknown queue %q", dst))
	}
	if err := h.store.UpdateTaskQueue(taskID, dst); err != nil {
		return wire.Err(err.Error())
	}
	return wire.Ack(fmt.Sprintf("moved task %d to %q", taskID, dst))
}

// QueueSetPriority sets a task's priority, rejecting values above 9.
func (h *Handlers) QueueSetPriority(taskID uint64, priority int) wire.Reply {
	if priority > 9 {
		return wire.Err(fmt.Sprintf("priority %d exceeds maximum of 9", priority))
	}
	if priority < 0 {
		return wire.Err(fmt.Sprintf("priority %d is negative", priority))
	}
	if err := h.store.UpdateTaskPriority(taskID, priority); err != nil {
		return wire.Err(err.Error())
	}
	return wire.Ack(fmt.Sprintf("set task %d priority to %d", taskID, priority))
}

// QueueSetResourceLimit validates and replaces a queue's ResourceLimit.
func (h *Handlers) QueueSetResourceLimit(name string, limit types.ResourceLimit) wire.Reply {
	if h.store.GetQueue(name) == nil {
		return wire.Err(fmt.Sprintf("unknown queue %q", name))
	}
	switch limit.MemoryRequirementType {
	case types.MemoryPercentage:
		if limit.MemoryRequirementValue < 0 || limit.MemoryRequirementValue > 100 {
			return wire.Err("percentage memory value must be within [0,100]")
		}
	case types.MemoryAbsoluteMB:
		if limit.MemoryRequirementValue <= 0 {
			return wire.Err("absolute_mb memory value must be > 0")
		}
	case types.MemoryIgnore:
		// no validation
	default:
		return wire.Err(fmt.Sprintf("unknown memory requirement type %q", limit.MemoryRequirementType))
	}

	if err := h.store.UpdateQueueResourceLimit(name, limit); err != nil {
		return wire.Err(err.Error())
	}
	return wire.Ack(fmt.Sprintf("updated resource limit for queue %q", name))
}
