package handlers

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/gavelrs/gavel/internal/state"
	"github.com/gavelrs/gavel/internal/types"
	"github.com/gavelrs/gavel/internal/wire"
)

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	return New(state.New(), t.TempDir(), nil, 1)
}

func TestSubmitCommandDefaultsAndQueues(t *testing.T) {
	h := newTestHandlers(t)
	reply := h.SubmitCommand("true", 1, "", "")
	if reply.Kind != wire.ReplyAck {
		t.Fatalf("expected Ack, got %+v", reply)
	}

	tasks := h.store.GetAllTasks()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	task := tasks[0]
	if task.Queue != types.WaitingQueueName {
		t.Errorf("expected default queue %q, got %q", types.WaitingQueueName, task.Queue)
	}
	if task.Priority != 5 {
		t.Errorf("expected default priority 5, got %d", task.Priority)
	}
	if task.Name == "" {
		t.Error("expected a default generated name")
	}
	if filepath.Base(task.LogPath) != fmt.Sprintf("%d.log", task.ID) {
		t.Errorf("expected log path <log_dir>/%d.log, got %q", task.ID, task.LogPath)
	}
}

func TestTaskRunOnlyFromWaitingQueue(t *testing.T) {
	h := newTestHandlers(t)
	h.SubmitCommand("true", 0, "", "")
	task := h.store.GetAllTasks()[0]

	reply := h.TaskRun(task.ID)
	if reply.Kind != wire.ReplyAck {
		t.Fatalf("expected Ack, got %+v", reply)
	}
	moved := h.store.GetTask(task.ID)
	if moved.Queue != types.RunningQueueName {
		t.Errorf("expected task moved to %q, got %q", types.RunningQueueName, moved.Queue)
	}
	if moved.State != types.TaskWaiting {
		t.Errorf("expected state to remain Waiting, got %v", moved.State)
	}

	// Running it again should fail: it is no longer in waiting_queue.
	if reply := h.TaskRun(task.ID); reply.Kind != wire.ReplyError {
		t.Errorf("expected second TaskRun to fail, got %+v", reply)
	}
}

func TestQueueSetPriorityBoundary(t *testing.T) {
	h := newTestHandlers(t)
	h.SubmitCommand("true", 0, "", "")
	id := h.store.GetAllTasks()[0].ID

	if reply := h.QueueSetPriority(id, 9); reply.Kind != wire.ReplyAck {
		t.Errorf("expected priority 9 accepted, got %+v", reply)
	}
	if reply := h.QueueSetPriority(id, 10); reply.Kind != wire.ReplyError {
		t.Errorf("expected priority 10 rejected, got %+v", reply)
	}
}

func TestQueueSetResourceLimitBoundary(t *testing.T) {
	h := newTestHandlers(t)
	h.QueueCreate("q1", 5)

	ok0 := h.QueueSetResourceLimit("q1", types.ResourceLimit{MemoryRequirementType: types.MemoryPercentage, MemoryRequirementValue: 0})
	if ok0.Kind != wire.ReplyAck {
		t.Errorf("expected percentage 0 accepted, got %+v", ok0)
	}
	ok100 := h.QueueSetResourceLimit("q1", types.ResourceLimit{MemoryRequirementType: types.MemoryPercentage, MemoryRequirementValue: 100})
	if ok100.Kind != wire.ReplyAck {
		t.Errorf("expected percentage 100 accepted, got %+v", ok100)
	}
	bad101 := h.QueueSetResourceLimit("q1", types.ResourceLimit{MemoryRequirementType: types.MemoryPercentage, MemoryRequirementValue: 101})
	if bad101.Kind != wire.ReplyError {
		t.Errorf("expected percentage 101 rejected, got %+v", bad101)
	}
	badAbs0 := h.QueueSetResourceLimit("q1", types.ResourceLimit{MemoryRequirementType: types.MemoryAbsoluteMB, MemoryRequirementValue: 0})
	if badAbs0.Kind != wire.ReplyError {
		t.Errorf("expected absolute_mb 0 rejected, got %+v", badAbs0)
	}
}

func TestGPUAllocateIdempotentAndConflict(t *testing.T) {
	h := newTestHandlers(t)
	h.QueueCreate("q1", 5)
	h.QueueCreate("q2", 5)

	first := h.GpuAllocate([]int{0}, "q1")
	if first.Kind != wire.ReplyAck {
		t.Fatalf("expected first allocate Ack, got %+v", first)
	}
	second := h.GpuAllocate([]int{0}, "q1")
	if second.Kind != wire.ReplyAck {
		t.Errorf("expected idempotent re-allocate Ack (R1), got %+v", second)
	}
	conflict := h.GpuAllocate([]int{0}, "q2")
	if conflict.Kind != wire.ReplyError {
		t.Errorf("expected conflicting allocate to error, got %+v", conflict)
	}
}

func TestGPUIgnoreRejectsOwned(t *testing.T) {
	h := newTestHandlers(t)
	h.QueueCreate("q1", 5)
	h.GpuAllocate([]int{0}, "q1")

	if reply := h.GpuIgnore(0); reply.Kind != wire.ReplyError {
		t.Errorf("expected ignore of owned gpu to error, got %+v", reply)
	}

	h.GpuRelease(0)
	if reply := h.GpuIgnore(0); reply.Kind != wire.ReplyAck {
		t.Errorf("expected ignore of released gpu to succeed, got %+v", reply)
	}
	if !h.store.IsIgnored(0) {
		t.Error("expected gpu 0 to be ignored")
	}

	h.GpuResetIgnored()
	if h.store.IsIgnored(0) {
		t.Error("expected gpu 0 restored to free pool (R2)")
	}
}

func TestTaskListByUserRejected(t *testing.T) {
	h := newTestHandlers(t)
	reply := h.TaskList(wire.TaskFilter{Kind: wire.FilterByUser, Value: "alice"})
	if reply.Kind != wire.ReplyError {
		t.Errorf("expected by_user filter to be rejected (Q4), got %+v", reply)
	}
}

func TestTaskRemoveRejectsRunning(t *testing.T) {
	h := newTestHandlers(t)
	h.SubmitCommand("true", 0, "", "")
	id := h.store.GetAllTasks()[0].ID
	if err := h.store.UpdateTaskState(id, types.TaskRunning, nil, nil); err != nil {
		t.Fatalf("UpdateTaskState: %v", err)
	}

	if reply := h.TaskRemove(id); reply.Kind != wire.ReplyError {
		t.Errorf("expected remove of Running task to error, got %+v", reply)
	}
}

func TestDispatchUnknownKind(t *testing.T) {
	h := newTestHandlers(t)
	reply := h.Dispatch(wire.Request{Kind: "bogus"})
	if reply.Kind != wire.ReplyError {
		t.Errorf("expected unknown kind to error, got %+v", reply)
	}
}
