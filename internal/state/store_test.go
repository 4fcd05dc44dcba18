package state

import (
	"testing"

	"github.com/gavelrs/gavel/internal/types"
)

func TestAddTaskDefaultsToWaitingQueue(t *testing.T) {
	s := New()
	task := &types.Task{ID: 1, Name: "t1", State: types.TaskWaiting}
	s.AddTask(task)

	got := s.GetTask(1)
	if got == nil {
		t.Fatal("expected task 1 to exist")
	}
	if got.Queue != types.WaitingQueueName {
		t.Errorf("expected queue %q, got %q", types.WaitingQueueName, got.Queue)
	}

	q := s.GetQueue(types.WaitingQueueName)
	if len(q.Waiting) != 1 || q.Waiting[0] != 1 {
		t.Errorf("expected waiting_queue.Waiting=[1], got %v", q.Waiting)
	}
}

func TestAddTaskCreatesImplicitQueue(t *testing.T) {
	s := New()
	s.AddTask(&types.Task{ID: 2, Queue: "nightly", State: types.TaskWaiting})

	q := s.GetQueue("nightly")
	if q == nil {
		t.Fatal("expected implicit queue 'nightly' to be created")
	}
	if q.Priority != 10 {
		t.Errorf("expected implicit queue priority 10, got %d", q.Priority)
	}
	if q.Limit.MemoryRequirementType != types.MemoryIgnore {
		t.Errorf("expected implicit queue to ignore memory, got %v", q.Limit.MemoryRequirementType)
	}
}

func TestUpdateTaskStateMovesBetweenLists(t *testing.T) {
	s := New()
	s.AddQueue(types.NewQueue("q1", 5))
	s.AddTask(&types.Task{ID: 3, Queue: "q1", State: types.TaskWaiting})

	if err := s.UpdateTaskState(3, types.TaskRunning, []int{0}, nil); err != nil {
		t.Fatalf("UpdateTaskState: %v", err)
	}

	q := s.GetQueue("q1")
	if len(q.Waiting) != 0 {
		t.Errorf("expected q1.Waiting empty, got %v", q.Waiting)
	}
	if len(q.Running) != 1 || q.Running[0] != 3 {
		t.Errorf("expected q1.Running=[3], got %v", q.Running)
	}

	task := s.GetTask(3)
	if task.State != types.TaskRunning {
		t.Errorf("expected task state Running, got %v", task.State)
	}
	if len(task.AssignedGPUs) != 1 || task.AssignedGPUs[0] != 0 {
		t.Errorf("expected assigned_gpus=[0], got %v", task.AssignedGPUs)
	}
}

func TestUpdateTaskStateToFailedSetsReason(t *testing.T) {
	s := New()
	s.AddQueue(types.NewQueue("q1", 5))
	s.AddTask(&types.Task{ID: 4, Queue: "q1", State: types.TaskRunning})

	reason := "process pid 123 disappeared"
	if err := s.UpdateTaskState(4, types.TaskFailed, nil, &reason); err != nil {
		t.Fatalf("UpdateTaskState: %v", err)
	}

	task := s.GetTask(4)
	if task.FailureReason != reason {
		t.Errorf("expected failure reason %q, got %q", reason, task.FailureReason)
	}

	q := s.GetQueue("q1")
	if len(q.Waiting) != 0 || len(q.Running) != 0 {
		t.Errorf("expected terminal task in no list, got waiting=%v running=%v", q.Waiting, q.Running)
	}
}

// TestUpdateTaskQueueDoesNotKillRunningTask verifies that moving a
// Running task re-parks it in the destination's waiting list without
// altering its TaskState.
func TestUpdateTaskQueueDoesNotKillRunningTask(t *testing.T) {
	s := New()
	s.AddQueue(types.NewQueue("x", 5))
	s.AddQueue(types.NewQueue("y", 5))
	pid := 42
	s.AddTask(&types.Task{ID: 5, Queue: "x", State: types.TaskRunning, PID: &pid})
	if err := s.UpdateTaskState(5, types.TaskRunning, []int{0}, nil); err != nil {
		t.Fatalf("UpdateTaskState: %v", err)
	}

	if err := s.UpdateTaskQueue(5, "y"); err != nil {
		t.Fatalf("UpdateTaskQueue: %v", err)
	}

	task := s.GetTask(5)
	if task.Queue != "y" {
		t.Errorf("expected task queue 'y', got %q", task.Queue)
	}
	if task.State != types.TaskRunning {
		t.Errorf("expected task to remain Running, got %v", task.State)
	}
	if task.PID == nil || *task.PID != 42 {
		t.Errorf("expected pid to be retained, got %v", task.PID)
	}

	destQ := s.GetQueue("y")
	found := false
	for _, id := range destQ.Waiting {
		if id == 5 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected task 5 in y.Waiting, got %v", destQ.Waiting)
	}
}

func TestRemoveTaskScrubsQueue(t *testing.T) {
	s := New()
	s.AddTask(&types.Task{ID: 6, State: types.TaskWaiting})
	if err := s.RemoveTask(6); err != nil {
		t.Fatalf("RemoveTask: %v", err)
	}
	if s.GetTask(6) != nil {
		t.Error("expected task 6 to be gone")
	}
	q := s.GetQueue(types.WaitingQueueName)
	for _, id := range q.Waiting {
		if id == 6 {
			t.Error("expected task 6 scrubbed from waiting_queue")
		}
	}
}

type fakeTelemetry struct {
	stats map[int]types.GpuStats
}

func (f fakeTelemetry) GetAllStats() map[int]types.GpuStats { return f.stats }

func TestUpdateAllGPUStatsSkipsIgnored(t *testing.T) {
	s := New()
	s.SetGPUIgnore(1)

	s.UpdateAllGPUStats(fakeTelemetry{stats: map[int]types.GpuStats{
		0: {Index: 0, Name: "gpu0"},
		1: {Index: 1, Name: "gpu1"},
	}})

	all := s.GetAllGPUStats()
	if len(all) != 1 || all[0].Index != 0 {
		t.Errorf("expected only gpu 0 present, got %+v", all)
	}
}

func TestGPUAllocationRoundTrip(t *testing.T) {
	s := New()
	s.AddQueue(types.NewQueue("q1", 5))

	if err := s.SetGPUAllocation(0, "q1"); err != nil {
		t.Fatalf("SetGPUAllocation: %v", err)
	}
	owner, ok := s.GetGPUAllocation(0)
	if !ok || owner != "q1" {
		t.Errorf("expected gpu 0 owned by q1, got %q ok=%v", owner, ok)
	}

	// R1: allocating the same GPU to the same queue again is idempotent.
	if err := s.SetGPUAllocation(0, "q1"); err != nil {
		t.Fatalf("second SetGPUAllocation: %v", err)
	}
	q := s.GetQueue("q1")
	if len(q.OwnedGPUs) != 1 {
		t.Errorf("expected q1 to own exactly 1 gpu, got %d", len(q.OwnedGPUs))
	}

	s.RemoveGPUAllocation(0)
	if _, ok := s.GetGPUAllocation(0); ok {
		t.Error("expected gpu 0 allocation cleared")
	}
}

func TestIgnoreThenUnignoreRestoresFreePool(t *testing.T) {
	s := New()
	s.SetGPUIgnore(2)
	if !s.IsIgnored(2) {
		t.Fatal("expected gpu 2 to be ignored")
	}
	s.UnsetGPUIgnore(2)
	if s.IsIgnored(2) {
		t.Error("expected gpu 2 to no longer be ignored")
	}
}
