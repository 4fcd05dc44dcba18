package scheduler

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/gavelrs/gavel/internal/process"
	"github.com/gavelrs/gavel/internal/state"
	"github.com/gavelrs/gavel/internal/telemetry"
	"github.com/gavelrs/gavel/internal/types"
)

// newTestScheduler wires a real state.Store, a FakeSource seeded with
// the given GPUs, and a real process.Supervisor (spawning actual short
// commands) whose exits are observed on the returned channel.
func newTestScheduler(t *testing.T, gpuIndices ...int) (*Scheduler, *state.Store, chan process.ExitReport) {
	t.Helper()

	store := state.New()
	var stats []types.GpuStats
	for _, idx := range gpuIndices {
		stats = append(stats, types.GpuStats{
			Index: idx, Name: "fake-gpu", MemoryTotalMB: 10000, MemoryFreeMB: 10000, UtilizationGPU: 0,
		})
	}
	src := telemetry.NewFakeSource(stats...)
	store.SeedRunningQueueGPUs(gpuIndices)

	exits := make(chan process.ExitReport, 16)
	supervisor := process.NewSupervisor(nil, func(r process.ExitReport) {
		if r.Success {
			_ = store.UpdateTaskState(r.TaskID, types.TaskFinished, nil, nil)
		} else {
			reason := r.Reason
			_ = store.UpdateTaskState(r.TaskID, types.TaskFailed, nil, &reason)
		}
		_ = store.SetTaskPID(r.TaskID, nil)
		exits <- r
	})

	sched := New(store, src, supervisor, nil, time.Hour) // interval irrelevant; tests call Tick directly
	return sched, store, exits
}

func waitForState(t *testing.T, store *state.Store, id uint64, want types.TaskState, timeout time.Duration) *types.Task {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		task := store.GetTask(id)
		if task != nil && task.State == want {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %d did not reach state %v within %v", id, want, timeout)
	return nil
}

// TestBasicSubmitRunFinish mirrors S1: a 1-GPU task placed on the only
// free GPU runs to completion and its GPU assignment is retained.
func TestBasicSubmitRunFinish(t *testing.T) {
	sched, store, exits := newTestScheduler(t, 0)

	store.AddTask(&types.Task{
		ID: 1, Name: "t1", Command: "true", GPURequire: 1,
		Queue: types.RunningQueueName, State: types.TaskWaiting,
		LogPath: filepath.Join(t.TempDir(), "1.log"),
	})

	sched.Tick()

	task := store.GetTask(1)
	if task.State != types.TaskRunning {
		t.Fatalf("expected task Running after tick, got %v", task.State)
	}
	if len(task.AssignedGPUs) != 1 || task.AssignedGPUs[0] != 0 {
		t.Fatalf("expected assigned_gpus=[0], got %v", task.AssignedGPUs)
	}
	if task.PID == nil {
		t.Fatal("expected pid to be set")
	}

	select {
	case <-exits:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for child exit")
	}

	final := waitForState(t, store, 1, types.TaskFinished, time.Second)
	if len(final.AssignedGPUs) != 1 || final.AssignedGPUs[0] != 0 {
		t.Errorf("expected assigned_gpus retained after finish, got %v", final.AssignedGPUs)
	}
	if final.PID != nil {
		t.Errorf("expected pid cleared, got %v", *final.PID)
	}
}

// TestKillPath mirrors S2: killing a Running task causes its monitor to
// observe the signal-caused exit and mark it Failed.
func TestKillPath(t *testing.T) {
	sched, store, exits := newTestScheduler(t, 0)

	store.AddTask(&types.Task{
		ID: 2, Name: "t2", Command: "sleep 100", GPURequire: 1,
		Queue: types.RunningQueueName, State: types.TaskWaiting,
		LogPath: filepath.Join(t.TempDir(), "2.log"),
	})
	sched.Tick()

	task := store.GetTask(2)
	if task.State != types.TaskRunning || task.PID == nil {
		t.Fatalf("expected task Running with pid, got state=%v pid=%v", task.State, task.PID)
	}

	if err := process.Kill(*task.PID); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	select {
	case <-exits:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for killed child to exit")
	}

	final := waitForState(t, store, 2, types.TaskFailed, time.Second)
	if final.FailureReason == "" {
		t.Error("expected a non-empty failure reason after kill")
	}
}

// TestResourceLimitMemoryFilter mirrors S3: a tight percentage memory
// limit starves placement until the limit is relaxed.
func TestResourceLimitMemoryFilter(t *testing.T) {
	sched, store, exits := newTestScheduler(t, 0)
	defer drain(exits)

	// Override the default stats with a GPU that is nearly full.
	store.UpdateAllGPUStats(fakeStats{map[int]types.GpuStats{
		0: {Index: 0, MemoryTotalMB: 10000, MemoryFreeMB: 1000},
	}})

	q := types.NewQueue("q", 5)
	q.MaxConcurrent = 1
	q.OwnedGPUs[0] = struct{}{}
	q.Limit = types.ResourceLimit{MemoryRequirementType: types.MemoryPercentage, MemoryRequirementValue: 50, MaxGPUUtilization: -1}
	store.AddQueue(q)
	if err := store.SetGPUAllocation(0, "q"); err != nil {
		t.Fatalf("SetGPUAllocation: %v", err)
	}

	store.AddTask(&types.Task{
		ID: 3, Command: "true", GPURequire: 1, Queue: "q", State: types.TaskWaiting,
		LogPath: filepath.Join(t.TempDir(), "3.log"),
	})

	sched.place()
	if task := store.GetTask(3); task.State != types.TaskWaiting {
		t.Fatalf("expected task to stay Waiting under tight limit, got %v", task.State)
	}

	if err := store.UpdateQueueResourceLimit("q", types.ResourceLimit{
		MemoryRequirementType: types.MemoryPercentage, MemoryRequirementValue: 5, MaxGPUUtilization: -1,
	}); err != nil {
		t.Fatalf("UpdateQueueResourceLimit: %v", err)
	}

	sched.place()
	task := store.GetTask(3)
	if task.State != types.TaskRunning {
		t.Fatalf("expected task Running after relaxing limit, got %v", task.State)
	}
}

// TestPriorityAndFIFOTieBreak mirrors S5: equal-priority tasks run in
// submission order as the single GPU frees up.
func TestPriorityAndFIFOTieBreak(t *testing.T) {
	sched, store, exits := newTestScheduler(t, 0)

	store.AddTask(&types.Task{
		ID: 10, Command: "true", GPURequire: 1, Priority: 5,
		Queue: types.RunningQueueName, State: types.TaskWaiting, CreatedAtUnix: 100,
		LogPath: filepath.Join(t.TempDir(), "10.log"),
	})
	store.AddTask(&types.Task{
		ID: 11, Command: "true", GPURequire: 1, Priority: 5,
		Queue: types.RunningQueueName, State: types.TaskWaiting, CreatedAtUnix: 101,
		LogPath: filepath.Join(t.TempDir(), "11.log"),
	})

	sched.Tick()
	if task := store.GetTask(10); task.State != types.TaskRunning {
		t.Fatalf("expected task 10 (earlier) to run first, got state %v", task.State)
	}
	if task := store.GetTask(11); task.State != types.TaskWaiting {
		t.Fatalf("expected task 11 to remain Waiting (GPU taken), got state %v", task.State)
	}

	<-exits // task 10 finishes
	waitForState(t, store, 10, types.TaskFinished, time.Second)

	sched.Tick()
	waitForState(t, store, 11, types.TaskRunning, time.Second)
	<-exits
}

type fakeStats struct{ m map[int]types.GpuStats }

func (f fakeStats) GetAllStats() map[int]types.GpuStats { return f.m }

func drain(ch chan process.ExitReport) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
