// Package state holds the single in-memory aggregate of tasks, queues
// and GPU telemetry that every other component reads and mutates
// through a coarse reader/writer lock.
package state

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gavelrs/gavel/internal/types"
)

// Telemetry is the narrow slice of internal/telemetry.Source the store
// needs for UpdateAllGPUStats, kept here to avoid an import cycle.
type Telemetry interface {
	GetAllStats() map[int]types.GpuStats
}

// Store is the scheduler's single source of truth. All fields are
// guarded by mu; callers never see internal slices/maps, only clones.
type Store struct {
	mu sync.RWMutex

	tasks       map[uint64]*types.Task
	queues      map[string]*types.Queue
	gpuStats    map[int]types.GpuStats
	allocations map[int]string // gpu index -> queue name; absent = unowned (free or not yet discovered)
	ignored     map[int]struct{}

	nextQueuePriority int // not read; ensureQueueLocked creates implicit queues with priority 10
}

// New builds a store with the two well-known queues already present.
func New() *Store {
	s := &Store{
		tasks:       make(map[uint64]*types.Task),
		queues:      make(map[string]*types.Queue),
		gpuStats:    make(map[int]types.GpuStats),
		allocations: make(map[int]string),
		ignored:     make(map[int]struct{}),
	}
	waiting := types.NewQueue(types.WaitingQueueName, 0)
	waiting.MaxConcurrent = 0
	s.queues[types.WaitingQueueName] = waiting
	s.queues[types.RunningQueueName] = types.NewQueue(types.RunningQueueName, 0)
	return s
}

// SeedRunningQueueGPUs gives running_queue ownership of every GPU index
// in ids and sets its max-concurrent to len(ids). Call once at startup
// after the first telemetry discovery.
func (s *Store) SeedRunningQueueGPUs(ids []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rq := s.queues[types.RunningQueueName]
	for _, id := range ids {
		rq.OwnedGPUs[id] = struct{}{}
		s.allocations[id] = types.RunningQueueName
	}
	rq.MaxConcurrent = len(rq.OwnedGPUs)
}

// ---- Task operations ----

// AddTask inserts t into the task map and appends its id to the owning
// queue's waiting list, creating the queue by implicit default if it
// does not already exist.
func (s *Store) AddTask(t *types.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.ensureQueueLocked(t.Queue)
	t.Queue = q.Name
	s.tasks[t.ID] = t
	q.Waiting = append(q.Waiting, t.ID)
}

func (s *Store) ensureQueueLocked(name string) *types.Queue {
	if name == "" {
		name = types.WaitingQueueName
	}
	q, ok := s.queues[name]
	if ok {
		return q
	}
	q = types.NewQueue(name, 10)
	s.queues[name] = q
	return q
}

// GetTask returns a clone of the task, or nil if unknown.
func (s *Store) GetTask(id uint64) *types.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasks[id].Clone()
}

// GetAllTasks returns clones of every task, ordered by id for
// deterministic output.
func (s *Store) GetAllTasks() []*types.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateTaskState atomically transitions a task's state, optionally
// rewriting assigned_gpus and failure_reason, and adjusts the owning
// queue's waiting/running lists to match the new state.
func (s *Store) UpdateTaskState(id uint64, newState types.TaskState, gpus []int, failureReason *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("unknown task %d", id)
	}
	q := s.queues[t.Queue]
	if q == nil {
		return fmt.Errorf("task %d references unknown queue %q", id, t.Queue)
	}

	removeID(&q.Waiting, id)
	removeID(&q.Running, id)

	oldState := t.State
	t.State = newState
	if gpus != nil {
		t.AssignedGPUs = append([]int(nil), gpus...)
	}
	if newState == types.TaskFailed {
		if failureReason != nil {
			t.FailureReason = *failureReason
		}
	} else {
		t.FailureReason = ""
	}
	_ = oldState

	switch newState {
	case types.TaskWaiting:
		q.Waiting = append(q.Waiting, id)
	case types.TaskRunning:
		q.Running = append(q.Running, id)
		t.StartedAtUnix = time.Now().Unix()
	case types.TaskFinished, types.TaskFailed:
		// terminal: appears in no list
	}
	return nil
}

// UpdateTaskQueue moves a task between queues. The task lands on the
// destination's waiting list regardless of its current TaskState; a
// Running task is not killed by this call.
func (s *Store) UpdateTaskQueue(id uint64, dest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("unknown task %d", id)
	}
	destQ, ok := s.queues[dest]
	if !ok {
		return fmt.Errorf("unknown queue %q", dest)
	}
	if srcQ := s.queues[t.Queue]; srcQ != nil {
		removeID(&srcQ.Waiting, id)
		removeID(&srcQ.Running, id)
	}
	t.Queue = dest
	destQ.Waiting = append(destQ.Waiting, id)
	return nil
}

// UpdateTaskPriority sets a task's priority; caller validates the 0..9
// range (B1) before calling.
func (s *Store) UpdateTaskPriority(id uint64, priority int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("unknown task %d", id)
	}
	t.Priority = priority
	return nil
}

// RemoveTask deletes a task and scrubs it from its queue's lists.
// Callers must ensure the task is not Running.
func (s *Store) RemoveTask(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("unknown task %d", id)
	}
	if q := s.queues[t.Queue]; q != nil {
		removeID(&q.Waiting, id)
		removeID(&q.Running, id)
	}
	delete(s.tasks, id)
	return nil
}

// SetTaskPID sets or clears (pid==nil) a task's recorded child pid.
func (s *Store) SetTaskPID(id uint64, pid *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("unknown task %d", id)
	}
	if pid == nil {
		t.PID = nil
		return nil
	}
	p := *pid
	t.PID = &p
	return nil
}

func removeID(list *[]uint64, id uint64) {
	out := (*list)[:0]
	for _, v := range *list {
		if v != id {
			out = append(out, v)
		}
	}
	*list = out
}

// ---- Queue operations ----

// AddQueue inserts q, overwriting any existing queue of the same name.
func (s *Store) AddQueue(q *types.Queue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[q.Name] = q
}

// GetQueue returns a clone of the named queue, or nil if unknown.
func (s *Store) GetQueue(name string) *types.Queue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queues[name].Clone()
}

// GetAllQueues returns clones of every queue, sorted by name.
func (s *Store) GetAllQueues() []*types.Queue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Queue, 0, len(s.queues))
	for _, q := range s.queues {
		out = append(out, q.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// UpdateQueueResourceLimit replaces the named queue's ResourceLimit.
func (s *Store) UpdateQueueResourceLimit(name string, limit types.ResourceLimit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[name]
	if !ok {
		return fmt.Errorf("unknown queue %q", name)
	}
	q.Limit = limit
	return nil
}

// ---- GPU operations ----

// UpdateAllGPUStats asks src for a fresh snapshot, inserts entries for
// live non-ignored indices, and deletes entries no longer present or
// newly ignored.
func (s *Store) UpdateAllGPUStats(src Telemetry) {
	snapshot := src.GetAllStats()
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh := make(map[int]types.GpuStats, len(snapshot))
	for idx, stats := range snapshot {
		if _, ignored := s.ignored[idx]; ignored {
			continue
		}
		fresh[idx] = stats
	}
	s.gpuStats = fresh
}

// GetGPUStats returns the latest snapshot for one GPU index and whether
// it is present.
func (s *Store) GetGPUStats(id int) (types.GpuStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.gpuStats[id]
	return st, ok
}

// GetAllGPUStats returns the latest snapshot for every known GPU,
// sorted by index.
func (s *Store) GetAllGPUStats() []types.GpuStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.GpuStats, 0, len(s.gpuStats))
	for _, st := range s.gpuStats {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// SetGPUAllocation records that gpu id is owned by queue (also updates
// that queue's owned-GPU set). Passing queue=="" clears the allocation,
// equivalent to RemoveGPUAllocation.
func (s *Store) SetGPUAllocation(id int, queue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if queue == "" {
		s.clearAllocationLocked(id)
		return nil
	}
	q, ok := s.queues[queue]
	if !ok {
		return fmt.Errorf("unknown queue %q", queue)
	}
	s.clearAllocationLocked(id)
	s.allocations[id] = queue
	q.OwnedGPUs[id] = struct{}{}
	return nil
}

func (s *Store) clearAllocationLocked(id int) {
	if prevQueue, ok := s.allocations[id]; ok {
		if q := s.queues[prevQueue]; q != nil {
			delete(q.OwnedGPUs, id)
		}
	}
	delete(s.allocations, id)
}

// RemoveGPUAllocation frees gpu id back to the unowned pool.
func (s *Store) RemoveGPUAllocation(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearAllocationLocked(id)
}

// GetGPUAllocation returns the owning queue name and whether the GPU is
// currently owned by anyone.
func (s *Store) GetGPUAllocation(id int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.allocations[id]
	return q, ok
}

// GetGPUAllocations returns a copy of the full allocation map.
func (s *Store) GetGPUAllocations() map[int]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]string, len(s.allocations))
	for k, v := range s.allocations {
		out[k] = v
	}
	return out
}

// SetGPUIgnore adds id to the ignored set and removes any allocation.
// Callers must first verify id is unowned (domain validation lives in
// internal/handlers).
func (s *Store) SetGPUIgnore(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ignored[id] = struct{}{}
	s.clearAllocationLocked(id)
	delete(s.gpuStats, id)
}

// UnsetGPUIgnore removes id from the ignored set, returning it to the
// free pool.
func (s *Store) UnsetGPUIgnore(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ignored, id)
}

// GetIgnoredGPUs returns a copy of the ignored set as a sorted slice.
func (s *Store) GetIgnoredGPUs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, 0, len(s.ignored))
	for id := range s.ignored {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// IsIgnored reports whether id is currently in the ignored set.
func (s *Store) IsIgnored(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ignored[id]
	return ok
}
