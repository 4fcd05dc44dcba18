package scheduler

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/gavelrs/gavel/internal/types"
)

// place takes its own read-only snapshot of state, decides every
// placement for this tick, and only then performs the corresponding
// writes and spawns — never holding the store's lock across a spawn.
func (s *Scheduler) place() {
	queues := s.store.GetAllQueues()
	allTasks := s.store.GetAllTasks()
	ignored := toSet(s.store.GetIgnoredGPUs())
	allocations := s.store.GetGPUAllocations()
	stats := s.store.GetAllGPUStats()

	statsByIndex := make(map[int]types.GpuStats, len(stats))
	for _, st := range stats {
		statsByIndex[st.Index] = st
	}

	tasksByQueue := make(map[string][]*types.Task)
	for _, t := range allTasks {
		if t.State == types.TaskWaiting {
			tasksByQueue[t.Queue] = append(tasksByQueue[t.Queue], t)
		}
	}

	sort.Slice(queues, func(i, j int) bool { return queues[i].Priority > queues[j].Priority })

	reserved := make(map[int]struct{})

	for _, q := range queues {
		if q.Name == types.WaitingQueueName {
			continue
		}

		candidates := s.candidateGPUs(q, allocations, ignored, statsByIndex)

		slots := q.MaxConcurrent - len(q.Running)
		if slots <= 0 {
			continue
		}

		waiting := append([]*types.Task(nil), tasksByQueue[q.Name]...)
		sort.Slice(waiting, func(i, j int) bool {
			if waiting[i].Priority != waiting[j].Priority {
				return waiting[i].Priority > waiting[j].Priority
			}
			return waiting[i].CreatedAtUnix < waiting[j].CreatedAtUnix
		})

		for _, t := range waiting {
			if slots == 0 {
				break
			}

			if t.GPURequire == 0 {
				s.placeTask(t.ID, nil)
				slots--
				continue
			}

			chosen := takeAvailable(candidates, reserved, t.GPURequire)
			if chosen == nil {
				continue // not enough GPUs for this task; do not backtrack
			}
			for _, gpu := range chosen {
				reserved[gpu] = struct{}{}
			}
			s.placeTask(t.ID, chosen)
			slots--
		}
	}
}

// candidateGPUs builds the set of GPUs owned by q, plus unowned GPUs,
// both filtered through isQualifying and the ignored set, returned
// sorted ascending for deterministic selection.
func (s *Scheduler) candidateGPUs(q *types.Queue, allocations map[int]string, ignored map[int]struct{}, statsByIndex map[int]types.GpuStats) []int {
	var out []int
	for idx, st := range statsByIndex {
		if _, isIgnored := ignored[idx]; isIgnored {
			continue
		}
		owner, owned := allocations[idx]
		if owned && owner != q.Name {
			continue
		}
		if !isQualifying(st, q.Limit) {
			continue
		}
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// takeAvailable returns the first n candidates not already in reserved,
// or nil if fewer than n are available.
func takeAvailable(candidates []int, reserved map[int]struct{}, n int) []int {
	var chosen []int
	for _, idx := range candidates {
		if _, taken := reserved[idx]; taken {
			continue
		}
		chosen = append(chosen, idx)
		if len(chosen) == n {
			return chosen
		}
	}
	return nil
}

// placeTask performs the state transition and spawn for one task,
// outside any store lock.
func (s *Scheduler) placeTask(taskID uint64, gpus []int) {
	if err := s.store.UpdateTaskState(taskID, types.TaskRunning, gpus, nil); err != nil {
		s.log.Warn("placement: update_task_state failed", zap.Uint64("task_id", taskID), zap.Error(err))
		return
	}

	task := s.store.GetTask(taskID)
	if task == nil {
		return
	}

	pid, err := s.supervisor.Spawn(task.ID, task.Command, task.AssignedGPUs, task.LogPath)
	if err != nil {
		reason := fmt.Sprintf("spawn failed: %v", err)
		if updErr := s.store.UpdateTaskState(taskID, types.TaskFailed, nil, &reason); updErr != nil {
			s.log.Warn("placement: failed to mark spawn failure", zap.Uint64("task_id", taskID), zap.Error(updErr))
		}
		if s.metrics != nil {
			s.metrics.RecordTaskTerminal("failed")
		}
		return
	}

	if err := s.store.SetTaskPID(taskID, &pid); err != nil {
		s.log.Warn("placement: set_task_pid failed", zap.Uint64("task_id", taskID), zap.Error(err))
	}
}

func toSet(ids []int) map[int]struct{} {
	out := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
