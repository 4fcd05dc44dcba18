package scheduler

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/gavelrs/gavel/internal/process"
	"github.com/gavelrs/gavel/internal/types"
)

// reconcile catches Running tasks whose process disappeared outside
// the monitor's view (orphaned by a prior daemon instance, or
// externally killed in a way the monitor missed). The happy-path exit
// is handled by the per-child monitor, not here.
func (s *Scheduler) reconcile() {
	for _, t := range s.store.GetAllTasks() {
		if t.State != types.TaskRunning {
			continue
		}

		if t.PID == nil {
			reason := "was Running without a pid"
			if err := s.store.UpdateTaskState(t.ID, types.TaskFailed, nil, &reason); err != nil {
				s.log.Warn("reconcile: update_task_state failed", zap.Uint64("task_id", t.ID), zap.Error(err))
			}
			if s.metrics != nil {
				s.metrics.RecordTaskTerminal("failed")
			}
			continue
		}

		if !process.PidExists(*t.PID) {
			reason := "process pid " + strconv.Itoa(*t.PID) + " disappeared"
			if err := s.store.UpdateTaskState(t.ID, types.TaskFailed, nil, &reason); err != nil {
				s.log.Warn("reconcile: update_task_state failed", zap.Uint64("task_id", t.ID), zap.Error(err))
			}
			if s.metrics != nil {
				s.metrics.RecordTaskTerminal("failed")
			}
		}
	}
}
