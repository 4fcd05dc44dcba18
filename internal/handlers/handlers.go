// Package handlers implements the command handler family: pure
// functions over (request, State Store) -> reply that never spawn
// long-lived work themselves.
package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/gavelrs/gavel/internal/metrics"
	"github.com/gavelrs/gavel/internal/process"
	"github.com/gavelrs/gavel/internal/state"
	"github.com/gavelrs/gavel/internal/wire"
)

// Handlers holds the collaborators command handlers need: the State
// Store, a log directory for per-task log files, a monotonic task id
// counter, and a shutdown signal for Daemon.Stop.
type Handlers struct {
	store    *state.Store
	logDir   string
	log      *zap.Logger
	metrics  *metrics.Metrics
	nextID   uint64 // atomic; seeded non-zero at construction
	taskSeq  uint64 // atomic; used only for default task naming
	Shutdown chan struct{}
}

// SetMetrics attaches a metrics.Metrics recorded on every submission.
// Optional — a nil Metrics leaves submissions unrecorded.
func (h *Handlers) SetMetrics(m *metrics.Metrics) { h.metrics = m }

// New builds a Handlers. idSeed must be non-zero: task ids are
// allocated from a monotonic counter seeded at startup.
func New(store *state.Store, logDir string, log *zap.Logger, idSeed uint64) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	if idSeed == 0 {
		idSeed = 1
	}
	return &Handlers{
		store:    store,
		logDir:   logDir,
		log:      log,
		nextID:   idSeed,
		Shutdown: make(chan struct{}),
	}
}

func (h *Handlers) allocID() uint64 {
	return atomic.AddUint64(&h.nextID, 1)
}

func (h *Handlers) nextTaskName() string {
	n := atomic.AddUint64(&h.taskSeq, 1)
	return fmt.Sprintf("task_%d", n)
}

func (h *Handlers) logPathFor(id uint64) (string, error) {
	if err := os.MkdirAll(h.logDir, 0755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}
	return filepath.Join(h.logDir, fmt.Sprintf("%d.log", id)), nil
}

// Dispatch routes req to the appropriate handler by its Kind. Malformed
// or unexpected inbound message types return an Error reply rather than
// panicking.
func (h *Handlers) Dispatch(req wire.Request) wire.Reply {
	switch req.Kind {
	case wire.KindDaemonStop:
		return h.DaemonStop()
	case wire.KindDaemonStatus:
		return h.DaemonStatus()

	case wire.KindTaskList:
		return h.TaskList(req.Filter)
	case wire.KindTaskInfo:
		return h.TaskInfo(req.TaskID)
	case wire.KindTaskRun:
		return h.TaskRun(req.TaskID)
	case wire.KindTaskKill:
		return h.TaskKill(req.TaskID)
	case wire.KindTaskRemove:
		return h.TaskRemove(req.TaskID)
	case wire.KindTaskLogs:
		return h.TaskLogs(req.TaskID, req.Tail)

	case wire.KindGpuList:
		return h.GpuList()
	case wire.KindGpuInfo:
		return h.GpuInfo(req.GpuID, req.HasGpuID)
	case wire.KindGpuAllocate:
		return h.GpuAllocate(req.GpuIDs, req.QueueName)
	case wire.KindGpuRelease:
		return h.GpuRelease(req.GpuID)
	case wire.KindGpuIgnore:
		return h.GpuIgnore(req.GpuID)
	case wire.KindGpuResetIgnored:
		return h.GpuResetIgnored()

	case wire.KindQueueList:
		return h.QueueList()
	case wire.KindQueueStatus:
		return h.QueueStatus(req.QueueName)
	case wire.KindQueueCreate:
		return h.QueueCreate(req.QueueName, req.Priority)
	case wire.KindQueueMerge:
		return h.QueueMerge(req.SrcQueue, req.DstQueue)
	case wire.KindQueueMove:
		return h.QueueMove(req.TaskID, req.DestQueue)
	case wire.KindQueueSetPriority:
		return h.QueueSetPriority(req.TaskID, req.Priority)
	case wire.KindQueueSetResourceLimit:
		return h.QueueSetResourceLimit(req.QueueName, req.ResourceLimit)

	case wire.KindSubmitCommand:
		return h.SubmitCommand(req.Command, req.GPURequire, req.SubmitQueue, req.SubmitName)
	case wire.KindSubmitScript:
		return h.SubmitScript(req.ScriptPath, req.GPURequire, req.SubmitQueue, req.SubmitName)
	case wire.KindSubmitBatchJson:
		return h.SubmitBatchJson(req.BatchTasks, req.BatchDefaultQueue)

	default:
		return wire.Err(fmt.Sprintf("unrecognized request kind %q", req.Kind))
	}
}

// killPid is overridable in tests; defaults to the real process group
// signal.
var killPid = process.Kill
