// Package wire defines the tagged request/reply union exchanged over
// the daemon's local socket and its CBOR framing.
package wire

import "github.com/gavelrs/gavel/internal/types"

// RequestKind identifies which variant of the tagged Request union is
// populated.
type RequestKind string

const (
	KindDaemonStop   RequestKind = "daemon_stop"
	KindDaemonStatus RequestKind = "daemon_status"

	KindTaskList   RequestKind = "task_list"
	KindTaskInfo   RequestKind = "task_info"
	KindTaskRun    RequestKind = "task_run"
	KindTaskKill   RequestKind = "task_kill"
	KindTaskRemove RequestKind = "task_remove"
	KindTaskLogs   RequestKind = "task_logs"

	KindGpuList         RequestKind = "gpu_list"
	KindGpuInfo         RequestKind = "gpu_info"
	KindGpuAllocate     RequestKind = "gpu_allocate"
	KindGpuRelease      RequestKind = "gpu_release"
	KindGpuIgnore       RequestKind = "gpu_ignore"
	KindGpuResetIgnored RequestKind = "gpu_reset_ignored"

	KindQueueList             RequestKind = "queue_list"
	KindQueueStatus           RequestKind = "queue_status"
	KindQueueMerge            RequestKind = "queue_merge"
	KindQueueCreate           RequestKind = "queue_create"
	KindQueueMove             RequestKind = "queue_move"
	KindQueueSetPriority      RequestKind = "queue_set_priority"
	KindQueueSetResourceLimit RequestKind = "queue_set_resource_limit"

	KindSubmitCommand   RequestKind = "submit_command"
	KindSubmitScript    RequestKind = "submit_script"
	KindSubmitBatchJson RequestKind = "submit_batch_json"
)

// TaskFilterKind is the filter predicate for Task.List.
type TaskFilterKind string

const (
	FilterAll      TaskFilterKind = "all"
	FilterRunning  TaskFilterKind = "running"
	FilterFinished TaskFilterKind = "finished"
	FilterByQueue  TaskFilterKind = "by_queue"
	FilterByUser   TaskFilterKind = "by_user"
)

// TaskFilter selects which tasks Task.List returns.
type TaskFilter struct {
	Kind  TaskFilterKind `cbor:"kind"`
	Value string         `cbor:"value,omitempty"` // queue name or user name
}

// BatchTaskSpec is one element of Submit.BatchJson.
type BatchTaskSpec struct {
	Command      string `cbor:"command"`
	GPURequire   int    `cbor:"gpus_required"`
	Queue        string `cbor:"queue,omitempty"`
	Priority     int    `cbor:"priority,omitempty"`
	Name         string `cbor:"name,omitempty"`
	HasPriority  bool   `cbor:"has_priority,omitempty"`
}

// Request is the closed tagged union every client message decodes into.
// Exactly the fields relevant to Kind are populated; the RPC server
// dispatches purely on Kind.
type Request struct {
	Kind RequestKind `cbor:"kind"`

	// Task.Info / Run / Kill / Remove / Logs, Queue.SetPriority (task_id)
	TaskID uint64 `cbor:"task_id,omitempty"`
	// Task.List
	Filter TaskFilter `cbor:"filter,omitempty"`
	// Task.Logs
	Tail bool `cbor:"tail,omitempty"`

	// Gpu.Info (optional id), Gpu.Release/Ignore
	GpuID    int  `cbor:"gpu_id,omitempty"`
	HasGpuID bool `cbor:"has_gpu_id,omitempty"`
	// Gpu.Allocate
	GpuIDs []int `cbor:"gpu_ids,omitempty"`

	// Queue.Status/Create/SetResourceLimit, common "name" field
	QueueName string `cbor:"queue_name,omitempty"`
	// Queue.Create
	Priority int `cbor:"priority,omitempty"`
	// Queue.Merge
	SrcQueue string `cbor:"src_queue,omitempty"`
	DstQueue string `cbor:"dst_queue,omitempty"`
	// Queue.Move
	DestQueue string `cbor:"dest_queue,omitempty"`
	// Queue.SetResourceLimit
	ResourceLimit types.ResourceLimit `cbor:"resource_limit,omitempty"`

	// Submit.Command/Script
	Command      string `cbor:"command,omitempty"`
	ScriptPath   string `cbor:"script_path,omitempty"`
	GPURequire   int    `cbor:"gpus_required,omitempty"`
	SubmitQueue  string `cbor:"submit_queue,omitempty"`
	SubmitName   string `cbor:"submit_name,omitempty"`
	// Submit.BatchJson
	BatchTasks        []BatchTaskSpec `cbor:"batch_tasks,omitempty"`
	BatchDefaultQueue string          `cbor:"batch_default_queue,omitempty"`
}

// ReplyKind identifies which variant of the tagged Reply union is
// populated.
type ReplyKind string

const (
	ReplyAck         ReplyKind = "ack"
	ReplyError       ReplyKind = "error"
	ReplyGpuStatus   ReplyKind = "gpu_status"
	ReplyTaskStatus  ReplyKind = "task_status"
	ReplyQueueStatus ReplyKind = "queue_status"
)

// Reply is the closed tagged union the daemon sends back.
type Reply struct {
	Kind    ReplyKind `cbor:"kind"`
	Message string    `cbor:"message,omitempty"` // Ack or Error text

	Gpus   []types.GpuStats `cbor:"gpus,omitempty"`
	Tasks  []types.Task     `cbor:"tasks,omitempty"`
	Queues []types.Queue    `cbor:"queues,omitempty"`
}

// Ack builds a success reply carrying a human-readable message.
func Ack(msg string) Reply { return Reply{Kind: ReplyAck, Message: msg} }

// Err builds a domain-failure reply carrying a human-readable message.
func Err(msg string) Reply { return Reply{Kind: ReplyError, Message: msg} }
