package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gavelrs/gavel/internal/types"
	"github.com/gavelrs/gavel/internal/wire"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage queues",
}

var queueCreatePriority int

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all queues",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(wire.Request{Kind: wire.KindQueueList})
	},
}

var queueStatusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Show one queue's tasks and resource limit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(wire.Request{Kind: wire.KindQueueStatus, QueueName: args[0]})
	},
}

var queueCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(wire.Request{Kind: wire.KindQueueCreate, QueueName: args[0], Priority: queueCreatePriority})
	},
}

var queueMergeCmd = &cobra.Command{
	Use:   "merge <src> <dst>",
	Short: "Move every task from src into dst",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(wire.Request{Kind: wire.KindQueueMerge, SrcQueue: args[0], DstQueue: args[1]})
	},
}

var queueMoveCmd = &cobra.Command{
	Use:   "move <task-id> <dest-queue>",
	Short: "Move a task into a different queue's waiting list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		return call(wire.Request{Kind: wire.KindQueueMove, TaskID: id, DestQueue: args[1]})
	},
}

var queuePriorityCmd = &cobra.Command{
	Use:   "priority <task-id> <0-9>",
	Short: "Set a task's priority",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		p, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid priority %q: %w", args[1], err)
		}
		return call(wire.Request{Kind: wire.KindQueueSetPriority, TaskID: id, Priority: p})
	},
}

var (
	limitMemoryType       string
	limitMemoryValue      float64
	limitMaxUtilization   float64
)

var queueSetLimitCmd = &cobra.Command{
	Use:   "set-limit <queue>",
	Short: "Set a queue's resource limit predicate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var memType types.MemoryRequirementType
		switch limitMemoryType {
		case "", "ignore":
			memType = types.MemoryIgnore
		case "absolute_mb":
			memType = types.MemoryAbsoluteMB
		case "percentage":
			memType = types.MemoryPercentage
		default:
			return fmt.Errorf("invalid --memory-type %q", limitMemoryType)
		}
		limit := types.ResourceLimit{
			MemoryRequirementType:  memType,
			MemoryRequirementValue: limitMemoryValue,
			MaxGPUUtilization:      limitMaxUtilization,
		}
		return call(wire.Request{Kind: wire.KindQueueSetResourceLimit, QueueName: args[0], ResourceLimit: limit})
	},
}

func init() {
	queueCreateCmd.Flags().IntVar(&queueCreatePriority, "priority", 5, "queue priority (0-9)")

	queueSetLimitCmd.Flags().StringVar(&limitMemoryType, "memory-type", "ignore", "ignore|absolute_mb|percentage")
	queueSetLimitCmd.Flags().Float64Var(&limitMemoryValue, "memory-value", 0, "memory threshold for the chosen type")
	queueSetLimitCmd.Flags().Float64Var(&limitMaxUtilization, "max-utilization", -1, "max GPU utilization percent, outside [0,100] disables the check")

	queueCmd.AddCommand(queueListCmd, queueStatusCmd, queueCreateCmd, queueMergeCmd, queueMoveCmd, queuePriorityCmd, queueSetLimitCmd)
	RootCmd.AddCommand(queueCmd)
}
