package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gavelrs/gavel/internal/wire"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and control tasks",
}

var taskListFilter string
var taskLogsTail bool

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := wire.TaskFilter{Kind: wire.FilterAll}
		switch taskListFilter {
		case "", "all":
			filter.Kind = wire.FilterAll
		case "running":
			filter.Kind = wire.FilterRunning
		case "finished":
			filter.Kind = wire.FilterFinished
		default:
			filter.Kind = wire.FilterByQueue
			filter.Value = taskListFilter
		}
		return call(wire.Request{Kind: wire.KindTaskList, Filter: filter})
	},
}

var taskInfoCmd = &cobra.Command{
	Use:   "info <task-id>",
	Short: "Show details for one task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		return call(wire.Request{Kind: wire.KindTaskInfo, TaskID: id})
	},
}

var taskRunCmd = &cobra.Command{
	Use:   "run <task-id>",
	Short: "Move a waiting task into running_queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		return call(wire.Request{Kind: wire.KindTaskRun, TaskID: id})
	},
}

var taskKillCmd = &cobra.Command{
	Use:   "kill <task-id>",
	Short: "Terminate a running task's process group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		return call(wire.Request{Kind: wire.KindTaskKill, TaskID: id})
	},
}

var taskRemoveCmd = &cobra.Command{
	Use:   "remove <task-id>",
	Short: "Remove a non-running task from the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		return call(wire.Request{Kind: wire.KindTaskRemove, TaskID: id})
	},
}

var taskLogsCmd = &cobra.Command{
	Use:   "logs <task-id>",
	Short: "Print a task's log file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		return call(wire.Request{Kind: wire.KindTaskLogs, TaskID: id, Tail: taskLogsTail})
	},
}

func parseTaskID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q: %w", s, err)
	}
	return id, nil
}

func call(req wire.Request) error {
	c, err := client()
	if err != nil {
		return err
	}
	reply, err := c.Call(req)
	if err != nil {
		return err
	}
	return printReply(reply)
}

func init() {
	taskListCmd.Flags().StringVar(&taskListFilter, "filter", "all", "all|running|finished|<queue name>")
	taskLogsCmd.Flags().BoolVar(&taskLogsTail, "tail", false, "show only the last lines of the log")

	taskCmd.AddCommand(taskListCmd, taskInfoCmd, taskRunCmd, taskKillCmd, taskRemoveCmd, taskLogsCmd)
	RootCmd.AddCommand(taskCmd)
}
