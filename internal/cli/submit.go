package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gavelrs/gavel/internal/wire"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a task to the daemon",
}

var (
	submitGPURequire int
	submitQueue      string
	submitName       string
)

var submitCommandCmd = &cobra.Command{
	Use:   "command -- <command>",
	Short: "Submit a shell command as a task",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSubmit(wire.Request{
			Kind:        wire.KindSubmitCommand,
			Command:     joinArgs(args),
			GPURequire:  submitGPURequire,
			SubmitQueue: submitQueue,
			SubmitName:  submitName,
		})
	},
}

var submitScriptCmd = &cobra.Command{
	Use:   "script <path>",
	Short: "Submit an executable script as a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSubmit(wire.Request{
			Kind:        wire.KindSubmitScript,
			ScriptPath:  args[0],
			GPURequire:  submitGPURequire,
			SubmitQueue: submitQueue,
			SubmitName:  submitName,
		})
	},
}

var submitJSONCmd = &cobra.Command{
	Use:   "json <path>",
	Short: "Submit a batch of tasks described by a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var entries []struct {
			Command    string `json:"command"`
			GPURequire int    `json:"gpus_required"`
			Queue      string `json:"queue"`
			Priority   *int   `json:"priority"`
			Name       string `json:"name"`
		}
		if err := json.Unmarshal(raw, &entries); err != nil {
			return fmt.Errorf("parse batch file %s: %w", args[0], err)
		}
		specs := make([]wire.BatchTaskSpec, 0, len(entries))
		for _, e := range entries {
			spec := wire.BatchTaskSpec{Command: e.Command, GPURequire: e.GPURequire, Queue: e.Queue, Name: e.Name}
			if e.Priority != nil {
				spec.Priority, spec.HasPriority = *e.Priority, true
			}
			specs = append(specs, spec)
		}
		return runSubmit(wire.Request{
			Kind:              wire.KindSubmitBatchJson,
			BatchTasks:        specs,
			BatchDefaultQueue: submitQueue,
		})
	},
}

func runSubmit(req wire.Request) error {
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

func joinArgs(args []string) string {
	out := args[0]
	for _, a := range args[1:] {
		out += " " + a
	}
	return out
}

func init() {
	for _, c := range []*cobra.Command{submitCommandCmd, submitScriptCmd} {
		c.Flags().IntVar(&submitGPURequire, "gpus", 0, "number of GPUs this task requires")
		c.Flags().StringVar(&submitQueue, "queue", "", "destination queue (defaults to waiting_queue)")
		c.Flags().StringVar(&submitName, "name", "", "task display name")
	}
	submitCommandCmd.Flags().SetInterspersed(false)
	submitJSONCmd.Flags().StringVar(&submitQueue, "default-queue", "", "queue used for specs that omit one")

	submitCmd.AddCommand(submitCommandCmd, submitScriptCmd, submitJSONCmd)
	RootCmd.AddCommand(submitCmd)
}
