package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/gavelrs/gavel/internal/wire"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Control the gaveld daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Launch gaveld in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		bin, err := exec.LookPath("gaveld")
		if err != nil {
			return fmt.Errorf("gaveld not found on PATH: %w", err)
		}
		daemonArgs := []string{}
		if configPath != "" {
			daemonArgs = append(daemonArgs, "--config", configPath)
		}
		proc := exec.Command(bin, daemonArgs...)
		proc.Stdout = nil
		proc.Stderr = nil
		if err := proc.Start(); err != nil {
			return fmt.Errorf("start gaveld: %w", err)
		}
		fmt.Printf("gaveld started, pid %d\n", proc.Process.Pid)
		return nil
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Request a graceful daemon shutdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client()
		if err != nil {
			return err
		}
		reply, err := c.Call(wire.Request{Kind: wire.KindDaemonStop})
		if err != nil {
			return err
		}
		return printReply(reply)
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a summary of daemon state",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client()
		if err != nil {
			return err
		}
		reply, err := c.Call(wire.Request{Kind: wire.KindDaemonStatus})
		if err != nil {
			return err
		}
		return printReply(reply)
	},
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonStatusCmd)
	RootCmd.AddCommand(daemonCmd)
}

// printReply renders a reply on stdout and returns a non-nil error for
// ReplyError so Execute exits nonzero.
func printReply(r wire.Reply) error {
	if r.Kind == wire.ReplyError {
		return fmt.Errorf("%s", r.Message)
	}
	if r.Message != "" {
		fmt.Println(r.Message)
	}
	for _, t := range r.Tasks {
		fmt.Fprintf(os.Stdout, "task %d  %-10s queue=%s gpus=%v\n", t.ID, t.State, t.Queue, t.AssignedGPUs)
	}
	for _, q := range r.Queues {
		fmt.Fprintf(os.Stdout, "queue %-16s priority=%d max_concurrent=%d running=%d waiting=%d\n",
			q.Name, q.Priority, q.MaxConcurrent, len(q.Running), len(q.Waiting))
	}
	for _, g := range r.Gpus {
		fmt.Fprintf(os.Stdout, "gpu %d  %-20s util=%.0f%% mem=%.0f/%.0fMB\n", g.Index, g.Name, g.UtilizationGPU, g.MemoryUsedMB, g.MemoryTotalMB)
	}
	return nil
}
