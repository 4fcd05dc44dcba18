package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gavelrs/gavel/internal/wire"
)

var gpuCmd = &cobra.Command{
	Use:   "gpu",
	Short: "Inspect and manage GPUs",
}

var gpuAllocateQueue string

var gpuListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all known GPUs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(wire.Request{Kind: wire.KindGpuList})
	},
}

var gpuInfoCmd = &cobra.Command{
	Use:   "info [gpu-id]",
	Short: "Show details for one GPU, or all if omitted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return call(wire.Request{Kind: wire.KindGpuInfo})
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid gpu id %q: %w", args[0], err)
		}
		return call(wire.Request{Kind: wire.KindGpuInfo, GpuID: id, HasGpuID: true})
	},
}

var gpuAllocateCmd = &cobra.Command{
	Use:   "allocate <gpu-id>[,<gpu-id>...]",
	Short: "Assign GPUs to a queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIntList(args[0])
		if err != nil {
			return err
		}
		return call(wire.Request{Kind: wire.KindGpuAllocate, GpuIDs: ids, QueueName: gpuAllocateQueue})
	},
}

var gpuReleaseCmd = &cobra.Command{
	Use:   "release <gpu-id>",
	Short: "Release a GPU's queue ownership",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid gpu id %q: %w", args[0], err)
		}
		return call(wire.Request{Kind: wire.KindGpuRelease, GpuID: id, HasGpuID: true})
	},
}

var gpuIgnoreCmd = &cobra.Command{
	Use:   "ignore <gpu-id>",
	Short: "Exclude a GPU from scheduling",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid gpu id %q: %w", args[0], err)
		}
		return call(wire.Request{Kind: wire.KindGpuIgnore, GpuID: id, HasGpuID: true})
	},
}

var gpuUnignoreCmd = &cobra.Command{
	Use:   "unignore",
	Short: "Clear the ignored GPU set",
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(wire.Request{Kind: wire.KindGpuResetIgnored})
	},
}

func parseIntList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid gpu id %q: %w", p, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func init() {
	gpuAllocateCmd.Flags().StringVar(&gpuAllocateQueue, "queue", "", "destination queue name")

	gpuCmd.AddCommand(gpuListCmd, gpuInfoCmd, gpuAllocateCmd, gpuReleaseCmd, gpuIgnoreCmd, gpuUnignoreCmd)
	RootCmd.AddCommand(gpuCmd)
}
