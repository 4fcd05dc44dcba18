// Package cli implements gavelctl's cobra command tree: daemon
// control, task submission/management, GPU management, and queue
// management, each dispatching one wire.Request per invocation over
// the unix socket named in the config file.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gavelrs/gavel/internal/config"
	"github.com/gavelrs/gavel/internal/rpc"
)

var configPath string

// RootCmd is gavelctl's entrypoint; cmd/gavelctl's main calls Execute
// on it directly.
var RootCmd = &cobra.Command{
	Use:   "gavelctl",
	Short: "Client for the gaveld GPU job scheduler daemon",
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to gavelctl config file")
}

// Execute runs the command tree, exiting the process with a nonzero
// code on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// client loads configuration and builds an rpc.Client bound to the
// configured socket path.
func client() (*rpc.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return rpc.NewClient(cfg.SockPath), nil
}
