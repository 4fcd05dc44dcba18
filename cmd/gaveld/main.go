// Command gaveld is the GPU job scheduler daemon: it owns the host's
// GPUs, accepts submissions over a local unix socket, and places
// waiting tasks onto qualifying GPUs every scheduler tick.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/gavelrs/gavel/internal/config"
	"github.com/gavelrs/gavel/internal/handlers"
	"github.com/gavelrs/gavel/internal/lockfile"
	"github.com/gavelrs/gavel/internal/logging"
	"github.com/gavelrs/gavel/internal/metrics"
	"github.com/gavelrs/gavel/internal/process"
	"github.com/gavelrs/gavel/internal/rpc"
	"github.com/gavelrs/gavel/internal/scheduler"
	"github.com/gavelrs/gavel/internal/state"
	"github.com/gavelrs/gavel/internal/telemetry"
	"github.com/gavelrs/gavel/internal/tracing"
	"github.com/gavelrs/gavel/internal/types"
)

const adminAddr = "127.0.0.1:9400"

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to gaveld config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		// An unreadable or malformed config file is fatal: the daemon
		// has no safe partial-config fallback to run with.
		log.Fatalf("gaveld: fatal: %v", err)
	}

	logger, err := logging.New(cfg.BugLevel)
	if err != nil {
		log.Fatalf("gaveld: fatal: building logger: %v", err)
	}
	defer logger.Sync()

	tracer, err := tracing.New(logger)
	if err != nil {
		logger.Warn("tracing disabled: failed to initialize", zap.Error(err))
	}

	store := state.New()
	telemetrySource := telemetry.NewNvidiaSMISource(logger)

	if count, err := telemetrySource.DeviceCount(); err != nil {
		logger.Warn("gpu discovery failed, starting with zero GPUs", zap.Error(err))
	} else {
		ids := make([]int, count)
		for i := range ids {
			ids[i] = i
		}
		store.SeedRunningQueueGPUs(ids)
		logger.Info("discovered GPUs", zap.Int("count", count))
	}

	m := metrics.New()

	h := handlers.New(store, cfg.LogPath, logger, uint64(os.Getpid()))
	h.SetMetrics(m)

	supervisor := process.NewSupervisor(logger, func(report process.ExitReport) {
		if report.Success {
			_ = store.UpdateTaskState(report.TaskID, types.TaskFinished, nil, nil)
			m.RecordTaskTerminal("finished")
		} else {
			reason := report.Reason
			_ = store.UpdateTaskState(report.TaskID, types.TaskFailed, nil, &reason)
			m.RecordTaskTerminal("failed")
		}
		_ = store.SetTaskPID(report.TaskID, nil)
	})
	supervisor.SetTracer(tracer)

	sched := scheduler.New(store, telemetrySource, supervisor, logger, 0)
	sched.SetTracer(tracer)
	sched.SetMetrics(m)

	rpcServer := rpc.NewServer(cfg.SockPath, h, logger)
	rpcServer.SetTracer(tracer)

	adminServer := metrics.NewServer(adminAddr, m, store, logger)

	pidPath := cfg.SockPath + ".pid"
	if err := lockfile.Write(pidPath, os.Getpid()); err != nil {
		logger.Warn("failed to write lock file", zap.Error(err))
	}
	defer lockfile.Remove(pidPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()
	go func() {
		<-h.Shutdown
		cancel()
	}()

	go func() {
		if err := adminServer.ListenAndServe(); err != nil {
			logger.Warn("admin http server stopped", zap.Error(err))
		}
	}()

	go sched.Run(ctx)

	serveErr := make(chan error, 1)
	go func() { serveErr <- rpcServer.Serve() }()

	logger.Info("gaveld ready", zap.String("sock_path", cfg.SockPath), zap.String("admin_addr", adminAddr))

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			// Failing to bind the RPC socket is fatal: no client can reach
			// the daemon without it.
			logger.Fatal("rpc server failed", zap.Error(err))
		}
		serveErr <- nil
	}
	rpcServer.Stop()
	adminServer.Shutdown()
	tracer.Shutdown(context.Background())
	<-serveErr
	logger.Info("gaveld stopped")
}
