// Package process supervises the child processes the scheduler spawns
// to execute tasks: building argv and environment, redirecting IO to a
// log file, and monitoring for exit.
package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	gopsutilprocess "github.com/shirou/gopsutil/v3/process"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/gavelrs/gavel/internal/tracing"
)

// ExitReport is handed to a Supervisor's exit callback when a
// supervised child terminates, one way or another.
type ExitReport struct {
	TaskID  uint64
	Success bool
	Reason  string // empty when Success
}

// Supervisor spawns and monitors task child processes. It holds no
// task-specific state itself; the caller's OnExit callback is
// responsible for writing the resulting state transition back into
// the State Store.
type Supervisor struct {
	log    *zap.Logger
	tracer *tracing.Provider
	OnExit func(ExitReport)
}

// NewSupervisor builds a Supervisor. OnExit must be set before Spawn is
// called; it is invoked from the detached monitor goroutine, never
// synchronously.
func NewSupervisor(log *zap.Logger, onExit func(ExitReport)) *Supervisor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{log: log, OnExit: onExit}
}

// SetTracer attaches a tracing.Provider used to span each Spawn.
// Optional — a nil tracer leaves Spawn unspanned.
func (s *Supervisor) SetTracer(t *tracing.Provider) { s.tracer = t }

// Spawn truncates the log file, shell-splits command, builds and
// starts the child with CUDA_VISIBLE_DEVICES set to the comma-joined
// gpuIDs, and returns its pid. A detached monitor goroutine is started
// to watch for exit; the caller must still record the returned pid via
// the State Store.
func (s *Supervisor) Spawn(taskID uint64, command string, gpuIDs []int, logPath string) (int, error) {
	_, span := s.tracer.StartSpan(context.Background(), "process.spawn", attribute.Int64("task_id", int64(taskID)))
	defer func() { tracing.End(span, nil) }()

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("open log file: %w", err)
	}

	argv, err := ShellSplit(command)
	if err != nil {
		logFile.Close()
		return 0, fmt.Errorf("parse command: %w", err)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = os.Environ()
	if len(gpuIDs) > 0 {
		ids := make([]string, len(gpuIDs))
		for i, id := range gpuIDs {
			ids[i] = strconv.Itoa(id)
		}
		cmd.Env = append(cmd.Env, "CUDA_VISIBLE_DEVICES="+strings.Join(ids, ","))
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return 0, fmt.Errorf("start command: %w", err)
	}

	pid := cmd.Process.Pid
	go s.monitor(taskID, cmd, logFile)
	return pid, nil
}

// monitor waits for the child and reports its terminal state.
func (s *Supervisor) monitor(taskID uint64, cmd *exec.Cmd, logFile *os.File) {
	defer logFile.Close()

	err := cmd.Wait()
	report := ExitReport{TaskID: taskID}

	switch {
	case err == nil:
		report.Success = true
	default:
		if exitErr, ok := err.(*exec.ExitError); ok {
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
				report.Reason = fmt.Sprintf("exited with status %d", status.ExitStatus())
			} else {
				report.Reason = exitErr.Error()
			}
		} else {
			report.Reason = err.Error()
		}
	}

	s.log.Debug("child process exited",
		zap.Uint64("task_id", taskID),
		zap.Bool("success", report.Success),
		zap.String("reason", report.Reason))

	if s.OnExit != nil {
		s.OnExit(report)
	}
}

// Kill sends the graceful-termination signal to the process group
// owning pid. It does not wait for the process to exit; the monitor
// goroutine started by Spawn observes the resulting exit and finalizes
// task state.
func Kill(pid int) error {
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		return syscall.Kill(pid, syscall.SIGTERM)
	}
	return syscall.Kill(-pgid, syscall.SIGTERM)
}

// PidExists probes whether a process with the given pid is still alive,
// used by scheduler reconciliation.
func PidExists(pid int) bool {
	exists, err := gopsutilprocess.PidExists(int32(pid))
	if err != nil {
		return false
	}
	return exists
}
