// Package scheduler runs the periodic placement and reconciliation
// loop: refresh telemetry, place waiting tasks onto qualifying GPUs,
// and reconcile Running tasks whose processes disappeared outside a
// monitor's view.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gavelrs/gavel/internal/metrics"
	"github.com/gavelrs/gavel/internal/process"
	"github.com/gavelrs/gavel/internal/state"
	"github.com/gavelrs/gavel/internal/telemetry"
	"github.com/gavelrs/gavel/internal/tracing"
)

// DefaultInterval is the daemon's normal tick period.
const DefaultInterval = 3 * time.Second

// Scheduler owns no state of its own beyond its collaborators; every
// Tick reads a fresh snapshot from the store.
type Scheduler struct {
	store      *state.Store
	telemetry  telemetry.Source
	supervisor *process.Supervisor
	log        *zap.Logger
	interval   time.Duration
	tracer     *tracing.Provider
	metrics    *metrics.Metrics
}

// SetTracer attaches a tracing.Provider used to span each Tick.
// Optional — a nil tracer leaves Tick unspanned.
func (s *Scheduler) SetTracer(t *tracing.Provider) { s.tracer = t }

// SetMetrics attaches a metrics.Metrics updated by every Tick and by
// every terminal transition the scheduler itself drives (spawn
// failures, reconciliation). Optional — a nil Metrics leaves the
// scheduler's activity unrecorded.
func (s *Scheduler) SetMetrics(m *metrics.Metrics) { s.metrics = m }

// New builds a Scheduler. interval <= 0 uses DefaultInterval, letting
// tests pass a short interval (or drive Tick directly).
func New(store *state.Store, src telemetry.Source, supervisor *process.Supervisor, log *zap.Logger, interval time.Duration) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{store: store, telemetry: src, supervisor: supervisor, log: log, interval: interval}
}

// Run blocks, ticking until ctx is cancelled. It never returns an
// error; internal step failures are logged and the loop continues.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler loop stopping")
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick performs one iteration: refresh telemetry, place tasks,
// reconcile Running tasks.
func (s *Scheduler) Tick() {
	_, span := s.tracer.StartSpan(context.Background(), "scheduler.tick")
	start := time.Now()

	s.store.UpdateAllGPUStats(s.telemetry)
	s.place()
	s.reconcile()

	if s.metrics != nil {
		s.metrics.RecordTick(time.Since(start).Seconds())
		allocations := s.store.GetGPUAllocations()
		s.metrics.SetGaugeSnapshot(len(allocations), len(s.store.GetIgnoredGPUs()))
	}
	tracing.End(span, nil)
}
