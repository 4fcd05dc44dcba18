// Package telemetry pulls per-GPU metric snapshots on demand. The core
// scheduler consumes a Source only through internal/state's
// UpdateAllGPUStats.
package telemetry

import "github.com/gavelrs/gavel/internal/types"

// Source yields a snapshot of every live GPU. Implementations report
// per-device errors without failing the whole batch — a device that
// errors is simply absent from the returned map.
type Source interface {
	DeviceCount() (int, error)
	GetStats(index int) (types.GpuStats, error)
	GetAllStats() map[int]types.GpuStats
}
