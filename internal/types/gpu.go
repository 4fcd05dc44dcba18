package types

// GpuStats is a point-in-time telemetry snapshot for one physical GPU,
// trimmed to the fields the scheduler and CLI actually consume.
type GpuStats struct {
	Index             int
	Name              string
	TemperatureC      float64
	UtilizationGPU    float64 // percent, 0-100
	UtilizationMemory float64 // percent, 0-100
	MemoryTotalMB     float64
	MemoryUsedMB      float64
	MemoryFreeMB      float64
	PowerDrawWatts    float64
}

// MemoryUsedPercent returns the percentage (0-100) of total memory in
// use, or 0 when total is unknown.
func (g GpuStats) MemoryUsedPercent() float64 {
	if g.MemoryTotalMB <= 0 {
		return 0
	}
	return (g.MemoryUsedMB / g.MemoryTotalMB) * 100
}
