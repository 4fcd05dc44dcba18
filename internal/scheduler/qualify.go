package scheduler

import "github.com/gavelrs/gavel/internal/types"

// isQualifying reports whether a GPU qualifies for a queue: both its
// memory and utilization checks must pass against the queue's
// ResourceLimit.
func isQualifying(stats types.GpuStats, limit types.ResourceLimit) bool {
	return memoryQualifies(stats, limit) && utilizationQualifies(stats, limit)
}

func memoryQualifies(stats types.GpuStats, limit types.ResourceLimit) bool {
	switch limit.MemoryRequirementType {
	case types.MemoryIgnore:
		return true
	case types.MemoryAbsoluteMB:
		return stats.MemoryFreeMB >= limit.MemoryRequirementValue
	case types.MemoryPercentage:
		if stats.MemoryTotalMB <= 0 {
			return false
		}
		required := (limit.MemoryRequirementValue / 100.0) * stats.MemoryTotalMB
		return stats.MemoryFreeMB >= required
	default:
		return true
	}
}

func utilizationQualifies(stats types.GpuStats, limit types.ResourceLimit) bool {
	if limit.MaxGPUUtilization < 0 || limit.MaxGPUUtilization > 100 {
		return true
	}
	return stats.UtilizationGPU <= limit.MaxGPUUtilization
}
