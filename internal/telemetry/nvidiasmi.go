package telemetry

import (
	"bufio"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/gavelrs/gavel/internal/types"
)

// nvidiaSMIQueryFields mirrors the CSV column order requested from
// nvidia-smi; keep in sync with parseGPUStatsLine.
const nvidiaSMIQueryFields = "index,name,utilization.gpu,utilization.memory,memory.total,memory.used,memory.free,temperature.gpu,power.draw"

// NvidiaSMISource shells out to the nvidia-smi CLI for telemetry. It
// keeps no history; every call reflects the current instant.
type NvidiaSMISource struct {
	log *zap.Logger
}

// NewNvidiaSMISource builds a Source backed by the nvidia-smi binary on
// PATH.
func NewNvidiaSMISource(log *zap.Logger) *NvidiaSMISource {
	if log == nil {
		log = zap.NewNop()
	}
	return &NvidiaSMISource{log: log}
}

// DeviceCount reports how many GPUs nvidia-smi currently enumerates.
func (s *NvidiaSMISource) DeviceCount() (int, error) {
	out, err := exec.Command("nvidia-smi", "--query-gpu=index", "--format=csv,noheader,nounits").Output()
	if err != nil {
		return 0, fmt.Errorf("nvidia-smi not available or no GPUs found: %w", err)
	}
	count := 0
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	return count, nil
}

// GetStats fetches a single GPU's snapshot.
func (s *NvidiaSMISource) GetStats(index int) (types.GpuStats, error) {
	out, err := exec.Command("nvidia-smi",
		fmt.Sprintf("--id=%d", index),
		"--query-gpu="+nvidiaSMIQueryFields,
		"--format=csv,noheader,nounits",
	).Output()
	if err != nil {
		return types.GpuStats{}, fmt.Errorf("collect gpu %d: %w", index, err)
	}
	return parseGPUStatsLine(strings.TrimSpace(string(out)))
}

// GetAllStats fetches every GPU's snapshot in one nvidia-smi call.
// Devices whose line fails to parse are dropped rather than failing
// the whole batch.
func (s *NvidiaSMISource) GetAllStats() map[int]types.GpuStats {
	out, err := exec.Command("nvidia-smi",
		"--query-gpu="+nvidiaSMIQueryFields,
		"--format=csv,noheader,nounits",
	).Output()
	if err != nil {
		s.log.Warn("nvidia-smi query failed", zap.Error(err))
		return map[int]types.GpuStats{}
	}

	result := make(map[int]types.GpuStats)
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		stats, err := parseGPUStatsLine(line)
		if err != nil {
			s.log.Warn("skipping unparseable nvidia-smi line", zap.String("line", line), zap.Error(err))
			continue
		}
		result[stats.Index] = stats
	}
	return result
}

func parseGPUStatsLine(line string) (types.GpuStats, error) {
	fields := strings.Split(line, ", ")
	if len(fields) < 9 {
		return types.GpuStats{}, fmt.Errorf("unexpected nvidia-smi output format: %q", line)
	}

	index, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return types.GpuStats{}, fmt.Errorf("parse index: %w", err)
	}

	stats := types.GpuStats{Index: index, Name: strings.TrimSpace(fields[1])}
	stats.UtilizationGPU, _ = parseFloat(fields[2])
	stats.UtilizationMemory, _ = parseFloat(fields[3])
	stats.MemoryTotalMB, _ = parseFloat(fields[4])
	stats.MemoryUsedMB, _ = parseFloat(fields[5])
	stats.MemoryFreeMB, _ = parseFloat(fields[6])
	stats.TemperatureC, _ = parseFloat(fields[7])
	stats.PowerDrawWatts, _ = parseFloat(fields[8])
	return stats, nil
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "[Not Supported]" || s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
