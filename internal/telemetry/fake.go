package telemetry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gavelrs/gavel/internal/types"
)

// FakeSource is a deterministic, in-memory Source for tests: callers
// seed it with exactly the stats they want observed, no randomness or
// simulated drift (unlike the demo-mode mock this project's teacher
// used, a scheduler test wants a fixed snapshot, not a moving target).
type FakeSource struct {
	mu    sync.RWMutex
	stats map[int]types.GpuStats
}

// NewFakeSource builds a FakeSource seeded with the given stats.
func NewFakeSource(initial ...types.GpuStats) *FakeSource {
	f := &FakeSource{stats: make(map[int]types.GpuStats)}
	for _, s := range initial {
		f.stats[s.Index] = s
	}
	return f
}

// Set overwrites (or adds) the snapshot for one GPU index.
func (f *FakeSource) Set(s types.GpuStats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats[s.Index] = s
}

// Remove deletes a GPU from the fake device set, simulating it going
// missing or being physically removed.
func (f *FakeSource) Remove(index int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stats, index)
}

func (f *FakeSource) DeviceCount() (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.stats), nil
}

func (f *FakeSource) GetStats(index int) (types.GpuStats, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.stats[index]
	if !ok {
		return types.GpuStats{}, fmt.Errorf("no such gpu %d", index)
	}
	return s, nil
}

func (f *FakeSource) GetAllStats() map[int]types.GpuStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[int]types.GpuStats, len(f.stats))
	for k, v := range f.stats {
		out[k] = v
	}
	return out
}

// Indices returns the currently known GPU indices, sorted.
func (f *FakeSource) Indices() []int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]int, 0, len(f.stats))
	for k := range f.stats {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
