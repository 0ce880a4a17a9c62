package needle

import (
	"sync"
	"time"

	"github.com/smartneedle/needletrack/internal/monitoring"
)

// Cycle step names marked by the session pipeline.
const (
	StepVolumeReceived = "volume_received"
	StepTipClassified  = "tip_classified"
	StepTipTracked     = "tip_tracked"
	StepPlanesUpdated  = "planes_updated"
)

// StepTimer records per-cycle timestamps of pipeline steps so the latency of
// each stage can be reported when a session stops.
type StepTimer struct {
	mu     sync.Mutex
	cycles []map[string]time.Time
}

// NewStepTimer returns an empty timer.
func NewStepTimer() *StepTimer {
	return &StepTimer{}
}

// BeginCycle opens a new cycle record.
func (t *StepTimer) BeginCycle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cycles = append(t.cycles, make(map[string]time.Time))
}

// Mark timestamps a step in the current cycle. A mark before the first
// BeginCycle is dropped.
func (t *StepTimer) Mark(step string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.cycles) == 0 {
		return
	}
	t.cycles[len(t.cycles)-1][step] = time.Now()
}

// Elapsed returns the duration between two steps of one cycle (negative
// cycle indexes from the end). ok is false when either mark is missing.
func (t *StepTimer) Elapsed(step1, step2 string, cycle int) (d time.Duration, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cycle < 0 {
		cycle += len(t.cycles)
	}
	if cycle < 0 || cycle >= len(t.cycles) {
		return 0, false
	}
	t1, ok1 := t.cycles[cycle][step1]
	t2, ok2 := t.cycles[cycle][step2]
	if !ok1 || !ok2 {
		return 0, false
	}
	return t2.Sub(t1), true
}

// ReportPairs logs the mean duration of each step pair across all recorded
// cycles.
func (t *StepTimer) ReportPairs(pairs [][2]string) {
	t.mu.Lock()
	cycleCount := len(t.cycles)
	t.mu.Unlock()

	for _, pair := range pairs {
		var total time.Duration
		n := 0
		for c := 0; c < cycleCount; c++ {
			if d, ok := t.Elapsed(pair[0], pair[1], c); ok {
				total += d
				n++
			}
		}
		if n == 0 {
			monitoring.Logf("timing: %s -> %s: no samples", pair[0], pair[1])
			continue
		}
		monitoring.Logf("timing: %s -> %s: mean %v over %d cycles",
			pair[0], pair[1], total/time.Duration(n), n)
	}
}

// Clear drops all recorded cycles.
func (t *StepTimer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cycles = nil
}
