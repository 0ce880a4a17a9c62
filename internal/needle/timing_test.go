package needle

import (
	"strings"
	"testing"
	"time"

	"github.com/smartneedle/needletrack/internal/monitoring"
)

func TestStepTimerElapsed(t *testing.T) {
	st := NewStepTimer()
	st.BeginCycle()
	st.Mark(StepVolumeReceived)
	time.Sleep(2 * time.Millisecond)
	st.Mark(StepTipClassified)

	d, ok := st.Elapsed(StepVolumeReceived, StepTipClassified, 0)
	if !ok {
		t.Fatal("expected marks for both steps")
	}
	if d <= 0 {
		t.Errorf("expected positive duration, got %v", d)
	}
}

func TestStepTimerNegativeCycleIndexesFromEnd(t *testing.T) {
	st := NewStepTimer()
	for i := 0; i < 3; i++ {
		st.BeginCycle()
		st.Mark(StepVolumeReceived)
		st.Mark(StepTipTracked)
	}
	if _, ok := st.Elapsed(StepVolumeReceived, StepTipTracked, -1); !ok {
		t.Error("expected marks in the last cycle")
	}
	if _, ok := st.Elapsed(StepVolumeReceived, StepTipTracked, -4); ok {
		t.Error("expected out-of-range negative cycle to fail")
	}
}

func TestStepTimerMissingMark(t *testing.T) {
	st := NewStepTimer()
	st.BeginCycle()
	st.Mark(StepVolumeReceived)
	if _, ok := st.Elapsed(StepVolumeReceived, StepPlanesUpdated, 0); ok {
		t.Error("expected missing second mark to fail")
	}
}

func TestStepTimerMarkBeforeBeginCycleDropped(t *testing.T) {
	st := NewStepTimer()
	st.Mark(StepVolumeReceived)
	st.BeginCycle()
	if _, ok := st.Elapsed(StepVolumeReceived, StepVolumeReceived, 0); ok {
		t.Error("mark before BeginCycle should not land in any cycle")
	}
}

func TestStepTimerClear(t *testing.T) {
	st := NewStepTimer()
	st.BeginCycle()
	st.Mark(StepVolumeReceived)
	st.Clear()
	if _, ok := st.Elapsed(StepVolumeReceived, StepVolumeReceived, 0); ok {
		t.Error("expected no cycles after Clear")
	}
}

func TestStepTimerReportPairs(t *testing.T) {
	orig := monitoring.Logf
	defer func() { monitoring.Logf = orig }()
	var lines []string
	monitoring.Logf = func(format string, v ...interface{}) {
		lines = append(lines, format)
	}

	st := NewStepTimer()
	st.BeginCycle()
	st.Mark(StepVolumeReceived)
	st.Mark(StepTipClassified)
	st.ReportPairs([][2]string{
		{StepVolumeReceived, StepTipClassified},
		{StepTipClassified, StepPlanesUpdated},
	})

	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "mean") {
		t.Errorf("expected a mean report, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "no samples") {
		t.Errorf("expected a no-samples report, got %q", lines[1])
	}
}
