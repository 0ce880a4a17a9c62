package needle

import (
	"math"
	"testing"
	"time"
)

func TestSmoothingMethodValid(t *testing.T) {
	for _, m := range []SmoothingMethod{SmoothingNone, SmoothingEMA, SmoothingKalman} {
		if !m.Valid() {
			t.Errorf("method %q should be valid", m)
		}
	}
	if SmoothingMethod("butterworth").Valid() {
		t.Error("unknown method must not validate")
	}
}

func TestNewSmoother(t *testing.T) {
	if s := NewSmoother(SmoothingNone, 0.5, 0.02, 1.0); s != nil {
		t.Errorf("expected nil smoother for none, got %T", s)
	}
	if _, ok := NewSmoother(SmoothingEMA, 0.5, 0.02, 1.0).(*EMASmoother); !ok {
		t.Error("expected an EMA smoother")
	}
	if _, ok := NewSmoother(SmoothingKalman, 0.5, 0.02, 1.0).(*KalmanSmoother); !ok {
		t.Error("expected a Kalman smoother")
	}
}

func TestEMAFirstMeasurementPassesThrough(t *testing.T) {
	e := NewEMASmoother(0.5)
	z := [3]float64{3, -4, 5}
	if got := e.Smooth(z, time.Now()); got != z {
		t.Errorf("first measurement = %v, want %v", got, z)
	}
}

func TestEMABlend(t *testing.T) {
	e := NewEMASmoother(0.25)
	e.Smooth([3]float64{0, 0, 0}, time.Time{})
	got := e.Smooth([3]float64{4, 8, -4}, time.Time{})
	want := [3]float64{1, 2, -1}
	if got != want {
		t.Errorf("blended = %v, want %v", got, want)
	}
}

func TestEMAConvergence(t *testing.T) {
	// With alpha 0.5 the residual halves each step, so the estimate lands
	// within epsilon of a constant target in ceil(log2(1/eps)) steps.
	const eps = 1e-3
	e := NewEMASmoother(0.5)
	e.Smooth([3]float64{0, 0, 0}, time.Time{})

	target := [3]float64{1, 1, 1}
	steps := int(math.Ceil(math.Log(eps) / math.Log(0.5)))
	var got [3]float64
	for i := 0; i < steps; i++ {
		got = e.Smooth(target, time.Time{})
	}
	for i := range target {
		if math.Abs(got[i]-target[i]) > eps {
			t.Errorf("axis %d: %v not within %v of target after %d steps", i, got[i], eps, steps)
		}
	}
}

func TestEMAReset(t *testing.T) {
	e := NewEMASmoother(0.5)
	e.Smooth([3]float64{10, 10, 10}, time.Time{})
	e.Reset()
	z := [3]float64{1, 2, 3}
	if got := e.Smooth(z, time.Time{}); got != z {
		t.Errorf("post-reset first measurement = %v, want %v", got, z)
	}
}

func TestKalmanFirstMeasurementPassesThrough(t *testing.T) {
	k := NewKalmanSmoother(0.02, 1.0)
	z := [3]float64{3, -4, 5}
	if got := k.Smooth(z, time.Now()); got != z {
		t.Errorf("first measurement = %v, want %v", got, z)
	}
}

func TestKalmanConvergesOnConstantStream(t *testing.T) {
	k := NewKalmanSmoother(0.02, 1.0)
	target := [3]float64{12, -7, 30}
	now := time.Unix(1000, 0)

	k.Smooth([3]float64{0, 0, 0}, now)
	var got [3]float64
	for i := 0; i < 50; i++ {
		now = now.Add(100 * time.Millisecond)
		got = k.Smooth(target, now)
	}
	for i := range target {
		if math.Abs(got[i]-target[i]) > 0.1 {
			t.Errorf("axis %d: %v not near target %v after constant stream", i, got[i], target[i])
		}
	}
}

func TestKalmanDampensJitter(t *testing.T) {
	// Alternating measurements around a midpoint: the filtered estimate
	// must have smaller swing than the raw measurements.
	k := NewKalmanSmoother(0.02, 1.0)
	now := time.Unix(1000, 0)
	k.Smooth([3]float64{0, 0, 0}, now)

	var prev [3]float64
	maxSwing := 0.0
	for i := 0; i < 40; i++ {
		now = now.Add(100 * time.Millisecond)
		z := [3]float64{10, 10, 10}
		if i%2 == 1 {
			z = [3]float64{12, 12, 12}
		}
		got := k.Smooth(z, now)
		if i > 20 {
			swing := math.Abs(got[0] - prev[0])
			if swing > maxSwing {
				maxSwing = swing
			}
		}
		prev = got
	}
	if maxSwing >= 2.0 {
		t.Errorf("filter swing %v not smaller than measurement swing 2.0", maxSwing)
	}
}

func TestKalmanNonMonotonicClockClampedToZeroDt(t *testing.T) {
	k := NewKalmanSmoother(0.02, 1.0)
	now := time.Unix(1000, 0)
	k.Smooth([3]float64{1, 1, 1}, now)

	// A clock step backwards must not blow up the filter.
	got := k.Smooth([3]float64{2, 2, 2}, now.Add(-time.Second))
	for i := range got {
		if math.IsNaN(got[i]) || math.IsInf(got[i], 0) {
			t.Fatalf("non-finite estimate %v after backwards clock step", got)
		}
		if got[i] < 1 || got[i] > 2 {
			t.Errorf("axis %d estimate %v outside measurement bracket [1,2]", i, got[i])
		}
	}
}

func TestKalmanReset(t *testing.T) {
	k := NewKalmanSmoother(0.02, 1.0)
	now := time.Unix(1000, 0)
	k.Smooth([3]float64{5, 5, 5}, now)
	k.Smooth([3]float64{6, 6, 6}, now.Add(time.Second))
	k.Reset()

	z := [3]float64{-1, -2, -3}
	if got := k.Smooth(z, now.Add(2*time.Second)); got != z {
		t.Errorf("post-reset first measurement = %v, want %v", got, z)
	}
}
