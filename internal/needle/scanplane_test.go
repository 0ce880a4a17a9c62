package needle

import "testing"

func TestPlaneValid(t *testing.T) {
	for _, p := range AllPlanes {
		if !p.Valid() {
			t.Errorf("plane %q should be valid", p)
		}
	}
	if NoPlane.Valid() || Plane("OBLIQUE").Valid() {
		t.Error("unsupported planes must not validate")
	}
}

func TestPlaneAxes(t *testing.T) {
	for _, tt := range []struct {
		plane   Plane
		through int
		inPlane [2]int
	}{
		{PlaneCOR, 1, [2]int{0, 2}},
		{PlaneSAG, 0, [2]int{1, 2}},
		{PlaneAX, 2, [2]int{0, 1}},
	} {
		if got := tt.plane.ThroughAxis(); got != tt.through {
			t.Errorf("%s through axis = %d, want %d", tt.plane, got, tt.through)
		}
		if got := tt.plane.InPlaneAxes(); got != tt.inPlane {
			t.Errorf("%s in-plane axes = %v, want %v", tt.plane, got, tt.inPlane)
		}
		// The through axis never overlaps the in-plane pair.
		in := tt.plane.InPlaneAxes()
		if in[0] == tt.through || in[1] == tt.through {
			t.Errorf("%s through axis %d overlaps in-plane axes %v", tt.plane, tt.through, in)
		}
	}
}

func TestPlaneRotationsAreOrthonormal(t *testing.T) {
	for _, p := range AllPlanes {
		r := p.Rotation()
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				dot := r[i*3]*r[j*3] + r[i*3+1]*r[j*3+1] + r[i*3+2]*r[j*3+2]
				want := 0.0
				if i == j {
					want = 1.0
				}
				if dot != want {
					t.Errorf("%s rotation rows %d,%d dot = %v, want %v", p, i, j, dot, want)
				}
			}
		}
	}
}

func TestNewPlanePoseSet(t *testing.T) {
	set := NewPlanePoseSet([]Plane{PlaneCOR, PlaneAX})
	if len(set) != 2 {
		t.Fatalf("expected 2 poses, got %d", len(set))
	}
	if _, ok := set[PlaneSAG]; ok {
		t.Error("inactive plane should have no pose")
	}
	cor := set[PlaneCOR]
	if cor.Rotation != PlaneCOR.Rotation() {
		t.Error("pose rotation should match the plane's fixed rotation")
	}
	if cor.Translation != ([3]float64{}) {
		t.Errorf("initial translation should be zero, got %v", cor.Translation)
	}
}

func TestUpdateForTipSliceOnly(t *testing.T) {
	set := NewPlanePoseSet(AllPlanes)
	tip := [3]float64{10, 20, 30}

	updated := set.UpdateForTip(tip, PlaneCOR, ModeSliceOnly)
	if len(updated) != 2 || updated[0] != PlaneSAG || updated[1] != PlaneAX {
		t.Fatalf("updated = %v, want [SAG AX]", updated)
	}
	// The reporting plane is untouched.
	if set[PlaneCOR].Translation != ([3]float64{}) {
		t.Errorf("reporting plane moved: %v", set[PlaneCOR].Translation)
	}
	// Each sibling gets only its through-plane coordinate.
	if want := ([3]float64{10, 0, 0}); set[PlaneSAG].Translation != want {
		t.Errorf("SAG translation = %v, want %v", set[PlaneSAG].Translation, want)
	}
	if want := ([3]float64{0, 0, 30}); set[PlaneAX].Translation != want {
		t.Errorf("AX translation = %v, want %v", set[PlaneAX].Translation, want)
	}
}

func TestUpdateForTipFullRecenter(t *testing.T) {
	set := NewPlanePoseSet(AllPlanes)
	tip := [3]float64{10, 20, 30}

	set.UpdateForTip(tip, PlaneAX, ModeFullRecenter)
	for _, p := range []Plane{PlaneCOR, PlaneSAG} {
		if set[p].Translation != tip {
			t.Errorf("%s translation = %v, want %v", p, set[p].Translation, tip)
		}
	}
	if set[PlaneAX].Translation != ([3]float64{}) {
		t.Errorf("reporting plane moved: %v", set[PlaneAX].Translation)
	}
}

func TestUpdateForTipSkipsInactivePlanes(t *testing.T) {
	set := NewPlanePoseSet([]Plane{PlaneCOR})
	updated := set.UpdateForTip([3]float64{1, 2, 3}, PlaneCOR, ModeSliceOnly)
	if len(updated) != 0 {
		t.Errorf("expected no updates with only the reporting plane active, got %v", updated)
	}
}

func TestScanPlaneModeValid(t *testing.T) {
	if !ModeSliceOnly.Valid() || !ModeFullRecenter.Valid() {
		t.Error("built-in modes must validate")
	}
	if ScanPlaneMode("wobble").Valid() {
		t.Error("unknown mode must not validate")
	}
}
