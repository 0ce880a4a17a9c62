package needle

import (
	"errors"
	"math"
	"testing"
)

func validVolume() *LabelVolume {
	g := testGeometry(4, 4, 2)
	return &LabelVolume{Geometry: g, Labels: make([]LabelClass, 32)}
}

func TestValidateAcceptsWellFormedVolume(t *testing.T) {
	if err := validVolume().Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	for _, tt := range []struct {
		name   string
		mutate func(*LabelVolume) *LabelVolume
	}{
		{"nil volume", func(*LabelVolume) *LabelVolume { return nil }},
		{"zero dim", func(v *LabelVolume) *LabelVolume { v.Dim[1] = 0; return v }},
		{"negative spacing", func(v *LabelVolume) *LabelVolume { v.Spacing[0] = -1; return v }},
		{"nan spacing", func(v *LabelVolume) *LabelVolume { v.Spacing[2] = math.NaN(); return v }},
		{"infinite origin", func(v *LabelVolume) *LabelVolume { v.Origin[0] = math.Inf(1); return v }},
		{"short buffer", func(v *LabelVolume) *LabelVolume { v.Labels = v.Labels[:5]; return v }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate(validVolume()).Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var iie *InvalidInputError
			if !errors.As(err, &iie) {
				t.Errorf("expected InvalidInputError, got %T", err)
			}
		})
	}
}

func TestPhysicalPointAppliesDirection(t *testing.T) {
	// Swap x and y axes through the direction matrix.
	g := Geometry{
		Dim:     [3]int{4, 4, 1},
		Spacing: [3]float64{2, 3, 1},
		Origin:  [3]float64{1, 1, 1},
		Direction: [9]float64{
			0, 1, 0,
			1, 0, 0,
			0, 0, 1,
		},
	}
	got := g.PhysicalPoint(1, 1, 0)
	want := [3]float64{4, 3, 1}
	if got != want {
		t.Errorf("PhysicalPoint = %v, want %v", got, want)
	}
}

func TestCenter(t *testing.T) {
	g := Geometry{
		Dim:       [3]int{5, 5, 3},
		Spacing:   [3]float64{1, 2, 4},
		Origin:    [3]float64{-2, -4, -4},
		Direction: IdentityDirection,
	}
	got := g.Center()
	want := [3]float64{0, 0, 0}
	if got != want {
		t.Errorf("Center = %v, want %v", got, want)
	}
}

func TestSliceThickness(t *testing.T) {
	g := Geometry{Spacing: [3]float64{1, 1, 3.6}}
	if got := g.SliceThickness(); got != 3.6 {
		t.Errorf("SliceThickness = %v, want 3.6", got)
	}
}

func TestMaskSeparatesClasses(t *testing.T) {
	v := validVolume()
	v.Labels[v.index(1, 1, 0)] = LabelTip
	v.Labels[v.index(2, 1, 0)] = LabelShaft
	v.Labels[v.index(3, 3, 1)] = LabelShaft

	tips := v.Mask(LabelTip)
	shafts := v.Mask(LabelShaft)
	if tips.Count() != 1 || !tips.At(1, 1, 0) {
		t.Errorf("tip mask wrong: count=%d", tips.Count())
	}
	if shafts.Count() != 2 || !shafts.At(2, 1, 0) || !shafts.At(3, 3, 1) {
		t.Errorf("shaft mask wrong: count=%d", shafts.Count())
	}
	if tips.Intersects(shafts) {
		t.Error("class masks must be disjoint")
	}
}
