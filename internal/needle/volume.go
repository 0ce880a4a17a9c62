package needle

import (
	"math"
)

// LabelClass is the per-voxel segmentation class produced by the Segmenter.
type LabelClass uint8

const (
	LabelBackground LabelClass = 0
	LabelShaft      LabelClass = 1
	LabelTip        LabelClass = 2
)

// Geometry describes the physical placement of a voxel grid: size in voxels,
// spacing in millimetres, origin of voxel (0,0,0) and row-major direction
// cosines mapping index axes to physical axes.
type Geometry struct {
	Dim       [3]int
	Spacing   [3]float64
	Origin    [3]float64
	Direction [9]float64
}

// IdentityDirection is the direction matrix of an axis-aligned grid.
var IdentityDirection = [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}

func (g Geometry) voxelCount() int {
	return g.Dim[0] * g.Dim[1] * g.Dim[2]
}

func (g Geometry) index(x, y, z int) int {
	return (z*g.Dim[1]+y)*g.Dim[0] + x
}

// PhysicalPoint maps a (possibly continuous) voxel index to physical space:
// p = origin + D * (spacing .* index).
func (g Geometry) PhysicalPoint(ix, iy, iz float64) [3]float64 {
	sx := ix * g.Spacing[0]
	sy := iy * g.Spacing[1]
	sz := iz * g.Spacing[2]
	return [3]float64{
		g.Origin[0] + g.Direction[0]*sx + g.Direction[1]*sy + g.Direction[2]*sz,
		g.Origin[1] + g.Direction[3]*sx + g.Direction[4]*sy + g.Direction[5]*sz,
		g.Origin[2] + g.Direction[6]*sx + g.Direction[7]*sy + g.Direction[8]*sz,
	}
}

// Center returns the physical coordinates of the volume's geometric center
// (continuous index (dim-1)/2 on each axis).
func (g Geometry) Center() [3]float64 {
	return g.PhysicalPoint(
		float64(g.Dim[0]-1)/2.0,
		float64(g.Dim[1]-1)/2.0,
		float64(g.Dim[2]-1)/2.0,
	)
}

// SliceThickness is the spacing along the through-plane (acquisition) axis.
func (g Geometry) SliceThickness() float64 {
	return g.Spacing[2]
}

// LabelVolume is one segmenter output: a 3-class voxel grid with physical
// metadata, produced once per plane per tracking cycle. The engine treats it
// as read-only.
type LabelVolume struct {
	Geometry
	Labels []LabelClass
}

// Validate checks the metadata required to interpret the grid physically.
// Failures are InvalidInputError: the cycle is aborted but the session
// continues.
func (v *LabelVolume) Validate() error {
	if v == nil {
		return &InvalidInputError{Reason: "nil label volume"}
	}
	for i := 0; i < 3; i++ {
		if v.Dim[i] <= 0 {
			return &InvalidInputError{Reason: "zero-sized volume"}
		}
		if v.Spacing[i] <= 0 || math.IsNaN(v.Spacing[i]) {
			return &InvalidInputError{Reason: "missing or non-positive voxel spacing"}
		}
	}
	for _, o := range v.Origin {
		if math.IsNaN(o) || math.IsInf(o, 0) {
			return &InvalidInputError{Reason: "non-finite origin"}
		}
	}
	if len(v.Labels) != v.voxelCount() {
		return &InvalidInputError{Reason: "label buffer does not match volume size"}
	}
	return nil
}

// At returns the class of voxel (x,y,z). No bounds check; callers iterate
// within Dim.
func (v *LabelVolume) At(x, y, z int) LabelClass {
	return v.Labels[v.index(x, y, z)]
}

// Mask extracts the binary mask of one class.
func (v *LabelVolume) Mask(class LabelClass) *BinaryMask {
	m := NewBinaryMask(v.Geometry)
	for i, l := range v.Labels {
		if l == class {
			m.Bits[i] = true
		}
	}
	return m
}
