package needle

import "math"

// ImageToRAS converts a point from the acquisition image convention to the
// world (RAS) frame by negating the first two axes.
func ImageToRAS(p [3]float64) [3]float64 {
	return [3]float64{-p[0], -p[1], p[2]}
}

// TrackedTipState is the single shared tip estimate of a tracking session:
// the fused position and, per world axis, the plane that last wrote it.
// It is only ever written by confident classifications; below-threshold
// cycles leave it bit-identical.
type TrackedTipState struct {
	Position   [3]float64
	LastSource [3]Plane
}

// Reset clears the estimate at session stop.
func (t *TrackedTipState) Reset() {
	t.Position = [3]float64{}
	t.LastSource = [3]Plane{NoPlane, NoPlane, NoPlane}
}

// Reported reports whether plane p has written any axis this session.
func (t *TrackedTipState) Reported(p Plane) bool {
	for _, src := range t.LastSource {
		if src == p {
			return true
		}
	}
	return false
}

// Fuse merges a confident detection from one plane into the tracked
// position. The plane's two in-plane axes are written unconditionally. The
// through-plane axis is written only when no other plane has reported this
// session AND the new coordinate moves the slice by at least half the slice
// thickness away from the volume center coordinate; otherwise the value last
// set by the other planes (or the initial value) stands.
//
// ras is the classified point already in the world frame, centerRAS the
// volume's geometric center in the world frame, sliceThickness the
// through-plane spacing in millimetres. Returns the fused position proposal
// (before temporal smoothing).
func (t *TrackedTipState) Fuse(plane Plane, ras, centerRAS [3]float64, sliceThickness float64) [3]float64 {
	in := plane.InPlaneAxes()
	t.Position[in[0]] = ras[in[0]]
	t.Position[in[1]] = ras[in[1]]
	t.LastSource[in[0]] = plane
	t.LastSource[in[1]] = plane

	if !t.otherPlaneReported(plane) {
		axis := plane.ThroughAxis()
		if math.Abs(centerRAS[axis]-ras[axis]) >= 0.5*sliceThickness {
			t.Position[axis] = ras[axis]
			t.LastSource[axis] = plane
		}
	}
	return t.Position
}

func (t *TrackedTipState) otherPlaneReported(plane Plane) bool {
	for _, p := range AllPlanes {
		if p != plane && t.Reported(p) {
			return true
		}
	}
	return false
}
