package needle

// Plane identifies one of the three canonical orthogonal acquisition slabs.
type Plane string

const (
	PlaneCOR Plane = "COR"
	PlaneSAG Plane = "SAG"
	PlaneAX  Plane = "AX"

	// NoPlane is the zero value used in per-axis source tracking.
	NoPlane Plane = ""
)

// AllPlanes lists the supported planes in prescription order.
var AllPlanes = []Plane{PlaneCOR, PlaneSAG, PlaneAX}

// Valid reports whether p names a supported plane.
func (p Plane) Valid() bool {
	return p == PlaneCOR || p == PlaneSAG || p == PlaneAX
}

// Rotation returns the fixed row-major 3x3 basis mapping plane-local axes to
// world (RAS) axes. Plane rotations never change during a session.
func (p Plane) Rotation() [9]float64 {
	switch p {
	case PlaneCOR:
		return [9]float64{
			1, 0, 0,
			0, 0, -1,
			0, 1, 0,
		}
	case PlaneSAG:
		return [9]float64{
			0, 0, 1,
			0, 1, 0,
			-1, 0, 0,
		}
	default: // AX
		return [9]float64{
			1, 0, 0,
			0, 1, 0,
			0, 0, 1,
		}
	}
}

// ThroughAxis returns the world axis orthogonal to the plane: the slice
// position axis (COR: AP, SAG: LR, AX: IS). Axis indices are 0=LR, 1=AP,
// 2=IS.
func (p Plane) ThroughAxis() int {
	switch p {
	case PlaneCOR:
		return 1
	case PlaneSAG:
		return 0
	default:
		return 2
	}
}

// InPlaneAxes returns the two world axes a detection from this plane
// resolves directly.
func (p Plane) InPlaneAxes() [2]int {
	switch p {
	case PlaneCOR:
		return [2]int{0, 2}
	case PlaneSAG:
		return [2]int{1, 2}
	default:
		return [2]int{0, 1}
	}
}

// PlanePose is a plane's rigid-body pose: fixed rotation plus a mutable
// translation in the world frame.
type PlanePose struct {
	Plane       Plane
	Rotation    [9]float64
	Translation [3]float64
}

// PlanePoseSet holds the poses of the active planes, initialized centered at
// the origin and recentered by the scan-plane coordinator as the tip moves.
type PlanePoseSet map[Plane]*PlanePose

// NewPlanePoseSet initializes poses for the given planes at the origin with
// their fixed rotations.
func NewPlanePoseSet(active []Plane) PlanePoseSet {
	set := make(PlanePoseSet, len(active))
	for _, p := range active {
		set[p] = &PlanePose{Plane: p, Rotation: p.Rotation()}
	}
	return set
}

// ScanPlaneMode selects how the coordinator re-prescribes a plane.
type ScanPlaneMode string

const (
	// ModeSliceOnly writes only the plane's through-plane translation
	// coordinate, leaving the in-plane center untouched.
	ModeSliceOnly ScanPlaneMode = "slice-only"
	// ModeFullRecenter writes all three translation coordinates, centering
	// the plane at the tip.
	ModeFullRecenter ScanPlaneMode = "full-recenter"
)

// Valid reports whether m is a supported update mode.
func (m ScanPlaneMode) Valid() bool {
	return m == ModeSliceOnly || m == ModeFullRecenter
}

// UpdateForTip re-prescribes every active plane other than the one that just
// reported, so the next acquisitions follow the tip. Pure geometry
// assignment: no filtering happens here. Returns the planes whose pose
// changed, in prescription order.
func (set PlanePoseSet) UpdateForTip(tip [3]float64, reporting Plane, mode ScanPlaneMode) []Plane {
	var updated []Plane
	for _, p := range AllPlanes {
		pose, ok := set[p]
		if !ok || p == reporting {
			continue
		}
		if mode == ModeFullRecenter {
			pose.Translation = tip
		} else {
			axis := p.ThroughAxis()
			pose.Translation[axis] = tip[axis]
		}
		updated = append(updated, p)
	}
	return updated
}
