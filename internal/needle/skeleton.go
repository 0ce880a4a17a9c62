package needle

import "math"

// Thin reduces a binary mask to a single-voxel-wide curve using Zhang-Suen
// thinning applied in-plane, slice by slice. Acquisitions are thin slabs
// (usually a single slice), so in-plane thinning preserves the shaft curve.
func Thin(mask *BinaryMask) *BinaryMask {
	out := NewBinaryMask(mask.Geometry)
	copy(out.Bits, mask.Bits)

	for z := 0; z < out.Dim[2]; z++ {
		thinSlice(out, z)
	}
	return out
}

// thinSlice runs Zhang-Suen iterations on one z-slice until stable.
func thinSlice(m *BinaryMask, z int) {
	at := func(x, y int) bool { return m.At(x, y, z) }

	for {
		changed := false
		for pass := 0; pass < 2; pass++ {
			var remove [][2]int
			for y := 0; y < m.Dim[1]; y++ {
				for x := 0; x < m.Dim[0]; x++ {
					if !at(x, y) {
						continue
					}
					// Neighbours P2..P9 clockwise from north.
					p := [8]bool{
						at(x, y-1), at(x+1, y-1), at(x+1, y), at(x+1, y+1),
						at(x, y+1), at(x-1, y+1), at(x-1, y), at(x-1, y-1),
					}
					b := 0
					for _, v := range p {
						if v {
							b++
						}
					}
					if b < 2 || b > 6 {
						continue
					}
					// Transitions from background to foreground around the ring.
					a := 0
					for i := 0; i < 8; i++ {
						if !p[i] && p[(i+1)%8] {
							a++
						}
					}
					if a != 1 {
						continue
					}
					if pass == 0 {
						if (p[0] && p[2] && p[4]) || (p[2] && p[4] && p[6]) {
							continue
						}
					} else {
						if (p[0] && p[2] && p[6]) || (p[0] && p[4] && p[6]) {
							continue
						}
					}
					remove = append(remove, [2]int{x, y})
				}
			}
			for _, r := range remove {
				m.Bits[m.index(r[0], r[1], z)] = false
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

// SkeletonExtremity finds the two endpoints of a thinned curve (the voxel
// pair with maximum Euclidean index distance) and returns the physical
// coordinates of the endpoint closer to the volume center. The pair search is
// O(n²) in skeleton voxels, which stays cheap because skeletons are short
// curves. Returns false when the skeleton is empty.
func SkeletonExtremity(skeleton *BinaryMask) ([3]float64, bool) {
	var voxels [][3]int
	for z := 0; z < skeleton.Dim[2]; z++ {
		for y := 0; y < skeleton.Dim[1]; y++ {
			for x := 0; x < skeleton.Dim[0]; x++ {
				if skeleton.Bits[skeleton.index(x, y, z)] {
					voxels = append(voxels, [3]int{x, y, z})
				}
			}
		}
	}
	if len(voxels) == 0 {
		return [3]float64{}, false
	}

	bestI, bestJ := 0, 0
	bestDist := -1.0
	for i := 0; i < len(voxels); i++ {
		for j := i + 1; j < len(voxels); j++ {
			d := indexDistance(voxels[i], voxels[j])
			if d > bestDist {
				bestDist = d
				bestI, bestJ = i, j
			}
		}
	}

	center := [3]float64{
		float64(skeleton.Dim[0]) / 2.0,
		float64(skeleton.Dim[1]) / 2.0,
		float64(skeleton.Dim[2]) / 2.0,
	}
	end1, end2 := voxels[bestI], voxels[bestJ]
	if indexDistanceToPoint(end1, center) > indexDistanceToPoint(end2, center) {
		end1 = end2
	}
	return skeleton.PhysicalPoint(float64(end1[0]), float64(end1[1]), float64(end1[2])), true
}

func indexDistance(a, b [3]int) float64 {
	dx := float64(a[0] - b[0])
	dy := float64(a[1] - b[1])
	dz := float64(a[2] - b[2])
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func indexDistanceToPoint(a [3]int, p [3]float64) float64 {
	dx := float64(a[0]) - p[0]
	dy := float64(a[1]) - p[1]
	dz := float64(a[2]) - p[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
