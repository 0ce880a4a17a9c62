package needle

import "sort"

// BinaryMask is a foreground/background voxel grid sharing the geometry of
// the label volume it was derived from.
type BinaryMask struct {
	Geometry
	Bits []bool
}

// NewBinaryMask returns an empty mask with the given geometry.
func NewBinaryMask(g Geometry) *BinaryMask {
	return &BinaryMask{Geometry: g, Bits: make([]bool, g.voxelCount())}
}

// At returns whether voxel (x,y,z) is foreground, treating out-of-range
// indices as background.
func (m *BinaryMask) At(x, y, z int) bool {
	if x < 0 || y < 0 || z < 0 || x >= m.Dim[0] || y >= m.Dim[1] || z >= m.Dim[2] {
		return false
	}
	return m.Bits[m.index(x, y, z)]
}

// Count returns the number of foreground voxels.
func (m *BinaryMask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Dilate grows the foreground by a box structuring element with the given
// per-axis radius in voxels.
func (m *BinaryMask) Dilate(rx, ry, rz int) *BinaryMask {
	out := NewBinaryMask(m.Geometry)
	for z := 0; z < m.Dim[2]; z++ {
		for y := 0; y < m.Dim[1]; y++ {
			for x := 0; x < m.Dim[0]; x++ {
				if !m.Bits[m.index(x, y, z)] {
					continue
				}
				for dz := -rz; dz <= rz; dz++ {
					for dy := -ry; dy <= ry; dy++ {
						for dx := -rx; dx <= rx; dx++ {
							nx, ny, nz := x+dx, y+dy, z+dz
							if nx < 0 || ny < 0 || nz < 0 ||
								nx >= m.Dim[0] || ny >= m.Dim[1] || nz >= m.Dim[2] {
								continue
							}
							out.Bits[out.index(nx, ny, nz)] = true
						}
					}
				}
			}
		}
	}
	return out
}

// Erode shrinks the foreground by a box structuring element with the given
// per-axis radius. A voxel survives only if its whole neighbourhood is
// foreground; the border is handled by treating outside as background.
func (m *BinaryMask) Erode(rx, ry, rz int) *BinaryMask {
	out := NewBinaryMask(m.Geometry)
	for z := 0; z < m.Dim[2]; z++ {
		for y := 0; y < m.Dim[1]; y++ {
			for x := 0; x < m.Dim[0]; x++ {
				if !m.Bits[m.index(x, y, z)] {
					continue
				}
				keep := true
				for dz := -rz; dz <= rz && keep; dz++ {
					for dy := -ry; dy <= ry && keep; dy++ {
						for dx := -rx; dx <= rx && keep; dx++ {
							if !m.At(x+dx, y+dy, z+dz) {
								keep = false
							}
						}
					}
				}
				if keep {
					out.Bits[out.index(x, y, z)] = true
				}
			}
		}
	}
	return out
}

// Close performs morphological closing (dilate then erode). Used to bridge
// small segmentation gaps along the shaft before component labeling.
func (m *BinaryMask) Close(rx, ry, rz int) *BinaryMask {
	return m.Dilate(rx, ry, rz).Erode(rx, ry, rz)
}

// Intersects reports whether two masks of identical geometry share any
// foreground voxel.
func (m *BinaryMask) Intersects(other *BinaryMask) bool {
	for i, b := range m.Bits {
		if b && other.Bits[i] {
			return true
		}
	}
	return false
}

// Component is one connected component of a binary mask: its label id,
// foreground voxel count and physical-space centroid. Components are
// recomputed every cycle and never persisted.
type Component struct {
	Label    int32
	Pixels   int
	Centroid [3]float64
}

// LabeledComponents holds the per-voxel component labels (0 = background,
// 1..n = components in scan order).
type LabeledComponents struct {
	Geometry
	Labels []int32
}

// Mask extracts the binary mask of a single component.
func (lc *LabeledComponents) Mask(label int32) *BinaryMask {
	m := NewBinaryMask(lc.Geometry)
	for i, l := range lc.Labels {
		if l == label {
			m.Bits[i] = true
		}
	}
	return m
}

// LabelComponents labels the connected components of a mask using
// 26-connectivity (full voxel neighbourhood) and returns their stats sorted
// by voxel count descending, ties broken by label id. Returns (nil, nil) when
// the mask has no foreground voxels. Deterministic and idempotent: label ids
// follow scan order, so identical input yields identical output.
func LabelComponents(mask *BinaryMask) (*LabeledComponents, []Component) {
	lc := &LabeledComponents{
		Geometry: mask.Geometry,
		Labels:   make([]int32, mask.voxelCount()),
	}

	type accum struct {
		pixels int
		sum    [3]float64 // continuous-index sums
	}
	var stats []accum

	next := int32(0)
	var queue [][3]int
	for z := 0; z < mask.Dim[2]; z++ {
		for y := 0; y < mask.Dim[1]; y++ {
			for x := 0; x < mask.Dim[0]; x++ {
				idx := mask.index(x, y, z)
				if !mask.Bits[idx] || lc.Labels[idx] != 0 {
					continue
				}
				next++
				stats = append(stats, accum{})
				a := &stats[next-1]

				// Flood fill the component.
				lc.Labels[idx] = next
				queue = append(queue[:0], [3]int{x, y, z})
				for len(queue) > 0 {
					p := queue[len(queue)-1]
					queue = queue[:len(queue)-1]
					a.pixels++
					a.sum[0] += float64(p[0])
					a.sum[1] += float64(p[1])
					a.sum[2] += float64(p[2])

					for dz := -1; dz <= 1; dz++ {
						for dy := -1; dy <= 1; dy++ {
							for dx := -1; dx <= 1; dx++ {
								if dx == 0 && dy == 0 && dz == 0 {
									continue
								}
								nx, ny, nz := p[0]+dx, p[1]+dy, p[2]+dz
								if !mask.At(nx, ny, nz) {
									continue
								}
								nidx := mask.index(nx, ny, nz)
								if lc.Labels[nidx] != 0 {
									continue
								}
								lc.Labels[nidx] = next
								queue = append(queue, [3]int{nx, ny, nz})
							}
						}
					}
				}
			}
		}
	}

	if next == 0 {
		return nil, nil
	}

	comps := make([]Component, next)
	for i := range comps {
		a := stats[i]
		n := float64(a.pixels)
		comps[i] = Component{
			Label:  int32(i + 1),
			Pixels: a.pixels,
			Centroid: mask.PhysicalPoint(
				a.sum[0]/n, a.sum[1]/n, a.sum[2]/n,
			),
		}
	}
	sort.SliceStable(comps, func(i, j int) bool {
		if comps[i].Pixels != comps[j].Pixels {
			return comps[i].Pixels > comps[j].Pixels
		}
		return comps[i].Label < comps[j].Label
	})
	return lc, comps
}
