package needle

// Candidate is a component under consideration together with its own binary
// mask (needed for adjacency tests and skeletonization).
type Candidate struct {
	Component Component
	Mask      *BinaryMask
}

// Selection is the per-plane outcome of candidate selection: the chosen tip
// and shaft components (either may be nil) and whether they are adjacent.
type Selection struct {
	Tip       *Candidate
	Shaft     *Candidate
	Connected bool
}

// SelectorParams controls candidate selection.
type SelectorParams struct {
	// AdjacencyDistance is the dilation radius (voxels) for the adjacency
	// test between tip and shaft masks.
	AdjacencyDistance int
	// MinTipSize and MinShaftSize gate whether a second-best component is
	// retained as a fallback candidate.
	MinTipSize   int
	MinShaftSize int
}

// Adjacent reports whether the tip and shaft masks touch within distance
// voxels: the tip is dilated by a box of that radius and tested for overlap
// with the shaft.
func Adjacent(tip, shaft *BinaryMask, distance int) bool {
	if tip == nil || shaft == nil {
		return false
	}
	return tip.Dilate(distance, distance, distance).Intersects(shaft)
}

// SelectCandidates picks the best tip/shaft pair from the labeled components
// of each class. tip1/shaft1 are the largest components; a second candidate
// is retained only if it clears the corresponding minimum-size threshold.
//
// When tip1 and shaft1 are not adjacent, fallback pairs are tried tip-first
// in a fixed precedence order: (tip1,shaft2), (tip2,shaft1), (tip2,shaft2).
// The first adjacent pair wins; if none is adjacent the selection stays
// (tip1,shaft1) with Connected=false. No adjacency test is performed when
// only one of the two classes is present.
func SelectCandidates(tipLabels *LabeledComponents, tips []Component, shaftLabels *LabeledComponents, shafts []Component, params SelectorParams) Selection {
	var sel Selection

	var tip2, shaft2 *Candidate
	if len(tips) > 0 {
		sel.Tip = &Candidate{Component: tips[0], Mask: tipLabels.Mask(tips[0].Label)}
		if len(tips) > 1 && tips[1].Pixels >= params.MinTipSize {
			tip2 = &Candidate{Component: tips[1], Mask: tipLabels.Mask(tips[1].Label)}
		}
	}
	if len(shafts) > 0 {
		sel.Shaft = &Candidate{Component: shafts[0], Mask: shaftLabels.Mask(shafts[0].Label)}
		if len(shafts) > 1 && shafts[1].Pixels >= params.MinShaftSize {
			shaft2 = &Candidate{Component: shafts[1], Mask: shaftLabels.Mask(shafts[1].Label)}
		}
	}

	if sel.Tip == nil || sel.Shaft == nil {
		return sel
	}

	d := params.AdjacencyDistance
	if Adjacent(sel.Tip.Mask, sel.Shaft.Mask, d) {
		sel.Connected = true
		return sel
	}
	if shaft2 != nil && Adjacent(sel.Tip.Mask, shaft2.Mask, d) {
		sel.Shaft = shaft2
		sel.Connected = true
		return sel
	}
	if tip2 != nil && Adjacent(tip2.Mask, sel.Shaft.Mask, d) {
		sel.Tip = tip2
		sel.Connected = true
		return sel
	}
	if tip2 != nil && shaft2 != nil && Adjacent(tip2.Mask, shaft2.Mask, d) {
		sel.Tip = tip2
		sel.Shaft = shaft2
		sel.Connected = true
		return sel
	}
	return sel
}
