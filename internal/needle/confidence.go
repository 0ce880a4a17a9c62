package needle

// ConfidenceLevel grades how trustworthy a per-cycle tip estimate is, based
// on segmentation geometry alone. The order is total: higher is better, and
// "meets threshold" means numeric value >= the configured minimum.
type ConfidenceLevel int

const (
	ConfidenceNone       ConfidenceLevel = 0
	ConfidenceLow        ConfidenceLevel = 1
	ConfidenceMediumLow  ConfidenceLevel = 2
	ConfidenceMedium     ConfidenceLevel = 3
	ConfidenceMediumHigh ConfidenceLevel = 4
	ConfidenceHigh       ConfidenceLevel = 5
)

// Label returns the human-readable confidence text used on the wire and in
// the session store.
func (c ConfidenceLevel) Label() string {
	switch c {
	case ConfidenceLow:
		return "Low"
	case ConfidenceMediumLow:
		return "Medium Low"
	case ConfidenceMedium:
		return "Medium"
	case ConfidenceMediumHigh:
		return "Medium High"
	case ConfidenceHigh:
		return "High"
	default:
		return "None"
	}
}

func (c ConfidenceLevel) String() string { return c.Label() }

// ClassifierParams are the size gates of the confidence decision table.
type ClassifierParams struct {
	MinTipSize   int
	MinShaftSize int
}

// Classify maps a candidate selection to a confidence grade and the
// representative tip point in image space (nil when there is no detection).
//
// Decision table, first match wins:
//
//	tip     shaft   connected  tip>=min  shaft>=min  confidence   point
//	absent  absent  -          -         -           None         -
//	absent  present -          -         yes         Medium Low   shaft skeleton extremity
//	absent  present -          -         no          Low          shaft skeleton extremity
//	present absent  -          yes       -           Medium       tip centroid
//	present absent  -          no        -           Low          tip centroid
//	present present yes        yes       -           High         tip centroid
//	present present yes        no        yes         Medium High  tip centroid
//	present present yes        no        no          Medium       tip centroid
//	present present no         yes       -           Medium       tip centroid
//	present present no         no        yes         Medium Low   shaft skeleton extremity
//	present present no         no        no          Low          tip centroid
//
// The skeleton extremity is the endpoint of the thinned shaft curve closer
// to the volume's geometric center.
func Classify(sel Selection, params ClassifierParams) (ConfidenceLevel, *[3]float64) {
	if sel.Tip == nil && sel.Shaft == nil {
		return ConfidenceNone, nil
	}

	if sel.Tip == nil {
		point, ok := shaftExtremity(sel.Shaft)
		if !ok {
			return ConfidenceNone, nil
		}
		if sel.Shaft.Component.Pixels >= params.MinShaftSize {
			return ConfidenceMediumLow, &point
		}
		return ConfidenceLow, &point
	}

	tipCenter := sel.Tip.Component.Centroid
	if sel.Shaft == nil {
		if sel.Tip.Component.Pixels >= params.MinTipSize {
			return ConfidenceMedium, &tipCenter
		}
		return ConfidenceLow, &tipCenter
	}

	if sel.Connected {
		switch {
		case sel.Tip.Component.Pixels >= params.MinTipSize:
			return ConfidenceHigh, &tipCenter
		case sel.Shaft.Component.Pixels >= params.MinShaftSize:
			return ConfidenceMediumHigh, &tipCenter
		default:
			return ConfidenceMedium, &tipCenter
		}
	}

	switch {
	case sel.Tip.Component.Pixels >= params.MinTipSize:
		return ConfidenceMedium, &tipCenter
	case sel.Shaft.Component.Pixels >= params.MinShaftSize:
		point, ok := shaftExtremity(sel.Shaft)
		if !ok {
			return ConfidenceLow, &tipCenter
		}
		return ConfidenceMediumLow, &point
	default:
		return ConfidenceLow, &tipCenter
	}
}

func shaftExtremity(shaft *Candidate) ([3]float64, bool) {
	return SkeletonExtremity(Thin(shaft.Mask))
}
