package boxcodec

import (
	"math"

	"github.com/ironsheep/maskrcnn-prep/internal/geometry"
)

// Delta is a regression target (dy, dx, dlogh, dlogw).
type Delta [4]float64

// Encode returns the delta that refines anchor into gt. The anchor must have
// positive height and width.
func Encode(anchor, gt geometry.Box) Delta {
	ah, aw := anchor.Height(), anchor.Width()
	acy, acx := anchor.Center()
	gcy, gcx := gt.Center()
	return Delta{
		(gcy - acy) / ah,
		(gcx - acx) / aw,
		math.Log(gt.Height() / ah),
		math.Log(gt.Width() / aw),
	}
}

// Decode applies d to anchor. It is the inverse of Encode.
func Decode(anchor geometry.Box, d Delta) geometry.Box {
	ah, aw := anchor.Height(), anchor.Width()
	acy, acx := anchor.Center()
	cy := acy + d[0]*ah
	cx := acx + d[1]*aw
	h := ah * math.Exp(d[2])
	w := aw * math.Exp(d[3])
	y1, x1 := cy-0.5*h, cx-0.5*w
	return geometry.NewBox(y1, x1, y1+h, x1+w)
}

// Normalize divides each component by the matching standard deviation.
func (d Delta) Normalize(stdDev [4]float64) Delta {
	for i := range d {
		d[i] /= stdDev[i]
	}
	return d
}

// Denormalize multiplies each component by the matching standard deviation.
func (d Delta) Denormalize(stdDev [4]float64) Delta {
	for i := range d {
		d[i] *= stdDev[i]
	}
	return d
}
