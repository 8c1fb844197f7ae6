package geometry

import (
	"math"

	"github.com/pkg/errors"
)

// Transform is the forward mapping from an original image of
// SourceHeight x SourceWidth to model input space.
type Transform struct {
	SourceHeight int `json:"source_height"`
	SourceWidth  int `json:"source_width"`

	// Height and Width are the size of the resized content before padding.
	Height int `json:"height"`
	Width  int `json:"width"`

	Scale   float64 `json:"scale"`
	Padding Padding `json:"padding"`
	Window  Window  `json:"window"`
}

// ComputeTransform computes the scale, padding and window for an image of
// h x w.
//
// The image is scaled up so its short side reaches minDim (never down), then
// scaled down if its long side would exceed maxDim. A zero minDim disables
// upscaling and a zero maxDim disables the clamp. With pad set, the content is
// centered on a maxDim x maxDim canvas; odd leftover pixels go to the
// bottom/right.
func ComputeTransform(h, w, minDim, maxDim int, pad bool) (Transform, error) {
	if h <= 0 || w <= 0 {
		return Transform{}, errors.Errorf("invalid source size %dx%d", w, h)
	}
	if minDim < 0 || maxDim < 0 {
		return Transform{}, errors.Errorf("negative dimension constraint: min=%d max=%d", minDim, maxDim)
	}
	if pad && maxDim == 0 {
		return Transform{}, errors.New("padding requires a positive max dimension")
	}

	scale := 1.0
	if minDim > 0 {
		scale = math.Max(1, float64(minDim)/float64(min(h, w)))
	}
	if maxDim > 0 {
		imageMax := float64(max(h, w))
		if math.Round(imageMax*scale) > float64(maxDim) {
			scale = float64(maxDim) / imageMax
		}
	}

	t := Transform{
		SourceHeight: h,
		SourceWidth:  w,
		Height:       h,
		Width:        w,
		Scale:        scale,
	}
	if scale != 1 {
		t.Height = int(math.Round(float64(h) * scale))
		t.Width = int(math.Round(float64(w) * scale))
	}
	t.Window = Window{Y1: 0, X1: 0, Y2: t.Height, X2: t.Width}

	if pad {
		top := (maxDim - t.Height) / 2
		left := (maxDim - t.Width) / 2
		t.Padding = Padding{
			Top:    top,
			Bottom: maxDim - t.Height - top,
			Left:   left,
			Right:  maxDim - t.Width - left,
		}
		t.Window = Window{Y1: top, X1: left, Y2: t.Height + top, X2: t.Width + left}
	}
	return t, nil
}

// CanvasSize returns the size of the output canvas, padding included.
func (t Transform) CanvasSize() (int, int) {
	return t.Height + t.Padding.Top + t.Padding.Bottom, t.Width + t.Padding.Left + t.Padding.Right
}

// MapBox maps a box from original image space to model input space. Corners
// are rounded up after scaling, then shifted by the padding.
func (t Transform) MapBox(b Box) Box {
	top, left := float64(t.Padding.Top), float64(t.Padding.Left)
	return Box{
		Y1: top + math.Ceil(b.Y1*t.Scale),
		X1: left + math.Ceil(b.X1*t.Scale),
		Y2: top + math.Ceil(b.Y2*t.Scale),
		X2: left + math.Ceil(b.X2*t.Scale),
	}
}
