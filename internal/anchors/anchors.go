package anchors

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ironsheep/maskrcnn-prep/internal/geometry"
)

// Params describes an anchor pyramid for a model input of
// ImageHeight x ImageWidth.
type Params struct {
	Scales       []float64
	Ratios       []float64
	Strides      []int
	AnchorStride int
	ImageHeight  int
	ImageWidth   int
}

// Set is an immutable ordered sequence of anchors in model input space.
type Set struct {
	boxes []geometry.Box
}

// NewSet copies boxes into a Set.
func NewSet(boxes []geometry.Box) *Set {
	return &Set{boxes: append([]geometry.Box(nil), boxes...)}
}

// Len returns the number of anchors.
func (s *Set) Len() int { return len(s.boxes) }

// At returns anchor i.
func (s *Set) At(i int) geometry.Box { return s.boxes[i] }

// FeatureShape is the (height, width) of one backbone feature map.
type FeatureShape struct {
	Height int
	Width  int
}

// FeatureShapes returns ceil(size / stride) for each stride.
func FeatureShapes(height, width int, strides []int) []FeatureShape {
	shapes := make([]FeatureShape, len(strides))
	for i, s := range strides {
		shapes[i] = FeatureShape{
			Height: int(math.Ceil(float64(height) / float64(s))),
			Width:  int(math.Ceil(float64(width) / float64(s))),
		}
	}
	return shapes
}

// Build generates the pyramid described by p.
func Build(p Params) (*Set, error) {
	if p.ImageHeight <= 0 || p.ImageWidth <= 0 {
		return nil, errors.Errorf("invalid anchor image size %dx%d", p.ImageWidth, p.ImageHeight)
	}
	for _, s := range p.Strides {
		if s <= 0 {
			return nil, errors.Errorf("invalid backbone stride %d", s)
		}
	}
	return Generate(p.Scales, p.Ratios, FeatureShapes(p.ImageHeight, p.ImageWidth, p.Strides), p.Strides, p.AnchorStride)
}

// Generate builds anchors for every pyramid level. scales, shapes and strides
// are parallel, one entry per level.
func Generate(scales, ratios []float64, shapes []FeatureShape, strides []int, anchorStride int) (*Set, error) {
	if len(scales) == 0 || len(ratios) == 0 {
		return nil, errors.New("anchor scales and ratios must not be empty")
	}
	if len(scales) != len(shapes) || len(scales) != len(strides) {
		return nil, errors.Errorf("got %d scales, %d feature shapes and %d strides",
			len(scales), len(shapes), len(strides))
	}
	if anchorStride <= 0 {
		return nil, errors.Errorf("invalid anchor stride %d", anchorStride)
	}
	for _, r := range ratios {
		if r <= 0 {
			return nil, errors.Errorf("invalid anchor ratio %g", r)
		}
	}

	total := 0
	for _, sh := range shapes {
		rows := (sh.Height + anchorStride - 1) / anchorStride
		cols := (sh.Width + anchorStride - 1) / anchorStride
		total += rows * cols * len(ratios)
	}

	boxes := make([]geometry.Box, 0, total)
	for level, scale := range scales {
		if scale <= 0 {
			return nil, errors.Errorf("invalid anchor scale %g", scale)
		}
		heights := make([]float64, len(ratios))
		widths := make([]float64, len(ratios))
		for i, r := range ratios {
			heights[i] = scale / math.Sqrt(r)
			widths[i] = scale * math.Sqrt(r)
		}

		stride := float64(strides[level])
		sh := shapes[level]
		for y := 0; y < sh.Height; y += anchorStride {
			cy := float64(y) * stride
			for x := 0; x < sh.Width; x += anchorStride {
				cx := float64(x) * stride
				for i := range ratios {
					boxes = append(boxes, geometry.NewBox(
						cy-0.5*heights[i], cx-0.5*widths[i],
						cy+0.5*heights[i], cx+0.5*widths[i],
					))
				}
			}
		}
	}
	return &Set{boxes: boxes}, nil
}
