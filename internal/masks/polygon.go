package masks

import (
	"image"
	"image/draw"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/image/vector"

	"github.com/ironsheep/maskrcnn-prep/internal/geometry"
)

// ErrMalformedPolygon is returned for polygons that cannot describe an
// instance: an odd coordinate count, fewer than three vertices, or a contour
// with no area.
var ErrMalformedPolygon = errors.New("malformed polygon")

// coverageThreshold is the minimum anti-aliased coverage for a pixel to count
// as inside the polygon.
const coverageThreshold = 128

// ConvertPolygonToMask fills one closed polygon, given as flat (x, y) pairs,
// with 255 on a zero canvas of size.
func ConvertPolygonToMask(polygon []int, size image.Point) (*image.Gray, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, errors.Errorf("invalid mask size %v", size)
	}
	if err := validatePolygon(polygon); err != nil {
		return nil, err
	}

	r := vector.NewRasterizer(size.X, size.Y)
	r.DrawOp = draw.Src
	r.MoveTo(float32(polygon[0]), float32(polygon[1]))
	for i := 2; i < len(polygon); i += 2 {
		r.LineTo(float32(polygon[i]), float32(polygon[i+1]))
	}
	r.ClosePath()

	coverage := image.NewAlpha(image.Rect(0, 0, size.X, size.Y))
	r.Draw(coverage, coverage.Bounds(), image.Opaque, image.Point{})

	mask := image.NewGray(coverage.Bounds())
	filled := false
	for i, a := range coverage.Pix {
		if a >= coverageThreshold {
			mask.Pix[i] = 255
			filled = true
		}
	}
	if !filled {
		return nil, errors.Wrap(ErrMalformedPolygon, "contour covers no pixels")
	}
	return mask, nil
}

// PolygonBounds returns the tight box around the polygon's vertices.
func PolygonBounds(polygon []int) (geometry.Box, error) {
	if err := validatePolygon(polygon); err != nil {
		return geometry.Box{}, err
	}
	x1, y1 := math.Inf(1), math.Inf(1)
	x2, y2 := math.Inf(-1), math.Inf(-1)
	for i := 0; i < len(polygon); i += 2 {
		x, y := float64(polygon[i]), float64(polygon[i+1])
		x1, x2 = math.Min(x1, x), math.Max(x2, x)
		y1, y2 = math.Min(y1, y), math.Max(y2, y)
	}
	box := geometry.NewBox(y1, x1, y2, x2)
	if !box.Valid() {
		return geometry.Box{}, errors.Wrapf(ErrMalformedPolygon, "zero-area bounds %v", box)
	}
	return box, nil
}

func validatePolygon(polygon []int) error {
	if len(polygon)%2 != 0 {
		return errors.Wrapf(ErrMalformedPolygon, "odd coordinate count %d", len(polygon))
	}
	if len(polygon) < 6 {
		return errors.Wrapf(ErrMalformedPolygon, "%d vertices, need at least 3", len(polygon)/2)
	}
	return nil
}
