package masks

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ironsheep/maskrcnn-prep/internal/geometry"
)

// binarizeLevel is the gray level at or above which a minimized mask pixel
// is foreground.
const binarizeLevel = 128

// ResizeMasks scales each mask by scale with linear interpolation and pads it
// with zeros, exactly as geometry.ResizeImage does for the image. The inputs
// are left untouched.
func ResizeMasks(masks []*image.Gray, scale float64, padding geometry.Padding) []*image.Gray {
	out := make([]*image.Gray, 0, len(masks))
	for _, m := range masks {
		b := m.Bounds()
		var resized *image.NRGBA
		if scale != 1 {
			w := max(1, int(math.Round(float64(b.Dx())*scale)))
			h := max(1, int(math.Round(float64(b.Dy())*scale)))
			resized = imaging.Resize(m, w, h, imaging.Linear)
		} else {
			resized = imaging.Clone(m)
		}

		rb := resized.Bounds()
		canvas := imaging.New(
			rb.Dx()+padding.Left+padding.Right,
			rb.Dy()+padding.Top+padding.Bottom,
			color.Black,
		)
		out = append(out, toGray(imaging.Paste(canvas, resized, image.Pt(padding.Left, padding.Top))))
	}
	return out
}

// MinimizeMasks crops each mask to its box, resizes the crop to
// width x height and binarizes it. A box that does not overlap its mask falls
// back to the whole mask and is logged as a warning.
func MinimizeMasks(
	boxes []geometry.Box,
	masks []*image.Gray,
	width, height int,
	logger *zap.SugaredLogger,
) ([]*image.Gray, error) {
	if len(boxes) != len(masks) {
		return nil, errors.Errorf("got %d boxes for %d masks", len(boxes), len(masks))
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid mini mask size %dx%d", width, height)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	out := make([]*image.Gray, 0, len(masks))
	for i, m := range masks {
		crop := boxes[i].Rect().Intersect(m.Bounds())
		var src image.Image = m
		if crop.Empty() {
			logger.Warnw("empty mask crop, using full mask",
				"instance", i, "box", boxes[i].String(), "mask_bounds", m.Bounds().String())
		} else {
			src = imaging.Crop(m, crop)
		}
		resized := toGray(imaging.Resize(src, width, height, imaging.Linear))
		out = append(out, segment.Threshold(resized, binarizeLevel))
	}
	return out, nil
}

// Binarize maps every non-zero pixel to 255.
func Binarize(m *image.Gray) *image.Gray {
	out := image.NewGray(m.Bounds())
	for y := 0; y < m.Bounds().Dy(); y++ {
		src := m.Pix[y*m.Stride : y*m.Stride+m.Bounds().Dx()]
		dst := out.Pix[y*out.Stride : y*out.Stride+out.Bounds().Dx()]
		for x, v := range src {
			if v != 0 {
				dst[x] = 255
			}
		}
	}
	return out
}

// toGray keeps the red channel of an NRGBA produced from a gray source.
func toGray(img *image.NRGBA) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			out.Pix[y*out.Stride+x] = row[x*4]
		}
	}
	return out
}
