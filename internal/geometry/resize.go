package geometry

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ErrUnsupportedImageFormat is returned for images whose channel layout the
// pipeline cannot mold into a 3-channel input.
var ErrUnsupportedImageFormat = errors.New("unsupported image format")

// ChannelCount reports the number of color channels of img. Single channel
// images are replicated to RGB downstream and alpha is discarded.
func ChannelCount(img image.Image) (int, error) {
	if img == nil {
		return 0, errors.Wrap(ErrUnsupportedImageFormat, "nil image")
	}
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1, nil
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64,
		*image.YCbCr, *image.Paletted:
		return 3, nil
	case *image.NYCbCrA, *image.CMYK:
		return 4, nil
	default:
		return 0, errors.Wrapf(ErrUnsupportedImageFormat, "%T", img)
	}
}

// ResizeImage resizes img with linear interpolation and, when pad is set,
// pads it with black to a maxDim x maxDim canvas. It returns the new image
// together with the transform that produced it. img is not modified.
func ResizeImage(img image.Image, minDim, maxDim int, pad bool) (*image.NRGBA, Transform, error) {
	if _, err := ChannelCount(img); err != nil {
		return nil, Transform{}, err
	}
	b := img.Bounds()
	t, err := ComputeTransform(b.Dy(), b.Dx(), minDim, maxDim, pad)
	if err != nil {
		return nil, Transform{}, err
	}

	var resized *image.NRGBA
	if t.Scale != 1 {
		resized = imaging.Resize(img, t.Width, t.Height, imaging.Linear)
	} else {
		resized = imaging.Clone(img)
	}
	if !pad {
		return resized, t, nil
	}

	h, w := t.CanvasSize()
	canvas := imaging.New(w, h, color.Black)
	return imaging.Paste(canvas, resized, image.Pt(t.Padding.Left, t.Padding.Top)), t, nil
}
