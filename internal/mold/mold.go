package mold

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/ironsheep/maskrcnn-prep/internal/geometry"
)

// Params controls how images are molded.
type Params struct {
	MinDim    int
	MaxDim    int
	Pad       bool
	MeanPixel [3]float64
}

// ImageMeta describes how one molded image relates to its source.
type ImageMeta struct {
	ImageID        int             `json:"image_id"`
	OriginalHeight int             `json:"original_height"`
	OriginalWidth  int             `json:"original_width"`
	Window         geometry.Window `json:"window"`
	Scale          float64         `json:"scale"`
}

// Vector flattens the meta into the float layout fed next to the image:
// id, original height, original width, then the window corners.
func (m ImageMeta) Vector() []float32 {
	return []float32{
		float32(m.ImageID),
		float32(m.OriginalHeight),
		float32(m.OriginalWidth),
		float32(m.Window.Y1),
		float32(m.Window.X1),
		float32(m.Window.Y2),
		float32(m.Window.X2),
	}
}

// Batch is the output of MoldInputs. All slices are parallel.
type Batch struct {
	Images  []*tensor.Dense
	Metas   []ImageMeta
	Windows []geometry.Window
}

// MeanFromColor converts a color to a mean pixel on the 0-255 scale.
func MeanFromColor(c colorful.Color) [3]float64 {
	return [3]float64{c.R * 255, c.G * 255, c.B * 255}
}

// MoldImage subtracts meanPixel from every pixel of img and returns a float32
// tensor of shape [3, H, W]. Gray images are replicated across the three
// channels and alpha is dropped.
func MoldImage(img image.Image, meanPixel [3]float64) (*tensor.Dense, error) {
	if _, err := geometry.ChannelCount(img); err != nil {
		return nil, err
	}
	src, ok := img.(*image.NRGBA)
	if !ok || src.Bounds().Min != (image.Point{}) {
		src = imaging.Clone(img)
	}

	b := src.Bounds()
	h, w := b.Dy(), b.Dx()
	plane := h * w
	data := make([]float32, 3*plane)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3]
			for c := 0; c < 3; c++ {
				data[c*plane+y*w+x] = float32(float64(p[c]) - meanPixel[c])
			}
		}
	}
	return tensor.New(tensor.WithShape(3, h, w), tensor.WithBacking(data)), nil
}

// MoldInputs resizes and molds each image. The meta of image i has ImageID i.
func MoldInputs(images []image.Image, p Params) (*Batch, error) {
	batch := &Batch{
		Images:  make([]*tensor.Dense, 0, len(images)),
		Metas:   make([]ImageMeta, 0, len(images)),
		Windows: make([]geometry.Window, 0, len(images)),
	}
	for i, img := range images {
		resized, t, err := geometry.ResizeImage(img, p.MinDim, p.MaxDim, p.Pad)
		if err != nil {
			return nil, errors.Wrapf(err, "image %d", i)
		}
		molded, err := MoldImage(resized, p.MeanPixel)
		if err != nil {
			return nil, errors.Wrapf(err, "image %d", i)
		}
		batch.Images = append(batch.Images, molded)
		batch.Metas = append(batch.Metas, ImageMeta{
			ImageID:        i,
			OriginalHeight: t.SourceHeight,
			OriginalWidth:  t.SourceWidth,
			Window:         t.Window,
			Scale:          t.Scale,
		})
		batch.Windows = append(batch.Windows, t.Window)
	}
	return batch, nil
}
