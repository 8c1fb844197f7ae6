package mold

import (
	"image"
	"image/color"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/maskrcnn-prep/internal/geometry"
)

func createInMemoryImage(width, height int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestMoldImage_SubtractsMeanChannelFirst(t *testing.T) {
	img := createInMemoryImage(3, 2, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	img.Set(2, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	molded, err := MoldImage(img, [3]float64{100, 50, 25})
	require.NoError(t, err)
	require.Equal(t, []int{3, 2, 3}, []int(molded.Shape()))

	v, err := molded.At(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, float32(100), v)
	v, _ = molded.At(1, 0, 1)
	assert.Equal(t, float32(50), v)
	v, _ = molded.At(2, 1, 2)
	assert.Equal(t, float32(5), v)
	v, _ = molded.At(0, 1, 2)
	assert.Equal(t, float32(-90), v)
}

func TestMoldImage_GrayIsReplicated(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(1, 1, color.Gray{Y: 77})

	molded, err := MoldImage(img, [3]float64{})
	require.NoError(t, err)
	for c := 0; c < 3; c++ {
		v, err := molded.At(c, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, float32(77), v)
	}
}

func TestMoldImage_OffsetBounds(t *testing.T) {
	img := createInMemoryImage(4, 4, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	sub := img.SubImage(image.Rect(1, 1, 3, 4))

	molded, err := MoldImage(sub, [3]float64{})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 2}, []int(molded.Shape()))
}

func TestMoldImage_Unsupported(t *testing.T) {
	_, err := MoldImage(image.NewAlpha(image.Rect(0, 0, 2, 2)), [3]float64{})
	require.ErrorIs(t, err, geometry.ErrUnsupportedImageFormat)
}

func TestMoldInputs_WorkedScenario(t *testing.T) {
	images := []image.Image{
		createInMemoryImage(800, 600, color.NRGBA{R: 50, G: 60, B: 70, A: 255}),
		createInMemoryImage(64, 64, color.NRGBA{A: 255}),
	}
	p := Params{MinDim: 800, MaxDim: 1024, Pad: true, MeanPixel: [3]float64{50, 60, 70}}

	batch, err := MoldInputs(images, p)
	require.NoError(t, err)
	require.Len(t, batch.Images, 2)
	require.Len(t, batch.Metas, 2)
	require.Len(t, batch.Windows, 2)

	assert.Equal(t, []int{3, 1024, 1024}, []int(batch.Images[0].Shape()))
	assert.Equal(t, geometry.Window{Y1: 128, X1: 0, Y2: 896, X2: 1024}, batch.Windows[0])
	assert.Equal(t, ImageMeta{
		ImageID:        0,
		OriginalHeight: 600,
		OriginalWidth:  800,
		Window:         geometry.Window{Y1: 128, X1: 0, Y2: 896, X2: 1024},
		Scale:          1.28,
	}, batch.Metas[0])

	// padding is black, so it molds to minus the mean
	v, err := batch.Images[0].At(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, float32(-50), v)
	// content cancels the mean exactly
	v, _ = batch.Images[0].At(2, 500, 500)
	assert.Equal(t, float32(0), v)

	assert.Equal(t, 1, batch.Metas[1].ImageID)
	assert.Equal(t, 12.5, batch.Metas[1].Scale)
}

func TestMoldInputs_PropagatesErrors(t *testing.T) {
	images := []image.Image{image.NewAlpha(image.Rect(0, 0, 4, 4))}
	_, err := MoldInputs(images, Params{MinDim: 8, MaxDim: 16, Pad: true})
	require.ErrorIs(t, err, geometry.ErrUnsupportedImageFormat)
}

func TestImageMeta_Vector(t *testing.T) {
	m := ImageMeta{ImageID: 3, OriginalHeight: 600, OriginalWidth: 800,
		Window: geometry.Window{Y1: 128, X1: 0, Y2: 896, X2: 1024}, Scale: 1.28}
	assert.Equal(t, []float32{3, 600, 800, 128, 0, 896, 1024}, m.Vector())
}

func TestMeanFromColor(t *testing.T) {
	c, err := colorful.Hex("#ff8000")
	require.NoError(t, err)
	mean := MeanFromColor(c)
	assert.InDelta(t, 255, mean[0], 1e-9)
	assert.InDelta(t, 128, mean[1], 1e-9)
	assert.InDelta(t, 0, mean[2], 1e-9)
}
