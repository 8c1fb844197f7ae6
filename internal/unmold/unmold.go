package unmold

import (
	"image"
	"image/color"
	"math"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorgonia.org/tensor"

	"github.com/ironsheep/maskrcnn-prep/internal/geometry"
)

// Detection is one detector output in original image coordinates.
type Detection struct {
	// Row is the index of the detection in the raw output.
	Row int `json:"row"`
	// Box has integral corners in original image pixels.
	Box     geometry.Box `json:"box"`
	ClassID int          `json:"class_id"`
	Score   float64      `json:"score"`
	// Mask has the size of the original image; foreground pixels are 255.
	Mask *image.Gray `json:"-"`
}

// UnmoldDetections converts the detections of one image. The image is
// imageHeight x imageWidth and window is the content window it was molded
// into. Mask probabilities strictly above threshold become foreground.
func UnmoldDetections(
	detections, masks *tensor.Dense,
	imageHeight, imageWidth int,
	window geometry.Window,
	threshold float64,
	logger *zap.SugaredLogger,
) ([]Detection, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if imageHeight <= 0 || imageWidth <= 0 {
		return nil, errors.Errorf("invalid image size %dx%d", imageWidth, imageHeight)
	}
	if window.Height() <= 0 || window.Width() <= 0 {
		return nil, errors.Errorf("empty window %+v", window)
	}

	rows, err := float32Data(detections, 2, "detections")
	if err != nil {
		return nil, err
	}
	probs, err := float32Data(masks, 4, "masks")
	if err != nil {
		return nil, err
	}
	dShape, mShape := detections.Shape(), masks.Shape()
	if dShape[1] != 6 {
		return nil, errors.Errorf("detections must have 6 columns, got %d", dShape[1])
	}
	if dShape[0] != mShape[0] {
		return nil, errors.Errorf("%d detections but %d masks", dShape[0], mShape[0])
	}
	k, mh, mw, numClasses := mShape[0], mShape[1], mShape[2], mShape[3]

	classIDs := make([]int, k)
	for i := range classIDs {
		classIDs[i] = int(rows[i*6+4])
	}
	_, n, found := lo.FindIndexOf(classIDs, func(id int) bool { return id == 0 })
	if !found {
		n = k
	}

	scale := math.Min(
		float64(imageHeight)/float64(window.Height()),
		float64(imageWidth)/float64(window.Width()),
	)
	oy, ox := float64(window.Y1), float64(window.X1)

	out := make([]Detection, 0, n)
	for i := 0; i < n; i++ {
		row := rows[i*6 : i*6+6]
		box := geometry.NewBox(
			math.Trunc((float64(row[0])-oy)*scale),
			math.Trunc((float64(row[1])-ox)*scale),
			math.Trunc((float64(row[2])-oy)*scale),
			math.Trunc((float64(row[3])-ox)*scale),
		)
		if !box.Valid() {
			logger.Debugw("dropping detection with empty box", "index", i, "box", box.String())
			continue
		}
		classID := classIDs[i]
		if classID < 0 || classID >= numClasses {
			return nil, errors.Errorf("detection %d has class %d outside %d mask channels", i, classID, numClasses)
		}

		prob := ProbabilityMap(probs[i*mh*mw*numClasses:(i+1)*mh*mw*numClasses], mh, mw, numClasses, classID)
		mask := UnmoldMask(prob, box.Rect(), imageWidth, imageHeight, threshold)
		if empty(mask) {
			logger.Warnw("empty mask detected", "index", i, "class_id", classID)
		}
		out = append(out, Detection{
			Row:     i,
			Box:     box,
			ClassID: classID,
			Score:   float64(row[5]),
			Mask:    mask,
		})
	}
	return out, nil
}

// ProbabilityMap extracts channel c of an [h,w,channels] probability block
// as a 16-bit gray image, 0 mapping to 0 and 1 to 0xffff.
func ProbabilityMap(block []float32, h, w, channels, c int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := math.Max(0, math.Min(1, float64(block[(y*w+x)*channels+c])))
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(p * 0xffff))})
		}
	}
	return img
}

// UnmoldMask resizes a probability map to box, thresholds it and pastes it
// into a zero canvas of imageWidth x imageHeight. Parts of box outside the
// canvas are clipped; only the part of prob that lands on the canvas is
// resized.
func UnmoldMask(prob *image.Gray16, box image.Rectangle, imageWidth, imageHeight int, threshold float64) *image.Gray {
	canvas := image.NewGray(image.Rect(0, 0, imageWidth, imageHeight))
	visible := box.Intersect(canvas.Bounds())
	if box.Empty() || visible.Empty() {
		return canvas
	}

	src := visibleSource(prob.Bounds(), box, visible)
	resized := resize.Resize(uint(visible.Dx()), uint(visible.Dy()), cropGray16(prob, src), resize.Bilinear)
	rb := resized.Bounds()
	for y := visible.Min.Y; y < visible.Max.Y; y++ {
		for x := visible.Min.X; x < visible.Max.X; x++ {
			v := color.Gray16Model.Convert(resized.At(rb.Min.X+x-visible.Min.X, rb.Min.Y+y-visible.Min.Y)).(color.Gray16)
			if float64(v.Y)/0xffff > threshold {
				canvas.Pix[y*canvas.Stride+x] = 255
			}
		}
	}
	return canvas
}

// visibleSource maps the visible part of box back onto the probability map
// bounds pb, rounding outwards. A fully visible box maps to all of pb.
func visibleSource(pb, box, visible image.Rectangle) image.Rectangle {
	sx := float64(pb.Dx()) / float64(box.Dx())
	sy := float64(pb.Dy()) / float64(box.Dy())
	return image.Rect(
		pb.Min.X+int(math.Floor(float64(visible.Min.X-box.Min.X)*sx)),
		pb.Min.Y+int(math.Floor(float64(visible.Min.Y-box.Min.Y)*sy)),
		pb.Min.X+int(math.Ceil(float64(visible.Max.X-box.Min.X)*sx)),
		pb.Min.Y+int(math.Ceil(float64(visible.Max.Y-box.Min.Y)*sy)),
	).Intersect(pb)
}

// cropGray16 copies r out of m into an image anchored at the origin.
func cropGray16(m *image.Gray16, r image.Rectangle) *image.Gray16 {
	if r == m.Bounds() && r.Min == (image.Point{}) {
		return m
	}
	out := image.NewGray16(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+2*r.Dx()], m.Pix[m.PixOffset(r.Min.X, r.Min.Y+y):])
	}
	return out
}

func float32Data(t *tensor.Dense, dims int, name string) ([]float32, error) {
	if t == nil {
		return nil, errors.Errorf("%s tensor is nil", name)
	}
	if t.Dims() != dims {
		return nil, errors.Errorf("%s tensor must have %d dimensions, got shape %v", name, dims, t.Shape())
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("%s tensor must be float32, got %v", name, t.Dtype())
	}
	return data, nil
}

func empty(m *image.Gray) bool {
	return !lo.Contains(m.Pix, 255)
}
