package rpn

import (
	"math/rand/v2"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorgonia.org/tensor"

	"github.com/ironsheep/maskrcnn-prep/internal/boxcodec"
	"github.com/ironsheep/maskrcnn-prep/internal/geometry"
	"github.com/ironsheep/maskrcnn-prep/internal/overlap"
)

// Label is the training role of one anchor.
type Label int8

// Anchor labels, encoded as the network expects them.
const (
	Negative Label = -1
	Neutral  Label = 0
	Positive Label = 1
)

func (l Label) String() string {
	switch l {
	case Negative:
		return "negative"
	case Positive:
		return "positive"
	default:
		return "neutral"
	}
}

// Params configures target assignment.
type Params struct {
	// IoULow is the best-IoU below which an anchor is negative.
	IoULow float64
	// IoUHigh is the best-IoU at or above which an anchor is positive.
	IoUHigh float64
	// AnchorsPerImage is the per-image budget of labeled anchors.
	AnchorsPerImage int
	// StdDev normalizes each regression component.
	StdDev [4]float64
}

func (p Params) validate() error {
	if p.AnchorsPerImage < 2 {
		return errors.Errorf("anchors per image must be at least 2, got %d", p.AnchorsPerImage)
	}
	if p.IoULow > p.IoUHigh {
		return errors.Errorf("low IoU threshold %g above high threshold %g", p.IoULow, p.IoUHigh)
	}
	if p.IoUHigh <= 0 {
		return errors.Errorf("high IoU threshold must be positive, got %g", p.IoUHigh)
	}
	for i, s := range p.StdDev {
		if s <= 0 {
			return errors.Errorf("std dev component %d must be positive, got %g", i, s)
		}
	}
	return nil
}

// Targets holds the RPN supervision for one sample.
type Targets struct {
	// Match has one label per anchor.
	Match []Label
	// BBox is a float32 tensor of shape [AnchorsPerImage, 4]. Row k holds the
	// normalized delta of the k-th positive anchor in index order; the rest
	// is zero.
	BBox *tensor.Dense

	Positives int
	Negatives int
}

// BuildRpnTargets labels every anchor against the ground-truth boxes and
// computes regression targets for the positives. An empty gt set yields only
// negatives.
func BuildRpnTargets(anchors, gt geometry.BoxList, p Params, rng *rand.Rand) (*Targets, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.New("a random source is required")
	}

	n, m := anchors.Len(), gt.Len()
	overlaps := overlap.ComputeOverlaps(anchors, gt)

	match := make([]Label, n)
	argmax := make([]int, n)
	iouMax := make([]float64, n)
	for i := range match {
		argmax[i], iouMax[i] = overlaps.RowMax(i)
		if iouMax[i] < p.IoULow {
			match[i] = Negative
		}
	}

	forced := make([]bool, n)
	if n > 0 {
		for j := 0; j < m; j++ {
			i := overlaps.ColArgmax(j)
			match[i] = Positive
			forced[i] = true
		}
	}

	if m > 0 {
		for i := range match {
			if iouMax[i] >= p.IoUHigh {
				match[i] = Positive
			}
		}
	}

	positives := indicesOf(match, Positive)
	if extra := len(positives) - p.AnchorsPerImage/2; extra > 0 {
		kept, free := lo.FilterReject(positives, func(i int, _ int) bool { return forced[i] })
		if extra <= len(free) {
			resetRandom(match, free, extra, rng)
		} else {
			resetRandom(match, free, len(free), rng)
			resetRandom(match, kept, extra-len(free), rng)
		}
	}

	numPositive := lo.Count(match, Positive)
	negatives := indicesOf(match, Negative)
	if extra := len(negatives) - (p.AnchorsPerImage - numPositive); extra > 0 {
		resetRandom(match, negatives, extra, rng)
	}

	data := make([]float32, p.AnchorsPerImage*4)
	k := 0
	for i, l := range match {
		if l != Positive {
			continue
		}
		d := boxcodec.Encode(anchors.At(i), gt.At(argmax[i])).Normalize(p.StdDev)
		for c, v := range d {
			data[k*4+c] = float32(v)
		}
		k++
	}

	return &Targets{
		Match:     match,
		BBox:      tensor.New(tensor.WithShape(p.AnchorsPerImage, 4), tensor.WithBacking(data)),
		Positives: numPositive,
		Negatives: lo.Count(match, Negative),
	}, nil
}

// Delta returns row k of the regression targets.
func (t *Targets) Delta(k int) boxcodec.Delta {
	data := t.BBox.Data().([]float32)
	var d boxcodec.Delta
	for c := range d {
		d[c] = float64(data[k*4+c])
	}
	return d
}

func indicesOf(match []Label, want Label) []int {
	ids := make([]int, 0)
	for i, l := range match {
		if l == want {
			ids = append(ids, i)
		}
	}
	return ids
}

// resetRandom sets count uniformly chosen entries of ids to Neutral.
func resetRandom(match []Label, ids []int, count int, rng *rand.Rand) {
	if count <= 0 {
		return
	}
	for _, k := range rng.Perm(len(ids))[:count] {
		match[ids[k]] = Neutral
	}
}
