package sample

import (
	"context"
	"image"
	"math/rand/v2"
	"runtime"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorgonia.org/tensor"

	"github.com/ironsheep/maskrcnn-prep/internal/anchors"
	"github.com/ironsheep/maskrcnn-prep/internal/config"
	"github.com/ironsheep/maskrcnn-prep/internal/dataset"
	"github.com/ironsheep/maskrcnn-prep/internal/geometry"
	"github.com/ironsheep/maskrcnn-prep/internal/masks"
	"github.com/ironsheep/maskrcnn-prep/internal/mold"
	"github.com/ironsheep/maskrcnn-prep/internal/rpn"
)

// ErrNoInstances is returned for images left without any usable instance.
var ErrNoInstances = errors.New("no ground-truth instances")

// Sample is one prepared training example.
type Sample struct {
	Index     int
	Reference string

	// Image is the molded [3, H, W] float32 input.
	Image     *tensor.Dense
	Meta      mold.ImageMeta
	Transform geometry.Transform

	RPN *rpn.Targets

	// GTBoxes are in model input space. GTBoxes, GTClassIDs and GTMasks
	// are parallel.
	GTBoxes    []geometry.Box
	GTClassIDs []int
	// GTMasks are binary (0 or 255). They are MaskEncodingSize square when
	// mask minimization is on, canvas-sized otherwise.
	GTMasks []*image.Gray
}

// Builder prepares samples. It is safe for concurrent use.
type Builder struct {
	cfg     *config.Config
	anchors *anchors.Set
	logger  *zap.SugaredLogger
}

// NewBuilder validates cfg and returns a Builder. When anchorSet is nil the
// anchors are generated from cfg.
func NewBuilder(cfg *config.Config, anchorSet *anchors.Set, logger *zap.SugaredLogger) (*Builder, error) {
	if cfg == nil {
		return nil, errors.Wrap(config.ErrInvalidConfig, "nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if anchorSet == nil {
		var err error
		if anchorSet, err = anchors.Build(cfg.AnchorParams()); err != nil {
			return nil, errors.Wrap(err, "generating anchors")
		}
	}
	return &Builder{cfg: cfg, anchors: anchorSet, logger: logger}, nil
}

// Anchors returns the anchor set targets are assigned against.
func (b *Builder) Anchors() *anchors.Set { return b.anchors }

// Build prepares sample index of src.
func (b *Builder) Build(src dataset.Source, index int, rng *rand.Rand) (*Sample, error) {
	if rng == nil {
		return nil, errors.New("a random source is required")
	}
	ref := src.ImageReference(index)

	img, err := src.LoadImage(index)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", ref)
	}
	resized, t, err := geometry.ResizeImage(img, b.cfg.ImageMinDim, b.cfg.ImageMaxDim, b.cfg.ImagePadding)
	if err != nil {
		return nil, errors.Wrapf(err, "resizing %s", ref)
	}

	instMasks, classIDs, err := src.LoadMask(index)
	if err != nil {
		return nil, errors.Wrapf(err, "loading masks of %s", ref)
	}
	boxes, err := src.LoadBoundingBoxes(index)
	if err != nil {
		return nil, errors.Wrapf(err, "loading boxes of %s", ref)
	}
	if len(instMasks) != len(classIDs) || len(boxes) != len(classIDs) {
		return nil, errors.Errorf("%s: %d masks, %d class ids, %d boxes",
			ref, len(instMasks), len(classIDs), len(boxes))
	}

	instMasks = masks.ResizeMasks(instMasks, t.Scale, t.Padding)
	gtBoxes := make([]geometry.Box, 0, len(boxes))
	gtIDs := make([]int, 0, len(boxes))
	gtMasks := make([]*image.Gray, 0, len(boxes))
	for k, box := range boxes {
		mapped := t.MapBox(box)
		if !mapped.Valid() {
			b.logger.Debugw("dropping instance collapsed by resize", "image", ref, "instance", k, "box", mapped.String())
			continue
		}
		gtBoxes = append(gtBoxes, mapped)
		gtIDs = append(gtIDs, classIDs[k])
		gtMasks = append(gtMasks, instMasks[k])
	}
	if len(gtBoxes) == 0 {
		return nil, errors.Wrap(ErrNoInstances, ref)
	}

	molded, err := mold.MoldImage(resized, b.cfg.MeanPixel)
	if err != nil {
		return nil, errors.Wrapf(err, "molding %s", ref)
	}

	targets, err := rpn.BuildRpnTargets(b.anchors, geometry.Boxes(gtBoxes), b.cfg.RPNParams(), rng)
	if err != nil {
		return nil, errors.Wrapf(err, "rpn targets of %s", ref)
	}

	if len(gtBoxes) > b.cfg.MaxGTInstances {
		keep := rng.Perm(len(gtBoxes))[:b.cfg.MaxGTInstances]
		gtBoxes = pick(gtBoxes, keep)
		gtIDs = pick(gtIDs, keep)
		gtMasks = pick(gtMasks, keep)
	}

	gtMasks = lo.Map(gtMasks, func(m *image.Gray, _ int) *image.Gray { return masks.Binarize(m) })
	if size := b.cfg.MaskEncodingSize; size > 0 {
		gtMasks, err = masks.MinimizeMasks(gtBoxes, gtMasks, size, size, b.logger.With("image", ref))
		if err != nil {
			return nil, errors.Wrapf(err, "minimizing masks of %s", ref)
		}
	}

	return &Sample{
		Index:     index,
		Reference: ref,
		Image:     molded,
		Meta: mold.ImageMeta{
			ImageID:        index,
			OriginalHeight: t.SourceHeight,
			OriginalWidth:  t.SourceWidth,
			Window:         t.Window,
			Scale:          t.Scale,
		},
		Transform:  t,
		RPN:        targets,
		GTBoxes:    gtBoxes,
		GTClassIDs: gtIDs,
		GTMasks:    gtMasks,
	}, nil
}

// BuildBatch builds the samples at indices in parallel, in index order.
// Samples with an unsupported image format or without instances are left
// out and logged; any other failure cancels the batch.
func (b *Builder) BuildBatch(ctx context.Context, src dataset.Source, indices []int, seed uint64) ([]*Sample, error) {
	results := make([]*Sample, len(indices))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for pos, index := range indices {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(seed, uint64(index)))
			s, err := b.Build(src, index, rng)
			switch {
			case err == nil:
				results[pos] = s
				return nil
			case errors.Is(err, geometry.ErrUnsupportedImageFormat), errors.Is(err, ErrNoInstances):
				b.logger.Warnw("excluding sample", "index", index, "image", src.ImageReference(index), "error", err)
				return nil
			default:
				return err
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lo.Compact(results), nil
}

func pick[T any](items []T, ids []int) []T {
	return lo.Map(ids, func(id int, _ int) T { return items[id] })
}
