package main

import (
	"encoding/json"
	"image"
	"io"
	"math/rand/v2"
	"os"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorgonia.org/tensor"

	"github.com/ironsheep/maskrcnn-prep/internal/config"
	"github.com/ironsheep/maskrcnn-prep/internal/dataset"
	"github.com/ironsheep/maskrcnn-prep/internal/geometry"
	"github.com/ironsheep/maskrcnn-prep/internal/masks"
	"github.com/ironsheep/maskrcnn-prep/internal/sample"
	"github.com/ironsheep/maskrcnn-prep/internal/unmold"
)

type annotationFile struct {
	Classes   []string   `json:"classes"`
	Instances []instance `json:"instances"`
}

type instance struct {
	Class   string `json:"class"`
	Polygon []int  `json:"polygon"`
}

type instanceSummary struct {
	Class        string        `json:"class"`
	Box          geometry.Box  `json:"box"`
	MaskPixels   int           `json:"mask_pixels"`
	UnmoldedBox  *geometry.Box `json:"unmolded_box,omitempty"`
	UnmoldedArea int           `json:"unmolded_mask_pixels"`
}

type summary struct {
	Image     string             `json:"image"`
	Transform geometry.Transform `json:"transform"`
	Anchors   int                `json:"anchors"`
	Positives int                `json:"rpn_positives"`
	Negatives int                `json:"rpn_negatives"`
	Instances []instanceSummary  `json:"instances"`
}

func run(imagePath, annotationPath string, out io.Writer, logger *zap.SugaredLogger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ann, err := readAnnotation(annotationPath)
	if err != nil {
		return err
	}
	classes, err := dataset.NewClassTable(ann.Classes)
	if err != nil {
		return errors.Wrap(err, annotationPath)
	}
	ids, err := classes.Resolve(lo.Map(ann.Instances, func(in instance, _ int) string {
		return in.Class
	}))
	if err != nil {
		return errors.Wrap(err, annotationPath)
	}

	size, err := imageSize(imagePath)
	if err != nil {
		return err
	}
	record := dataset.Record{
		Path:   imagePath,
		Width:  size.X,
		Height: size.Y,
		Annotation: dataset.Annotation{
			Polygons: lo.Map(ann.Instances, func(in instance, _ int) []int {
				return in.Polygon
			}),
			ClassIDs: ids,
		},
	}
	src, err := dataset.NewFileSource([]dataset.Record{record}, classes, logger)
	if err != nil {
		return err
	}

	builder, err := sample.NewBuilder(cfg, nil, logger)
	if err != nil {
		return err
	}
	logger.Debugw("anchors ready", "count", builder.Anchors().Len())

	s, err := builder.Build(src, 0, rand.New(rand.NewPCG(cfg.Seed, 0)))
	if err != nil {
		return err
	}

	dets, err := unmoldGroundTruth(s, classes.Len(), cfg.MaskEncodingSize, cfg.DetectionMaskThreshold, logger)
	if err != nil {
		return err
	}

	sum := summary{
		Image:     s.Reference,
		Transform: s.Transform,
		Anchors:   builder.Anchors().Len(),
		Positives: s.RPN.Positives,
		Negatives: s.RPN.Negatives,
	}
	byRow := lo.KeyBy(dets, func(d unmold.Detection) int { return d.Row })
	for k, box := range s.GTBoxes {
		name, _ := classes.Name(s.GTClassIDs[k])
		in := instanceSummary{
			Class:      name,
			Box:        box,
			MaskPixels: lo.Count(s.GTMasks[k].Pix, 255),
		}
		if d, ok := byRow[k]; ok {
			in.UnmoldedBox = &d.Box
			in.UnmoldedArea = lo.Count(d.Mask.Pix, 255)
		}
		sum.Instances = append(sum.Instances, in)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(sum)
}

// roundTripMaskSize is the side used to crop full-size gt masks before
// they are fed back as detection masks.
const roundTripMaskSize = 28

// unmoldGroundTruth feeds the sample's own boxes and masks through the
// inverse mapping as if they were perfect detections. Full-size masks
// (maskSize 0) are cropped to their boxes first.
func unmoldGroundTruth(
	s *sample.Sample,
	numClasses, maskSize int,
	threshold float64,
	logger *zap.SugaredLogger,
) ([]unmold.Detection, error) {
	gtMasks := s.GTMasks
	if maskSize == 0 {
		var err error
		gtMasks, err = masks.MinimizeMasks(s.GTBoxes, gtMasks, roundTripMaskSize, roundTripMaskSize, logger)
		if err != nil {
			return nil, errors.Wrap(err, "cropping full-size masks")
		}
	}

	k := len(s.GTBoxes)
	mb := gtMasks[0].Bounds()
	mh, mw := mb.Dy(), mb.Dx()

	rows := make([]float32, 0, k*6)
	probs := make([]float32, k*mh*mw*numClasses)
	for i, b := range s.GTBoxes {
		rows = append(rows, float32(b.Y1), float32(b.X1), float32(b.Y2), float32(b.X2), float32(s.GTClassIDs[i]), 1)
		m := gtMasks[i]
		for y := 0; y < mh; y++ {
			for x := 0; x < mw; x++ {
				if m.Pix[y*m.Stride+x] != 0 {
					probs[((i*mh+y)*mw+x)*numClasses+s.GTClassIDs[i]] = 1
				}
			}
		}
	}

	return unmold.UnmoldDetections(
		tensor.New(tensor.WithShape(k, 6), tensor.WithBacking(rows)),
		tensor.New(tensor.WithShape(k, mh, mw, numClasses), tensor.WithBacking(probs)),
		s.Meta.OriginalHeight, s.Meta.OriginalWidth, s.Meta.Window, threshold, logger,
	)
}

func readAnnotation(path string) (*annotationFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading annotation")
	}
	var ann annotationFile
	if err := json.Unmarshal(data, &ann); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return &ann, nil
}

func imageSize(path string) (image.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return image.Point{}, errors.Wrap(err, "opening image")
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Point{}, errors.Wrapf(err, "reading header of %s", path)
	}
	return image.Pt(cfg.Width, cfg.Height), nil
}
