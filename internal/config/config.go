package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"go.uber.org/multierr"

	"github.com/ironsheep/maskrcnn-prep/internal/anchors"
	"github.com/ironsheep/maskrcnn-prep/internal/mold"
	"github.com/ironsheep/maskrcnn-prep/internal/rpn"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "MASKPREP_"

// ErrInvalidConfig marks configuration errors. They are fatal and are
// reported before any sample is processed.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full pipeline configuration.
type Config struct {
	ImageMinDim  int  `json:"image_min_dim"`
	ImageMaxDim  int  `json:"image_max_dim"`
	ImagePadding bool `json:"image_padding"`

	// AnchorIoULow is the best-IoU below which an anchor is negative.
	// Published references quote 0.3; the reference pipeline runs with 0.5.
	AnchorIoULow  float64 `json:"anchor_iou_low"`
	AnchorIoUHigh float64 `json:"anchor_iou_high"`

	RPNTrainAnchorsPerImage int        `json:"rpn_train_anchors_per_image"`
	RPNBBoxStdDev           [4]float64 `json:"rpn_bbox_std_dev"`
	RPNAnchorScales         []float64  `json:"rpn_anchor_scales"`
	RPNAnchorRatios         []float64  `json:"rpn_anchor_ratios"`
	RPNAnchorStride         int        `json:"rpn_anchor_stride"`
	BackboneStrides         []int      `json:"backbone_strides"`

	MeanPixel [3]float64 `json:"mean_pixel"`

	MaxGTInstances int `json:"max_gt_instances"`
	// MaskEncodingSize is the side of the minimized gt masks. Zero keeps
	// full-size masks.
	MaskEncodingSize       int     `json:"mask_encoding_size"`
	DetectionMaskThreshold float64 `json:"detection_mask_threshold"`

	Seed uint64 `json:"seed"`
}

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		ImageMinDim:             800,
		ImageMaxDim:             1024,
		ImagePadding:            true,
		AnchorIoULow:            0.5,
		AnchorIoUHigh:           0.7,
		RPNTrainAnchorsPerImage: 256,
		RPNBBoxStdDev:           [4]float64{0.1, 0.1, 0.2, 0.2},
		RPNAnchorScales:         []float64{32, 64, 128, 256, 512},
		RPNAnchorRatios:         []float64{0.5, 1, 2},
		RPNAnchorStride:         1,
		BackboneStrides:         []int{4, 8, 16, 32, 64},
		MeanPixel:               [3]float64{123.7, 116.8, 103.9},
		MaxGTInstances:          100,
		MaskEncodingSize:        56,
		DetectionMaskThreshold:  0.5,
	}
}

// Load reads an optional .env file, applies MASKPREP_* overrides from the
// environment on top of Default and validates the result.
func Load() (*Config, error) {
	// a missing .env file is fine
	_ = godotenv.Load()
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from Default and the variables visible through
// lookup. Every malformed variable and every validation failure is reported.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	var errs error
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	fail := func(name string, err error) {
		errs = multierr.Append(errs, errors.Wrapf(err, "%s%s", EnvPrefix, name))
	}

	ints := map[string]*int{
		"IMAGE_MIN_DIM":               &cfg.ImageMinDim,
		"IMAGE_MAX_DIM":               &cfg.ImageMaxDim,
		"RPN_TRAIN_ANCHORS_PER_IMAGE": &cfg.RPNTrainAnchorsPerImage,
		"RPN_ANCHOR_STRIDE":           &cfg.RPNAnchorStride,
		"MAX_GT_INSTANCES":            &cfg.MaxGTInstances,
		"MASK_ENCODING_SIZE":          &cfg.MaskEncodingSize,
	}
	for name, dst := range ints {
		if v, ok := get(name); ok {
			n, err := cast.ToIntE(v)
			if err != nil {
				fail(name, err)
				continue
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"ANCHOR_IOU_LOW":           &cfg.AnchorIoULow,
		"ANCHOR_IOU_HIGH":          &cfg.AnchorIoUHigh,
		"DETECTION_MASK_THRESHOLD": &cfg.DetectionMaskThreshold,
	}
	for name, dst := range floats {
		if v, ok := get(name); ok {
			f, err := cast.ToFloat64E(v)
			if err != nil {
				fail(name, err)
				continue
			}
			*dst = f
		}
	}

	if v, ok := get("IMAGE_PADDING"); ok {
		b, err := cast.ToBoolE(v)
		if err != nil {
			fail("IMAGE_PADDING", err)
		} else {
			cfg.ImagePadding = b
		}
	}
	if v, ok := get("SEED"); ok {
		s, err := cast.ToUint64E(v)
		if err != nil {
			fail("SEED", err)
		} else {
			cfg.Seed = s
		}
	}

	if v, ok := get("RPN_BBOX_STD_DEV"); ok {
		f, err := parseFloats(v, 4)
		if err != nil {
			fail("RPN_BBOX_STD_DEV", err)
		} else {
			copy(cfg.RPNBBoxStdDev[:], f)
		}
	}
	if v, ok := get("MEAN_PIXEL"); ok {
		m, err := ParseMeanPixel(v)
		if err != nil {
			fail("MEAN_PIXEL", err)
		} else {
			cfg.MeanPixel = m
		}
	}
	if v, ok := get("RPN_ANCHOR_SCALES"); ok {
		f, err := parseFloats(v, 0)
		if err != nil {
			fail("RPN_ANCHOR_SCALES", err)
		} else {
			cfg.RPNAnchorScales = f
		}
	}
	if v, ok := get("RPN_ANCHOR_RATIOS"); ok {
		f, err := parseFloats(v, 0)
		if err != nil {
			fail("RPN_ANCHOR_RATIOS", err)
		} else {
			cfg.RPNAnchorRatios = f
		}
	}
	if v, ok := get("BACKBONE_STRIDES"); ok {
		s, err := cast.ToIntSliceE(splitList(v))
		if err != nil {
			fail("BACKBONE_STRIDES", err)
		} else {
			cfg.BackboneStrides = s
		}
	}

	if errs != nil {
		return nil, multierr.Append(ErrInvalidConfig, errs)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseMeanPixel accepts either a hex color ("#7c7568") or three
// comma-separated channel values on the 0-255 scale.
func ParseMeanPixel(s string) ([3]float64, error) {
	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(s)
		if err != nil {
			return [3]float64{}, errors.Wrapf(err, "mean pixel %q", s)
		}
		return mold.MeanFromColor(c), nil
	}
	f, err := parseFloats(s, 3)
	if err != nil {
		return [3]float64{}, err
	}
	return [3]float64{f[0], f[1], f[2]}, nil
}

// Validate reports every invalid field, wrapped with ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = multierr.Append(errs, errors.Errorf(format, args...))
		}
	}

	check(c.ImageMinDim >= 0, "image min dim must not be negative, got %d", c.ImageMinDim)
	check(c.ImageMaxDim >= 0, "image max dim must not be negative, got %d", c.ImageMaxDim)
	check(!c.ImagePadding || c.ImageMaxDim > 0, "image padding requires a positive max dim")

	check(c.AnchorIoULow >= 0 && c.AnchorIoULow <= 1, "anchor IoU low %g outside [0,1]", c.AnchorIoULow)
	check(c.AnchorIoUHigh > 0 && c.AnchorIoUHigh <= 1, "anchor IoU high %g outside (0,1]", c.AnchorIoUHigh)
	check(c.AnchorIoULow <= c.AnchorIoUHigh,
		"anchor IoU low %g above high %g", c.AnchorIoULow, c.AnchorIoUHigh)

	check(c.RPNTrainAnchorsPerImage >= 2,
		"rpn train anchors per image must be at least 2, got %d", c.RPNTrainAnchorsPerImage)
	for i, s := range c.RPNBBoxStdDev {
		check(s > 0, "rpn bbox std dev %d must be positive, got %g", i, s)
	}
	check(len(c.RPNAnchorScales) > 0, "rpn anchor scales are empty")
	check(len(c.RPNAnchorRatios) > 0, "rpn anchor ratios are empty")
	check(len(c.RPNAnchorScales) == len(c.BackboneStrides),
		"%d anchor scales for %d backbone strides", len(c.RPNAnchorScales), len(c.BackboneStrides))
	check(c.RPNAnchorStride > 0, "rpn anchor stride must be positive, got %d", c.RPNAnchorStride)
	for _, s := range c.BackboneStrides {
		check(s > 0, "backbone stride must be positive, got %d", s)
	}

	check(c.MaxGTInstances > 0, "max gt instances must be positive, got %d", c.MaxGTInstances)
	check(c.MaskEncodingSize >= 0, "mask encoding size must not be negative, got %d", c.MaskEncodingSize)
	check(c.DetectionMaskThreshold >= 0 && c.DetectionMaskThreshold <= 1,
		"detection mask threshold %g outside [0,1]", c.DetectionMaskThreshold)

	if errs != nil {
		return multierr.Append(ErrInvalidConfig, errs)
	}
	return nil
}

// AnchorParams returns the anchor generation parameters for a
// ImageMaxDim x ImageMaxDim model input.
func (c *Config) AnchorParams() anchors.Params {
	return anchors.Params{
		Scales:       c.RPNAnchorScales,
		Ratios:       c.RPNAnchorRatios,
		Strides:      c.BackboneStrides,
		AnchorStride: c.RPNAnchorStride,
		ImageHeight:  c.ImageMaxDim,
		ImageWidth:   c.ImageMaxDim,
	}
}

// RPNParams returns the target assignment parameters.
func (c *Config) RPNParams() rpn.Params {
	return rpn.Params{
		IoULow:          c.AnchorIoULow,
		IoUHigh:         c.AnchorIoUHigh,
		AnchorsPerImage: c.RPNTrainAnchorsPerImage,
		StdDev:          c.RPNBBoxStdDev,
	}
}

// MoldParams returns the image molding parameters.
func (c *Config) MoldParams() mold.Params {
	return mold.Params{
		MinDim:    c.ImageMinDim,
		MaxDim:    c.ImageMaxDim,
		Pad:       c.ImagePadding,
		MeanPixel: c.MeanPixel,
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// parseFloats parses a comma-separated list. want > 0 requires exactly that
// many values.
func parseFloats(s string, want int) ([]float64, error) {
	parts := splitList(s)
	if want > 0 && len(parts) != want {
		return nil, errors.Errorf("want %d comma-separated values, got %d in %q", want, len(parts), s)
	}
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := cast.ToFloat64E(p)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
