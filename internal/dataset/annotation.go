package dataset

import (
	"image"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ironsheep/maskrcnn-prep/internal/masks"
)

// ErrMalformedAnnotation marks instances that were dropped from a sample.
var ErrMalformedAnnotation = errors.New("malformed annotation")

// Annotation holds the instances of one image.
type Annotation struct {
	Polygons [][]int `json:"polygons"`
	ClassIDs []int   `json:"class_ids"`
}

// Len returns the number of instances.
func (a Annotation) Len() int { return len(a.Polygons) }

// Record is one ingested image: where it lives, its size and its instances.
type Record struct {
	Path       string     `json:"path"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	Annotation Annotation `json:"annotation"`
}

// ValidateAnnotation returns the usable instances of a for an image of size.
// The returned error lists every dropped instance, each wrapping
// ErrMalformedAnnotation; it is nil when nothing was dropped.
func ValidateAnnotation(a Annotation, size image.Point, classes *ClassTable) (Annotation, error) {
	var errs error
	if len(a.Polygons) != len(a.ClassIDs) {
		errs = multierr.Append(errs, errors.Wrapf(ErrMalformedAnnotation,
			"%d polygons for %d class ids", len(a.Polygons), len(a.ClassIDs)))
	}
	n := min(len(a.Polygons), len(a.ClassIDs))

	var out Annotation
	for i := 0; i < n; i++ {
		if err := validateInstance(a.Polygons[i], a.ClassIDs[i], size, classes); err != nil {
			errs = multierr.Append(errs, errors.Wrapf(err, "instance %d", i))
			continue
		}
		out.Polygons = append(out.Polygons, append([]int(nil), a.Polygons[i]...))
		out.ClassIDs = append(out.ClassIDs, a.ClassIDs[i])
	}
	return out, errs
}

func validateInstance(polygon []int, classID int, size image.Point, classes *ClassTable) error {
	if classID <= 0 || classID >= classes.Len() {
		return errors.Wrapf(ErrMalformedAnnotation, "unknown class id %d", classID)
	}
	box, err := masks.PolygonBounds(polygon)
	if err != nil {
		return multierr.Combine(ErrMalformedAnnotation, err)
	}
	if box.Rect().Intersect(image.Rectangle{Max: size}).Empty() {
		return errors.Wrapf(ErrMalformedAnnotation, "bounds %v outside %v image", box, size)
	}
	if _, err := masks.ConvertPolygonToMask(polygon, size); err != nil {
		return multierr.Combine(ErrMalformedAnnotation, err)
	}
	return nil
}
