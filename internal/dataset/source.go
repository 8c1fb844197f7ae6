package dataset

import (
	"image"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ironsheep/maskrcnn-prep/internal/geometry"
	"github.com/ironsheep/maskrcnn-prep/internal/masks"
)

// Source gives indexed access to annotated images. Masks, class ids and
// boxes returned for the same index are parallel.
type Source interface {
	Len() int
	LoadImage(i int) (image.Image, error)
	// LoadMask returns one full-size binary mask per instance and the
	// instance class ids.
	LoadMask(i int) ([]*image.Gray, []int, error)
	// LoadBoundingBoxes returns the tight box of each instance in image
	// pixels.
	LoadBoundingBoxes(i int) ([]geometry.Box, error)
	// ImageReference identifies the image in logs.
	ImageReference(i int) string
}

// FileSource serves Records whose images are files on disk.
type FileSource struct {
	records []Record
	classes *ClassTable
	cache   *ImageCache
}

var _ Source = (*FileSource)(nil)

// NewFileSource validates the annotations of records against classes and
// returns a source over them. Malformed instances are dropped and logged;
// a record without a positive size is an error.
func NewFileSource(records []Record, classes *ClassTable, logger *zap.SugaredLogger) (*FileSource, error) {
	if classes == nil {
		return nil, errors.New("class table is required")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	kept := make([]Record, 0, len(records))
	for i, r := range records {
		if r.Width <= 0 || r.Height <= 0 {
			return nil, errors.Errorf("record %d (%s) has invalid size %dx%d", i, r.Path, r.Width, r.Height)
		}
		ann, err := ValidateAnnotation(r.Annotation, image.Pt(r.Width, r.Height), classes)
		if err != nil {
			logger.Warnw("dropped malformed instances",
				"image", r.Path,
				"kept", ann.Len(),
				"dropped", r.Annotation.Len()-ann.Len(),
				"error", err)
		}
		r.Annotation = ann
		kept = append(kept, r)
	}

	return &FileSource{
		records: kept,
		classes: classes,
		cache:   NewImageCache(),
	}, nil
}

// Len returns the number of records.
func (s *FileSource) Len() int { return len(s.records) }

// Classes returns the class table the annotations were checked against.
func (s *FileSource) Classes() *ClassTable { return s.classes }

// Record returns record i after validation.
func (s *FileSource) Record(i int) Record { return s.records[i] }

// Cache returns the image cache backing LoadImage.
func (s *FileSource) Cache() *ImageCache { return s.cache }

// LoadImage decodes the image of record i, or returns it from the cache.
func (s *FileSource) LoadImage(i int) (image.Image, error) {
	r, err := s.record(i)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(r.Path)
	if err != nil {
		return nil, err
	}
	if got := img.Bounds().Size(); got != image.Pt(r.Width, r.Height) {
		return nil, errors.Errorf("%s is %v, annotated as %dx%d", r.Path, got, r.Width, r.Height)
	}
	return img, nil
}

// LoadMask rasterizes every instance polygon of record i.
func (s *FileSource) LoadMask(i int) ([]*image.Gray, []int, error) {
	r, err := s.record(i)
	if err != nil {
		return nil, nil, err
	}
	size := image.Pt(r.Width, r.Height)
	out := make([]*image.Gray, 0, r.Annotation.Len())
	for k, p := range r.Annotation.Polygons {
		m, err := masks.ConvertPolygonToMask(p, size)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "%s instance %d", r.Path, k)
		}
		out = append(out, m)
	}
	return out, append([]int(nil), r.Annotation.ClassIDs...), nil
}

// LoadBoundingBoxes returns the polygon bounds of every instance of record i.
func (s *FileSource) LoadBoundingBoxes(i int) ([]geometry.Box, error) {
	r, err := s.record(i)
	if err != nil {
		return nil, err
	}
	out := make([]geometry.Box, 0, r.Annotation.Len())
	for k, p := range r.Annotation.Polygons {
		b, err := masks.PolygonBounds(p)
		if err != nil {
			return nil, errors.Wrapf(err, "%s instance %d", r.Path, k)
		}
		out = append(out, b)
	}
	return out, nil
}

// ImageReference returns the path of record i.
func (s *FileSource) ImageReference(i int) string {
	if i < 0 || i >= len(s.records) {
		return ""
	}
	return s.records[i].Path
}

func (s *FileSource) record(i int) (Record, error) {
	if i < 0 || i >= len(s.records) {
		return Record{}, errors.Errorf("index %d out of range [0,%d)", i, len(s.records))
	}
	return s.records[i], nil
}
