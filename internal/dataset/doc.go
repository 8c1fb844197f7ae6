// Package dataset provides annotated images to the sample builder.
//
// A Source exposes images, instance masks, class ids and ground-truth boxes
// by index. The pipeline depends only on the Source interface; FileSource is
// the implementation for images on disk whose annotations were already
// ingested into Records.
//
// # Annotations
//
// An Annotation is a list of polygons, each a flat (x, y, x, y, ...) slice in
// image pixels, with one class id per polygon. Instances that cannot be used
// (odd coordinate count, fewer than three vertices, zero-area bounds, no
// covered pixels, unknown class) are dropped when the source is built and the
// reasons are logged together. The remaining instances of the image are kept.
//
// # Classes
//
// ClassTable maps lower-cased class names to ids. Id 0 is always the "bg"
// background class. A table is built once and never modified, so it can be
// shared freely between goroutines.
package dataset
