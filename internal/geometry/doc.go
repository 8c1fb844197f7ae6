// Package geometry holds the box types shared by the whole pipeline and the
// single affine mapping between original image space and model input space.
//
// # Coordinate System
//
// Boxes are stored as (Y1, X1, Y2, X2) with (0,0) at the top-left corner.
// (Y1, X1) is inclusive and (Y2, X2) is exclusive, so a box is meaningful
// only when Y1 < Y2 and X1 < X2.
//
// # Forward Mapping
//
// ComputeTransform derives one uniform scale plus a padding offset for a
// source size. ResizeImage applies it to pixels, Transform.MapBox to
// ground-truth boxes, and the masks package to instance masks. The inverse is
// applied to network output by the unmold package using the Window.
//
// # Thread Safety
//
// All types are plain values. Functions do not retain or mutate their inputs
// and may be called concurrently.
package geometry
