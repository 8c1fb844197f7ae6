// Package masks rasterizes instance polygons and resamples instance masks
// with the same transform applied to the image.
//
// Masks are *image.Gray values. Rasterized and minimized masks are binary
// (0 or 255); resized full-size masks keep the intermediate values produced by
// linear interpolation and are binarized by the caller.
package masks
