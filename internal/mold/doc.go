// Package mold turns decoded images into network input tensors.
//
// Molding resizes and pads an image with geometry.ResizeImage, then subtracts
// the per-channel mean pixel and lays the result out channel-first as a
// float32 tensor of shape [3, H, W]. The ImageMeta recorded for each image
// carries what the unmold package needs to map detections back.
package mold
