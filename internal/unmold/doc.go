// Package unmold maps raw detector output back to original image space.
//
// Detections arrive as a [K,6] tensor of (y1, x1, y2, x2, class_id, score)
// rows in model input coordinates, zero-padded at the tail, plus a
// [K,Hm,Wm,C] tensor of per-class mask probabilities. UnmoldDetections drops
// the padding rows, inverts the resize using the sample's window and pastes
// one binary mask per detection into a canvas the size of the original image.
package unmold
