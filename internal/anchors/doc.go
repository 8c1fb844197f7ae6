// Package anchors builds the fixed set of reference boxes a region proposal
// network regresses from.
//
// One pyramid level is generated per (scale, stride) pair. Within a level,
// anchors are ordered row-major over feature map positions and, at each
// position, by aspect ratio. Levels are concatenated from the first stride to
// the last.
//
// A Set is built once and shared read-only by every sample; it has no
// mutators and is safe for concurrent use.
package anchors
