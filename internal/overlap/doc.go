// Package overlap computes Intersection-over-Union between boxes.
package overlap
