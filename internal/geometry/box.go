package geometry

import (
	"fmt"
	"image"
	"math"
)

// Box is an axis-aligned rectangle in (y1, x1, y2, x2) order.
type Box struct {
	Y1 float64 `json:"y1"`
	X1 float64 `json:"x1"`
	Y2 float64 `json:"y2"`
	X2 float64 `json:"x2"`
}

// NewBox builds a box from its corners.
func NewBox(y1, x1, y2, x2 float64) Box {
	return Box{Y1: y1, X1: x1, Y2: y2, X2: x2}
}

// Height returns Y2 - Y1.
func (b Box) Height() float64 { return b.Y2 - b.Y1 }

// Width returns X2 - X1.
func (b Box) Width() float64 { return b.X2 - b.X1 }

// Center returns the box center as (cy, cx).
func (b Box) Center() (float64, float64) {
	return b.Y1 + 0.5*b.Height(), b.X1 + 0.5*b.Width()
}

// Valid reports whether the box has finite corners and positive area.
func (b Box) Valid() bool {
	for _, v := range [4]float64{b.Y1, b.X1, b.Y2, b.X2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.Y1 < b.Y2 && b.X1 < b.X2
}

// Area returns the box area, or 0 for a degenerate box.
func (b Box) Area() float64 {
	if !b.Valid() {
		return 0
	}
	return b.Height() * b.Width()
}

// Rect converts the box to an image.Rectangle, truncating each corner.
func (b Box) Rect() image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2))
}

func (b Box) String() string {
	return fmt.Sprintf("(%g,%g,%g,%g)", b.Y1, b.X1, b.Y2, b.X2)
}

// BoxList is a read-only indexed sequence of boxes.
type BoxList interface {
	Len() int
	At(i int) Box
}

// Boxes is a BoxList backed by a slice.
type Boxes []Box

// Len returns the number of boxes.
func (bs Boxes) Len() int { return len(bs) }

// At returns box i.
func (bs Boxes) At(i int) Box { return bs[i] }

// Window marks the sub-rectangle of a padded canvas that holds real image
// content.
type Window struct {
	Y1 int `json:"y1"`
	X1 int `json:"x1"`
	Y2 int `json:"y2"`
	X2 int `json:"x2"`
}

// Height returns the window height in pixels.
func (w Window) Height() int { return w.Y2 - w.Y1 }

// Width returns the window width in pixels.
func (w Window) Width() int { return w.X2 - w.X1 }

// Rect returns the window as an image.Rectangle.
func (w Window) Rect() image.Rectangle {
	return image.Rect(w.X1, w.Y1, w.X2, w.Y2)
}

// Box returns the window as a Box.
func (w Window) Box() Box {
	return NewBox(float64(w.Y1), float64(w.X1), float64(w.Y2), float64(w.X2))
}

// Padding holds the margins added around resized content.
type Padding struct {
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
	Right  int `json:"right"`

	// Channel is the padding of the channel axis. It is always zero.
	Channel [2]int `json:"-"`
}
