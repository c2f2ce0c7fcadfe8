// Package common - Bounding box value type shared by the search and localization agents.
package common

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

// Coordinate indexes into a Box, in (x1, y1, x2, y2) order.
const (
	CoordX1 = iota
	CoordY1
	CoordX2
	CoordY2
)

// Box is an axis-aligned rectangle in image pixel coordinates.
//
// Box is a value type. Every transformation returns a new Box, so two
// snapshots of the same trajectory never share storage.
type Box struct {
	X1, Y1, X2, Y2 float64
}

// Fingerprint is the integer-truncated form of a Box. Two boxes whose
// coordinates truncate to the same integers share a fingerprint.
type Fingerprint struct {
	X1, Y1, X2, Y2 int
}

// NewBox returns the box with the given corners.
func NewBox(x1, y1, x2, y2 float64) Box {
	return Box{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width returns X2-X1.
func (b Box) Width() float64 {
	return b.X2 - b.X1
}

// Height returns Y2-Y1.
func (b Box) Height() float64 {
	return b.Y2 - b.Y1
}

// AspectRatio returns Height/Width.
func (b Box) AspectRatio() float64 {
	return b.Height() / b.Width()
}

// Area returns Width*Height, or 0 for an inverted box.
func (b Box) Area() float64 {
	if !b.Valid() {
		return 0
	}
	return b.Width() * b.Height()
}

// Valid reports whether the box has a positive width and height.
func (b Box) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// Within reports whether the box lies inside an image of the given
// dimensions, with the last addressable pixel at (width-1, height-1).
func (b Box) Within(width, height int) bool {
	return b.X1 >= 0 && b.Y1 >= 0 &&
		b.X2 <= float64(width-1) && b.Y2 <= float64(height-1)
}

// Coord returns the coordinate at index i (see CoordX1..CoordY2).
func (b Box) Coord(i int) float64 {
	switch i {
	case CoordX1:
		return b.X1
	case CoordY1:
		return b.Y1
	case CoordX2:
		return b.X2
	case CoordY2:
		return b.Y2
	}
	panic(fmt.Sprintf("common: coordinate index %d out of range", i))
}

// WithCoord returns a copy of b with the coordinate at index i set to v.
func (b Box) WithCoord(i int, v float64) Box {
	switch i {
	case CoordX1:
		b.X1 = v
	case CoordY1:
		b.Y1 = v
	case CoordX2:
		b.X2 = v
	case CoordY2:
		b.Y2 = v
	default:
		panic(fmt.Sprintf("common: coordinate index %d out of range", i))
	}
	return b
}

// Translate returns b shifted by (dx, dy).
func (b Box) Translate(dx, dy float64) Box {
	return Box{X1: b.X1 + dx, Y1: b.Y1 + dy, X2: b.X2 + dx, Y2: b.Y2 + dy}
}

// Fingerprint truncates every coordinate toward zero.
func (b Box) Fingerprint() Fingerprint {
	return Fingerprint{X1: int(b.X1), Y1: int(b.Y1), X2: int(b.X2), Y2: int(b.Y2)}
}

// String formats the fingerprint as x1_y1_x2_y2.
func (f Fingerprint) String() string {
	return fmt.Sprintf("%d_%d_%d_%d", f.X1, f.Y1, f.X2, f.Y2)
}

// Less orders fingerprints lexicographically by coordinate.
func (f Fingerprint) Less(o Fingerprint) bool {
	if f.X1 != o.X1 {
		return f.X1 < o.X1
	}
	if f.Y1 != o.Y1 {
		return f.Y1 < o.Y1
	}
	if f.X2 != o.X2 {
		return f.X2 < o.X2
	}
	return f.Y2 < o.Y2
}

func (b Box) String() string {
	return fmt.Sprintf("(%.2f, %.2f), (%.2f, %.2f)", b.X1, b.Y1, b.X2, b.Y2)
}

// ToRect converts the box to an image.Rectangle.
//
// Coordinates are truncated, so the result can be off by a fractional pixel
// along each edge.
//
// Returns:
//   - An image.Rectangle with canonicalized coordinates.
//
// @example
// box := Box{X1: 100.5, Y1: 100.5, X2: 200.5, Y2: 300.5}
// rect := box.ToRect() // (100,100)-(200,300)
func (b Box) ToRect() image.Rectangle {
	return image.Rect(int(b.X1), int(b.Y1), int(b.X2), int(b.Y2)).Canon()
}

// Intersection calculates the overlapping area between two boxes.
//
// Arguments:
//   - other: The other box to calculate intersection with.
//
// Returns:
//   - The area of intersection as float32, 0 when the boxes do not overlap.
//
// @example
// box1 := Box{X1: 0, Y1: 0, X2: 100, Y2: 100}
// box2 := Box{X1: 50, Y1: 50, X2: 150, Y2: 150}
// area := box1.Intersection(box2) // Returns 2500.0 (50x50 overlap)
func (b Box) Intersection(other Box) float32 {
	iw := math32.Min(float32(b.X2), float32(other.X2)) - math32.Max(float32(b.X1), float32(other.X1))
	ih := math32.Min(float32(b.Y2), float32(other.Y2)) - math32.Max(float32(b.Y1), float32(other.Y1))
	if iw <= 0 || ih <= 0 {
		return 0
	}
	return iw * ih
}

// Union calculates the area covered by either box.
//
// Arguments:
//   - other: The other box to calculate union with.
//
// Returns:
//   - The area of union as float32.
//
// @example
// box1 := Box{X1: 0, Y1: 0, X2: 100, Y2: 100}
// box2 := Box{X1: 50, Y1: 50, X2: 150, Y2: 150}
// area := box1.Union(box2) // Returns 17500.0
func (b Box) Union(other Box) float32 {
	return float32(b.Area()) + float32(other.Area()) - b.Intersection(other)
}

// IoU calculates the Intersection over Union between two boxes.
//
// Arguments:
//   - other: The other box to calculate IoU with.
//
// Returns:
//   - The IoU value between 0 and 1. Two empty boxes have an IoU of 0.
//
// @example
// box1 := Box{X1: 0, Y1: 0, X2: 100, Y2: 100}
// box2 := Box{X1: 50, Y1: 50, X2: 150, Y2: 150}
// iou := box1.IoU(box2) // Returns ~0.143 (2500/17500)
func (b Box) IoU(other Box) float32 {
	union := b.Union(other)
	if union <= 0 {
		return 0
	}
	return math32.Min(1, b.Intersection(other)/union)
}
