// Package geometry provides the bounding box and point primitives shared by
// the tracker, detectors and the HTTP API.
package geometry

import "math"

// BBox is an axis-aligned bounding box in frame coordinates (pixels or relative).
type BBox struct {
	Left   float64 `json:"left" yaml:"left"`
	Top    float64 `json:"top" yaml:"top"`
	Right  float64 `json:"right" yaml:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
}

// Point is a 2D position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FromCorners builds a BBox from an [x1, y1, x2, y2] slice.
// Returns false when the slice does not hold exactly four values.
func FromCorners(c []float64) (BBox, bool) {
	if len(c) != 4 {
		return BBox{}, false
	}
	return BBox{Left: c[0], Top: c[1], Right: c[2], Bottom: c[3]}, true
}

// Corners returns the box as [x1, y1, x2, y2].
func (b BBox) Corners() []float64 {
	return []float64{b.Left, b.Top, b.Right, b.Bottom}
}

// Centroid returns the midpoint of the box. Inverted boxes are not rejected,
// they simply produce the midpoint of whatever corners were given.
func (b BBox) Centroid() Point {
	return Point{
		X: (b.Left + b.Right) / 2,
		Y: (b.Top + b.Bottom) / 2,
	}
}

// IntCentroid returns the midpoint truncated toward zero, as pixel trackers do.
func (b BBox) IntCentroid() Point {
	c := b.Centroid()
	return Point{X: math.Trunc(c.X), Y: math.Trunc(c.Y)}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Normalize converts a pixel box to relative (0-1) coordinates.
// The box is returned unchanged when the frame size is unknown.
func (b BBox) Normalize(width, height int) BBox {
	if width <= 0 || height <= 0 {
		return b
	}
	return BBox{
		Left:   b.Left / float64(width),
		Top:    b.Top / float64(height),
		Right:  b.Right / float64(width),
		Bottom: b.Bottom / float64(height),
	}
}
