// Package coords converts rectangles between page space and the raster
// spaces a page is displayed or flattened in.
//
// Page space has its origin at the bottom-left and y grows upward. Viewport
// and raster space have their origin at the top-left and y grows downward.
// All conversions are pure functions over explicit transform values and each
// one is the exact algebraic inverse of its counterpart.
package coords

import (
	"image"
	"math"
)

// Tolerance is the precision round trips are expected to hold to, in page units.
const Tolerance = 1e-6

// Rect is an axis-aligned rectangle. In page space X/Y is the bottom-left
// corner, in raster space it is the top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the far edge along y.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Normalize returns the rectangle with a non-negative width and height,
// covering the same area. Drags that go up or left produce negative sizes.
func (r Rect) Normalize() Rect {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

// Finite reports whether no field is NaN or infinite.
func (r Rect) Finite() bool {
	for _, v := range [...]float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Valid reports whether the rectangle is finite with a strictly positive area.
func (r Rect) Valid() bool {
	return r.Finite() && r.Width > 0 && r.Height > 0
}

// Pad grows the rectangle by d on every side.
func (r Rect) Pad(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	minX, minY := math.Min(r.X, o.X), math.Min(r.Y, o.Y)
	maxX, maxY := math.Max(r.MaxX(), o.MaxX()), math.Max(r.MaxY(), o.MaxY())
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Intersect returns the overlap of r and o and whether it has a positive area.
func (r Rect) Intersect(o Rect) (Rect, bool) {
	minX, minY := math.Max(r.X, o.X), math.Max(r.Y, o.Y)
	maxX, maxY := math.Min(r.MaxX(), o.MaxX()), math.Min(r.MaxY(), o.MaxY())
	if maxX <= minX || maxY <= minY {
		return Rect{}, false
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// Equal reports whether both rectangles agree within Tolerance.
func (r Rect) Equal(o Rect) bool {
	return near(r.X, o.X) && near(r.Y, o.Y) && near(r.Width, o.Width) && near(r.Height, o.Height)
}

// Pixels returns the smallest pixel rectangle that fully covers a raster-space
// rectangle. Partially covered pixels are included.
func (r Rect) Pixels() image.Rectangle {
	r = r.Normalize()
	return image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.MaxX())), int(math.Ceil(r.MaxY())),
	)
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= Tolerance
}
