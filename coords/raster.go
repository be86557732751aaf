package coords

import (
	"fmt"
	"math"
)

// DefaultOversample is the raster scale used when flattening, independent of
// any interactive zoom. 2 renders at 144 dpi.
const DefaultOversample = 2.0

// Raster describes the bitmap a page is rendered into for flattening.
//
// Box is the visible page box in page space (usually the crop box) and may
// have a non-zero origin. Rotate is the page's clockwise display rotation in
// degrees; renderers apply it, so bitmaps of rotated pages are rotated too.
type Raster struct {
	Scale  float64
	Box    Rect
	Rotate int
}

// NewRaster returns the raster space of a page box rendered at scale.
func NewRaster(box Rect, rotate int, scale float64) (Raster, error) {
	r := Raster{Scale: scale, Box: box.Normalize(), Rotate: NormalizeRotation(rotate)}
	if !(scale > 0) || math.IsInf(scale, 0) {
		return Raster{}, fmt.Errorf("invalid raster scale %v", scale)
	}
	if !r.Box.Valid() {
		return Raster{}, fmt.Errorf("invalid page box %+v", box)
	}
	if r.Rotate%90 != 0 {
		return Raster{}, fmt.Errorf("unsupported page rotation %d", rotate)
	}
	return r, nil
}

// NormalizeRotation maps any multiple of 90 into [0, 360).
func NormalizeRotation(rotate int) int {
	rotate %= 360
	if rotate < 0 {
		rotate += 360
	}
	return rotate
}

// Viewport returns the unrotated raster as a Viewport. Page-to-raster and
// page-to-viewport share the same formula; the box origin becomes the pan.
func (r Raster) Viewport() Viewport {
	return Viewport{
		Scale:        r.Scale,
		PanX:         -r.Box.X * r.Scale,
		PanY:         r.Box.Y * r.Scale,
		CanvasHeight: r.Box.Height * r.Scale,
	}
}

// Size returns the raster dimensions in pixels, after rotation.
func (r Raster) Size() (width, height float64) {
	w, h := r.Box.Width*r.Scale, r.Box.Height*r.Scale
	if r.Rotate == 90 || r.Rotate == 270 {
		return h, w
	}
	return w, h
}

// PageSize returns the displayed page size in page units, after rotation.
func (r Raster) PageSize() (width, height float64) {
	if r.Rotate == 90 || r.Rotate == 270 {
		return r.Box.Height, r.Box.Width
	}
	return r.Box.Width, r.Box.Height
}

// PageToRaster maps a page-space rectangle into the rendered bitmap.
func (r Raster) PageToRaster(p Rect) Rect {
	u := r.Viewport().PageToViewport(p)
	wu, hu := r.Box.Width*r.Scale, r.Box.Height*r.Scale
	switch r.Rotate {
	case 90:
		return Rect{X: hu - (u.Y + u.Height), Y: u.X, Width: u.Height, Height: u.Width}
	case 180:
		return Rect{X: wu - (u.X + u.Width), Y: hu - (u.Y + u.Height), Width: u.Width, Height: u.Height}
	case 270:
		return Rect{X: u.Y, Y: wu - (u.X + u.Width), Width: u.Height, Height: u.Width}
	}
	return u
}

// RasterToPage is the inverse of PageToRaster.
func (r Raster) RasterToPage(q Rect) Rect {
	wu, hu := r.Box.Width*r.Scale, r.Box.Height*r.Scale
	u := q
	switch r.Rotate {
	case 90:
		u = Rect{X: q.Y, Y: hu - q.X - q.Width, Width: q.Height, Height: q.Width}
	case 180:
		u = Rect{X: wu - q.X - q.Width, Y: hu - q.Y - q.Height, Width: q.Width, Height: q.Height}
	case 270:
		u = Rect{X: wu - q.Y - q.Height, Y: q.X, Width: q.Height, Height: q.Width}
	}
	return r.Viewport().ViewportToPage(u)
}
