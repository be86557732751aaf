package coords

import "fmt"

// Viewport describes how page space maps onto an on-screen canvas. It is a
// short-lived value owned by the interactive layer and is never stored.
type Viewport struct {
	Scale        float64 `json:"scale"`
	PanX         float64 `json:"pan_x"`
	PanY         float64 `json:"pan_y"`
	CanvasHeight float64 `json:"canvas_height"`
}

// NewViewport returns the viewport for a page of the given height shown at
// scale without panning.
func NewViewport(pageHeight, scale float64) Viewport {
	return Viewport{Scale: scale, CanvasHeight: pageHeight * scale}
}

// Validate checks that the viewport can be inverted.
func (v Viewport) Validate() error {
	if !(v.Scale > 0) || !(Rect{X: v.PanX, Y: v.PanY, Width: v.Scale, Height: v.CanvasHeight}).Finite() {
		return fmt.Errorf("invalid viewport: scale %v, pan (%v, %v), canvas height %v", v.Scale, v.PanX, v.PanY, v.CanvasHeight)
	}
	return nil
}

// PageToViewport maps a page-space rectangle onto the canvas, flipping the
// vertical axis.
func (v Viewport) PageToViewport(r Rect) Rect {
	return Rect{
		X:      r.X*v.Scale + v.PanX,
		Y:      v.CanvasHeight - (r.Y+r.Height)*v.Scale + v.PanY,
		Width:  r.Width * v.Scale,
		Height: r.Height * v.Scale,
	}
}

// ViewportToPage is the inverse of PageToViewport.
func (v Viewport) ViewportToPage(r Rect) Rect {
	w := r.Width / v.Scale
	h := r.Height / v.Scale
	return Rect{
		X:      (r.X - v.PanX) / v.Scale,
		Y:      (v.CanvasHeight-(r.Y-v.PanY))/v.Scale - h,
		Width:  w,
		Height: h,
	}
}

// PageToViewport is the functional form of Viewport.PageToViewport.
func PageToViewport(r Rect, v Viewport) Rect { return v.PageToViewport(r) }

// ViewportToPage is the functional form of Viewport.ViewportToPage.
func ViewportToPage(r Rect, v Viewport) Rect { return v.ViewportToPage(r) }
