package region

import (
	"fmt"

	"github.com/digitorus/pdfredact/coords"
)

// Capture converts screen-space drags into regions.
type Capture struct {
	// MinPixels is the size both drag dimensions must exceed.
	MinPixels  float64
	Aggregator Aggregator
}

// NewCapture returns a Capture with the default threshold.
func NewCapture() Capture {
	return Capture{MinPixels: DefaultMinPixels, Aggregator: NewAggregator()}
}

// FromScreen converts a drag rectangle drawn on the viewport of the given
// page. Drags in any direction are accepted; clicks and slivers are rejected
// with ErrTooSmall.
func (c Capture) FromScreen(page int, screen coords.Rect, v coords.Viewport) (Region, error) {
	if err := v.Validate(); err != nil {
		return Region{}, err
	}
	screen = screen.Normalize()
	if !screen.Finite() {
		return Region{}, fmt.Errorf("non-finite rectangle: %w", ErrTooSmall)
	}
	if screen.Width <= c.MinPixels || screen.Height <= c.MinPixels {
		return Region{}, fmt.Errorf("%.1fx%.1f px, need more than %.1f px: %w", screen.Width, screen.Height, c.MinPixels, ErrTooSmall)
	}
	return c.Aggregator.FromRect(page, v.ViewportToPage(screen))
}

// FromRaster converts a drag rectangle drawn on a rendered bitmap of the
// page. Unlike FromScreen it honours the page rotation of rs.
func (c Capture) FromRaster(page int, screen coords.Rect, rs coords.Raster) (Region, error) {
	screen = screen.Normalize()
	if !screen.Finite() {
		return Region{}, fmt.Errorf("non-finite rectangle: %w", ErrTooSmall)
	}
	if screen.Width <= c.MinPixels || screen.Height <= c.MinPixels {
		return Region{}, fmt.Errorf("%.1fx%.1f px, need more than %.1f px: %w", screen.Width, screen.Height, c.MinPixels, ErrTooSmall)
	}
	return c.Aggregator.FromRect(page, rs.RasterToPage(screen))
}
