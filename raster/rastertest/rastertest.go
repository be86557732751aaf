// Package rastertest provides a Rasterizer for tests that do not need MuPDF.
package rastertest

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"github.com/digitorus/pdfredact/coords"
	"github.com/digitorus/pdfredact/raster"
)

// Ink is the colour marks are painted with.
var Ink = color.RGBA{40, 40, 40, 255}

// Page describes one fake page.
type Page struct {
	Box    coords.Rect
	Rotate int
	// Marks are page-space rectangles painted with Ink, standing in for text.
	Marks []coords.Rect
	// Err is returned when the page is rendered.
	Err error
}

// Letter returns an unrotated US Letter page with the given marks.
func Letter(marks ...coords.Rect) Page {
	return Page{Box: coords.Rect{Width: 612, Height: 792}, Marks: marks}
}

// Rasterizer renders Pages as white bitmaps with dark marks.
type Rasterizer struct {
	Pages []Page
	// Gate, when set, blocks every render until it receives a value or the
	// context is done.
	Gate chan struct{}
	// Started, when set, receives the page index as each render begins.
	Started chan int

	mu      sync.Mutex
	renders []int
	closed  bool
}

// New returns a Rasterizer over pages.
func New(pages ...Page) *Rasterizer {
	return &Rasterizer{Pages: pages}
}

// Opener returns an Opener that always returns r, ignoring the data.
func (r *Rasterizer) Opener() raster.Opener {
	return func([]byte) (raster.Rasterizer, error) {
		return r, nil
	}
}

// FailingOpener returns an Opener that fails with err.
func FailingOpener(err error) raster.Opener {
	return func([]byte) (raster.Rasterizer, error) {
		return nil, err
	}
}

// PageCount returns len(r.Pages).
func (r *Rasterizer) PageCount() int {
	return len(r.Pages)
}

// RenderPage paints page i.
func (r *Rasterizer) RenderPage(ctx context.Context, i int, scale float64) (*image.RGBA, error) {
	if err := raster.Check(r, i, scale); err != nil {
		return nil, err
	}
	if r.Started != nil {
		r.Started <- i
	}
	if r.Gate != nil {
		select {
		case <-r.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.renders = append(r.renders, i)
	r.mu.Unlock()

	p := r.Pages[i]
	if p.Err != nil {
		return nil, p.Err
	}
	rs, err := coords.NewRaster(p.Box, p.Rotate, scale)
	if err != nil {
		return nil, err
	}
	w, h := rs.Size()
	img := image.NewRGBA(image.Rect(0, 0, int(math.Ceil(w)), int(math.Ceil(h))))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	for _, m := range p.Marks {
		px := rs.PageToRaster(m).Pixels().Intersect(img.Bounds())
		draw.Draw(img, px, image.NewUniform(Ink), image.Point{}, draw.Src)
	}
	return img, nil
}

// Close marks the rasterizer closed.
func (r *Rasterizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Closed reports whether Close was called.
func (r *Rasterizer) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Renders returns the page indices rendered so far, in order.
func (r *Rasterizer) Renders() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.renders...)
}
