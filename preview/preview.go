// Package preview renders pages for display with regions drawn on top.
//
// Only the latest render request matters. Starting a render cancels the one
// in flight, and a superseded render never delivers its bitmap. Each page is
// rasterized once at a base scale; other zoom levels rescale the cached
// bitmap.
package preview

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/digitorus/pdfredact/coords"
	"github.com/digitorus/pdfredact/raster"
	"github.com/digitorus/pdfredact/region"
)

// ErrCancelled is returned by a render that was cancelled or superseded.
var ErrCancelled = errors.New("render cancelled")

// DefaultBaseScale is the scale pages are rasterized at before rescaling.
const DefaultBaseScale = 2.0

// Style selects how regions are drawn.
type Style int

const (
	// Pending draws translucent regions so the content stays visible.
	Pending Style = iota
	// Applied draws opaque regions, as they will appear in the output.
	Applied
)

// Options configure a Scheduler.
type Options struct {
	BaseScale float64
	Fill      color.RGBA
	Logger    *zap.Logger
}

// Scheduler serializes page renders over one Rasterizer.
type Scheduler struct {
	r      raster.Rasterizer
	base   float64
	fill   color.RGBA
	logger *zap.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	cache  map[int]*image.RGBA

	// renderMu guards the rasterizer.
	renderMu sync.Mutex
}

// NewScheduler returns a Scheduler rendering with r.
func NewScheduler(r raster.Rasterizer, opts Options) *Scheduler {
	s := &Scheduler{
		r:      r,
		base:   opts.BaseScale,
		fill:   opts.Fill,
		logger: opts.Logger,
		cache:  make(map[int]*image.RGBA),
	}
	if !(s.base > 0) {
		s.base = DefaultBaseScale
	}
	if s.fill == (color.RGBA{}) {
		s.fill = color.RGBA{0, 0, 0, 255}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Render returns page rendered into rs with regions drawn in style. The
// raster describes the page box, rotation and zoom of the display.
func (s *Scheduler) Render(ctx context.Context, page int, rs coords.Raster, regions []region.Region, style Style) (*image.RGBA, error) {
	gen, rctx, cancel := s.begin(ctx)
	defer cancel()

	base, err := s.page(rctx, page)
	if err != nil {
		if s.superseded(gen) || rctx.Err() != nil {
			return nil, fmt.Errorf("page %d: %w", page, ErrCancelled)
		}
		return nil, err
	}

	w, h := rs.Size()
	out := image.NewRGBA(image.Rect(0, 0, int(math.Ceil(w)), int(math.Ceil(h))))
	if out.Bounds().Eq(base.Bounds()) {
		draw.Draw(out, out.Bounds(), base, base.Bounds().Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(out, out.Bounds(), base, base.Bounds(), draw.Src, nil)
	}
	if s.superseded(gen) {
		return nil, fmt.Errorf("page %d: %w", page, ErrCancelled)
	}

	Overlay(out, rs, region.ForPage(regions, page), s.fill, style)

	if s.superseded(gen) || rctx.Err() != nil {
		return nil, fmt.Errorf("page %d: %w", page, ErrCancelled)
	}
	return out, nil
}

// Cancel cancels the render in flight, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Reset drops cached page bitmaps.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.cache)
}

// Close cancels pending work and closes the rasterizer.
func (s *Scheduler) Close() error {
	s.Cancel()
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	return s.r.Close()
}

func (s *Scheduler) begin(ctx context.Context) (uint64, context.Context, context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	rctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return s.gen, rctx, cancel
}

func (s *Scheduler) superseded(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen != gen
}

// page returns the cached base bitmap of page, rendering it if needed.
func (s *Scheduler) page(ctx context.Context, page int) (*image.RGBA, error) {
	s.mu.Lock()
	img, ok := s.cache[page]
	s.mu.Unlock()
	if ok {
		return img, nil
	}

	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := s.r.RenderPage(ctx, page, s.base)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("page rasterized",
		zap.Int("page", page),
		zap.Float64("scale", s.base),
	)

	s.mu.Lock()
	s.cache[page] = img
	s.mu.Unlock()
	return img, nil
}

// Overlay draws regions onto dst, which holds the page rendered into rs.
// Applied regions are opaque; pending regions are filled at half opacity
// and outlined.
func Overlay(dst draw.Image, rs coords.Raster, regions []region.Region, fill color.RGBA, style Style) {
	bounds := dst.Bounds()
	for _, r := range regions {
		px := rs.PageToRaster(r.Rect).Pixels().Add(bounds.Min).Intersect(bounds)
		if px.Empty() {
			continue
		}
		if style == Applied {
			draw.Draw(dst, px, image.NewUniform(fill), image.Point{}, draw.Src)
			continue
		}
		draw.Draw(dst, px, image.NewUniform(translucent(fill)), image.Point{}, draw.Over)
		outline(dst, px, fill)
	}
}

func translucent(c color.RGBA) color.RGBA {
	// color.RGBA is premultiplied.
	return color.RGBA{c.R / 2, c.G / 2, c.B / 2, 128}
}

func outline(dst draw.Image, r image.Rectangle, c color.RGBA) {
	src := image.NewUniform(c)
	for _, edge := range []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1),
		image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y),
		image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y),
	} {
		draw.Draw(dst, edge.Intersect(r), src, image.Point{}, draw.Src)
	}
}
