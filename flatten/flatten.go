// Package flatten produces secure redactions. Every page is rendered to a
// bitmap, the redaction rectangles are painted into the pixels and a new
// document is built from the images alone. The result has no text layer,
// fonts or vector content, so nothing under a rectangle can be recovered.
package flatten

import (
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/digitorus/pdfredact/coords"
	"github.com/digitorus/pdfredact/images"
	ipdf "github.com/digitorus/pdfredact/internal/pdf"
	"github.com/digitorus/pdfredact/raster"
	"github.com/digitorus/pdfredact/region"
)

var (
	// ErrEncrypted is returned for documents with a security handler.
	ErrEncrypted = ipdf.ErrEncrypted
	// ErrMalformed is returned when the document structure cannot be read.
	ErrMalformed = ipdf.ErrMalformed
	// ErrPageOutOfRange is returned for regions on pages the document does not have.
	ErrPageOutOfRange = region.ErrPageOutOfRange
	// ErrPageCount is returned when the renderer sees a different number of
	// pages than the page tree.
	ErrPageCount = errors.New("renderer page count does not match document")
)

// Options configure Flatten.
type Options struct {
	// Oversample is the render scale in pixels per point.
	Oversample float64
	// Fill is the colour painted over redacted areas.
	Fill color.RGBA
	// Open opens the renderer. Defaults to raster.OpenMuPDF.
	Open raster.Opener
	// Parallelism bounds concurrent image encoding.
	Parallelism int
	// CompressLevel is the zlib level for image samples.
	CompressLevel int
	Logger        *zap.Logger
}

// DefaultOptions renders at coords.DefaultOversample with black fills.
func DefaultOptions() Options {
	return Options{
		Oversample:    coords.DefaultOversample,
		Fill:          color.RGBA{0, 0, 0, 255},
		Open:          raster.OpenMuPDF,
		Parallelism:   runtime.GOMAXPROCS(0),
		CompressLevel: zlib.DefaultCompression,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if !(o.Oversample > 0) {
		o.Oversample = d.Oversample
	}
	if o.Open == nil {
		o.Open = d.Open
	}
	if o.Parallelism <= 0 {
		o.Parallelism = d.Parallelism
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	// Redaction fills are always opaque.
	o.Fill.A = 255
	return o
}

// Flatten returns an image-only copy of input with every region painted
// over. Any page failure aborts the whole document; no partial output is
// returned.
func Flatten(ctx context.Context, input []byte, regions []region.Region, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	logger := opts.Logger
	start := time.Now()

	_, pages, err := ipdf.Open(input)
	if err != nil {
		return nil, err
	}
	for _, r := range regions {
		if r.PageIndex < 0 || r.PageIndex >= len(pages) {
			return nil, fmt.Errorf("page %d of %d: %w", r.PageIndex, len(pages), ErrPageOutOfRange)
		}
	}

	rz, err := opts.Open(input)
	if err != nil {
		if errors.Is(err, raster.ErrProtected) {
			return nil, fmt.Errorf("%v: %w", err, ErrEncrypted)
		}
		return nil, fmt.Errorf("failed to open renderer: %w", err)
	}
	defer rz.Close()

	if rz.PageCount() != len(pages) {
		return nil, fmt.Errorf("%d rendered pages, %d in page tree: %w", rz.PageCount(), len(pages), ErrPageCount)
	}

	byPage := region.GroupByPage(regions)
	encoded := make([]images.Image, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Parallelism)

	// The renderer is used from this goroutine only; encoding is parallel.
	var renderErr error
	for i, info := range pages {
		rs, err := coords.NewRaster(info.Box(), info.Rotate, opts.Oversample)
		if err != nil {
			renderErr = fmt.Errorf("page %d: %w", i, err)
			break
		}
		bmp, err := rz.RenderPage(gctx, i, opts.Oversample)
		if err != nil {
			renderErr = fmt.Errorf("failed to render page %d: %w", i, err)
			break
		}
		n := Paint(bmp, rs, byPage[i], opts.Fill)
		logger.Debug("page rendered",
			zap.Int("page", i),
			zap.Int("regions", len(byPage[i])),
			zap.Int("painted", n),
			zap.Int("width", bmp.Bounds().Dx()),
			zap.Int("height", bmp.Bounds().Dy()),
		)

		g.Go(func() error {
			img, err := images.Prepare(fmt.Sprintf("page%d", i), bmp, opts.CompressLevel)
			if err != nil {
				return fmt.Errorf("page %d: %w", i, err)
			}
			encoded[i] = img
			return nil
		})
	}
	waitErr := g.Wait()
	switch {
	case renderErr != nil && waitErr != nil && errors.Is(renderErr, context.Canceled) && ctx.Err() == nil:
		// An encoding failure cancelled the render.
		return nil, waitErr
	case renderErr != nil:
		return nil, renderErr
	case waitErr != nil:
		return nil, waitErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := NewBuilder(opts.CompressLevel)
	for i, info := range pages {
		w, h := info.Size()
		if err := b.AddPageFromImage(encoded[i], w, h); err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
	}
	out := b.Bytes()

	logger.Info("document flattened",
		zap.Int("pages", b.Pages()),
		zap.Int("images", b.Images()),
		zap.Int("regions", len(regions)),
		zap.Int("bytes", len(out)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// Paint fills every region on dst using the page-to-raster mapping rs and
// returns the number of rectangles that touched the bitmap. Overlapping
// regions cover their union.
func Paint(dst draw.Image, rs coords.Raster, regions []region.Region, fill color.Color) int {
	bounds := dst.Bounds()
	src := image.NewUniform(fill)
	n := 0
	for _, r := range regions {
		px := rs.PageToRaster(r.Rect).Pixels().Add(bounds.Min).Intersect(bounds)
		if px.Empty() {
			continue
		}
		draw.Draw(dst, px, src, image.Point{}, draw.Src)
		n++
	}
	return n
}
