package pdfredact

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/digitorus/pdfredact/flatten"
	"github.com/digitorus/pdfredact/overlay"
	"github.com/digitorus/pdfredact/region"
)

// ApplyRecoverable draws every region as an opaque rectangle on top of the
// original content. The original bytes are kept unchanged at the start of
// the output; extractable text under the rectangles remains.
func ApplyRecoverable(ctx context.Context, data []byte, regions []region.Region, opts Options) ([]byte, error) {
	return apply(ctx, Recoverable, data, regions, opts)
}

// ApplySecure renders every page, paints the regions into the pixels and
// rebuilds the document from the images. The output has no text, fonts or
// vector content.
func ApplySecure(ctx context.Context, data []byte, regions []region.Region, opts Options) ([]byte, error) {
	return apply(ctx, Secure, data, regions, opts)
}

// Apply exports data in mode.
func Apply(ctx context.Context, mode ExportMode, data []byte, regions []region.Region, opts Options) ([]byte, error) {
	return apply(ctx, mode, data, regions, opts)
}

func apply(ctx context.Context, mode ExportMode, data []byte, regions []region.Region, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	logger := opts.Logger.With(zap.String("mode", mode.String()))
	start := time.Now()

	var out []byte
	var err error
	switch mode {
	case Recoverable:
		out, err = overlay.Apply(ctx, data, regions, overlay.Options{
			Fill:          fillComponents(opts),
			CompressLevel: opts.compressLevel(),
			Logger:        logger,
		})
	case Secure:
		out, err = flatten.Flatten(ctx, data, regions, flatten.Options{
			Oversample:    opts.Oversample,
			Fill:          opts.Fill,
			Open:          opts.Open,
			Parallelism:   opts.Parallelism,
			CompressLevel: opts.compressLevel(),
			Logger:        logger,
		})
	default:
		err = &ModeError{Value: mode.String()}
	}
	if err != nil {
		logger.Warn("export failed", zap.Error(err))
		return nil, exportError(mode, err)
	}

	logger.Info("export finished",
		zap.Int("regions", len(regions)),
		zap.Int("bytes", len(out)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func fillComponents(opts Options) [3]float64 {
	return [3]float64{
		float64(opts.Fill.R) / 255,
		float64(opts.Fill.G) / 255,
		float64(opts.Fill.B) / 255,
	}
}
