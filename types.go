package pdfredact

import (
	"compress/zlib"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/digitorus/pdfredact/coords"
	"github.com/digitorus/pdfredact/extract"
	"github.com/digitorus/pdfredact/match"
	"github.com/digitorus/pdfredact/raster"
	"github.com/digitorus/pdfredact/region"
)

// ExportMode selects how regions are applied when exporting.
type ExportMode int

const (
	// Recoverable draws opaque rectangles over the original content with an
	// incremental update. Text under the rectangles can still be extracted;
	// this mode must not be presented as a secure redaction.
	Recoverable ExportMode = iota

	// Secure rasterizes every page and rebuilds the document from images.
	// Redacted content is destroyed.
	Secure
)

func (m ExportMode) String() string {
	switch m {
	case Recoverable:
		return "recoverable"
	case Secure:
		return "secure"
	}
	return "unknown"
}

// Suffix returns the file name suffix of documents exported in mode m.
func (m ExportMode) Suffix() string {
	if m == Secure {
		return "_secure_redacted.pdf"
	}
	return "_redacted.pdf"
}

// OutputName derives the output file name from the source file name, e.g.
// "report.pdf" becomes "report_redacted.pdf". Directories are kept.
func (m ExportMode) OutputName(source string) string {
	dir, base := filepath.Split(source)
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".pdf") {
		base = base[:len(base)-len(ext)]
	}
	if base == "" {
		base = "document"
	}
	return dir + base + m.Suffix()
}

// ParseExportMode parses "recoverable" or "secure".
func ParseExportMode(s string) (ExportMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "recoverable", "overlay":
		return Recoverable, nil
	case "secure", "flatten":
		return Secure, nil
	}
	return 0, &ModeError{Value: s}
}

// ModeError reports an unknown export mode name.
type ModeError struct {
	Value string
}

func (e *ModeError) Error() string {
	return "unknown export mode " + strings.TrimSpace(e.Value) + `, want "recoverable" or "secure"`
}

func (e *ModeError) Unwrap() error {
	return ErrInvalidInput
}

// NoCompression as Options.CompressLevel writes new streams uncompressed.
// A zero CompressLevel selects zlib.DefaultCompression.
const NoCompression = -3

// Options configure matching, region geometry and both exporters. Zero
// fields take the value of DefaultOptions.
type Options struct {
	// Matcher finds phrase occurrences. Defaults to match.Default.
	Matcher match.SpanMatcher
	// Extract tunes word grouping during text extraction.
	Extract extract.Options
	// Padding is added around matched phrases, in page units. A negative
	// value disables padding.
	Padding float64
	// MinPixels is the size both dimensions of a manual drag must exceed.
	// A negative value accepts drags of any size.
	MinPixels float64
	// Fill is the redaction colour. Alpha is ignored.
	Fill color.RGBA
	// Oversample is the secure export render scale.
	Oversample float64
	// CompressLevel is the zlib level of new streams, or NoCompression.
	CompressLevel int
	// Parallelism bounds concurrent page encoding in secure exports.
	Parallelism int
	// Open opens the renderer for secure exports and previews.
	Open   raster.Opener
	Logger *zap.Logger
}

// DefaultOptions returns the settings used when none are given.
func DefaultOptions() Options {
	return Options{
		Matcher:       match.Default,
		Padding:       region.DefaultPadding,
		MinPixels:     region.DefaultMinPixels,
		Fill:          color.RGBA{0, 0, 0, 255},
		Oversample:    coords.DefaultOversample,
		CompressLevel: zlib.DefaultCompression,
		Parallelism:   runtime.GOMAXPROCS(0),
		Open:          raster.OpenMuPDF,
		Logger:        zap.NewNop(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Matcher == nil {
		o.Matcher = d.Matcher
	}
	// Negative Padding and MinPixels are kept; see Aggregator and capture.
	if o.Padding == 0 || math.IsNaN(o.Padding) {
		o.Padding = d.Padding
	}
	if o.MinPixels == 0 || math.IsNaN(o.MinPixels) {
		o.MinPixels = d.MinPixels
	}
	if o.CompressLevel == 0 {
		o.CompressLevel = d.CompressLevel
	}
	if !(o.Oversample > 0) {
		o.Oversample = d.Oversample
	}
	if o.Parallelism <= 0 {
		o.Parallelism = d.Parallelism
	}
	if o.Open == nil {
		o.Open = d.Open
	}
	if o.Logger == nil {
		o.Logger = d.Logger
	}
	o.Fill.A = 255
	return o
}

// Aggregator returns the region aggregator o configures.
func (o Options) Aggregator() region.Aggregator {
	return region.Aggregator{Padding: math.Max(o.withDefaults().Padding, 0)}
}

func (o Options) capture() region.Capture {
	return region.Capture{
		MinPixels:  math.Max(o.withDefaults().MinPixels, 0),
		Aggregator: o.Aggregator(),
	}
}

// compressLevel returns the zlib level of new streams.
func (o Options) compressLevel() int {
	switch level := o.withDefaults().CompressLevel; level {
	case NoCompression:
		return zlib.NoCompression
	default:
		return level
	}
}

// PageImage is a rendered page and the raster space it was rendered into.
type PageImage struct {
	*image.RGBA
	Raster coords.Raster
}
