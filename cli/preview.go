package cli

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/digitorus/pdfredact/preview"
)

var (
	Page  int
	Scale float64
	Style string
)

func PreviewCommand(ctx context.Context) {
	previewFlags := flag.NewFlagSet("preview", flag.ExitOnError)

	previewFlags.IntVar(&Page, "page", 1, "Page number to render")
	previewFlags.Float64Var(&Scale, "scale", 1, "Zoom factor, 1 renders at 72 dpi")
	previewFlags.StringVar(&Style, "style", "pending", "How redactions are drawn (pending, applied)")
	selectionFlags(previewFlags)

	previewFlags.Usage = func() {
		fmt.Printf("Usage: %s preview [options] <input.pdf> <output.png|.bmp|.tiff>\n\n", os.Args[0])
		fmt.Println("Render a page with its redactions to an image")
		fmt.Println("\nOptions:")
		previewFlags.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Printf("  %s preview -page 2 -term \"Jane Smith\" input.pdf page2.png\n", os.Args[0])
	}

	if err := previewFlags.Parse(os.Args[2:]); err != nil {
		log.Printf("Failed to parse preview flags: %v", err)
		osExit(1)
		return
	}
	if previewFlags.NArg() < 2 {
		previewFlags.Usage()
		osExit(1)
		return
	}

	if err := setup(); err != nil {
		exit(err)
		return
	}
	exit(PreviewPDF(ctx, previewFlags.Arg(0), previewFlags.Arg(1)))
}

// PreviewPDF renders Page of input with the selected regions into output.
// The image format follows the output extension.
var PreviewPDF = previewPDFImpl

func previewPDFImpl(ctx context.Context, input, output string) error {
	style, err := ParseStyle(Style)
	if err != nil {
		return err
	}
	encode, err := encoderFor(output)
	if err != nil {
		return err
	}

	s, err := openSession(input)
	if err != nil {
		return err
	}
	p, err := s.Preview(Settings.PreviewScale)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			Logger.Warn("closing renderer", zap.Error(err))
		}
	}()

	img, err := p.Render(ctx, Page-1, Scale, style)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := encode(&buf, img.RGBA); err != nil {
		return err
	}
	if err := writeAtomic(output, buf.Bytes()); err != nil {
		return err
	}

	b := img.Bounds()
	Logger.Info("preview written",
		zap.String("output", output),
		zap.Int("page", Page),
		zap.Int("width", b.Dx()),
		zap.Int("height", b.Dy()),
	)
	fmt.Fprintf(Stdout, "Page %d written to %s (%dx%d)\n", Page, output, b.Dx(), b.Dy())
	return nil
}

// ParseStyle parses "pending" or "applied".
func ParseStyle(s string) (preview.Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return preview.Pending, nil
	case "applied":
		return preview.Applied, nil
	}
	return 0, fmt.Errorf("invalid style %q, want pending or applied", s)
}

type encoder func(io.Writer, image.Image) error

func encoderFor(path string) (encoder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return png.Encode, nil
	case ".bmp":
		return bmp.Encode, nil
	case ".tif", ".tiff":
		return func(w io.Writer, m image.Image) error {
			return tiff.Encode(w, m, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
		}, nil
	}
	return nil, fmt.Errorf("unsupported image format %q, use .png, .bmp or .tiff", filepath.Ext(path))
}
