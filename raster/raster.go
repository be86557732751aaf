// Package raster renders PDF pages to bitmaps.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

var (
	// ErrProtected is returned for documents that need a password.
	ErrProtected = errors.New("document needs a password")
	// ErrPageOutOfRange is returned for page indices outside the document.
	ErrPageOutOfRange = errors.New("page out of range")
	// ErrInvalidScale is returned for non-positive scales.
	ErrInvalidScale = errors.New("scale must be positive")
)

// Rasterizer renders the pages of one document. Implementations need not
// be safe for concurrent use.
type Rasterizer interface {
	PageCount() int
	// RenderPage renders the visible area of page i (zero based) with its
	// rotation applied, at scale pixels per point.
	RenderPage(ctx context.Context, i int, scale float64) (*image.RGBA, error)
	Close() error
}

// Opener opens a Rasterizer for a document held in memory.
type Opener func(data []byte) (Rasterizer, error)

// MuPDF renders pages with MuPDF.
type MuPDF struct {
	doc *fitz.Document
}

// OpenMuPDF is an Opener backed by MuPDF.
func OpenMuPDF(data []byte) (Rasterizer, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		if errors.Is(err, fitz.ErrNeedsPassword) {
			return nil, fmt.Errorf("%v: %w", err, ErrProtected)
		}
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	return &MuPDF{doc: doc}, nil
}

// PageCount returns the number of pages.
func (m *MuPDF) PageCount() int {
	return m.doc.NumPage()
}

// RenderPage renders page i at 72*scale dpi. MuPDF cannot be interrupted
// mid-page, so ctx is checked before and after rendering.
func (m *MuPDF) RenderPage(ctx context.Context, i int, scale float64) (*image.RGBA, error) {
	if err := Check(m, i, scale); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := m.doc.ImageDPI(i, 72*scale)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", i, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

// Close releases the document.
func (m *MuPDF) Close() error {
	return m.doc.Close()
}

// Check validates a page index and scale against r.
func Check(r Rasterizer, i int, scale float64) error {
	if i < 0 || i >= r.PageCount() {
		return fmt.Errorf("page %d of %d: %w", i, r.PageCount(), ErrPageOutOfRange)
	}
	if !(scale > 0) {
		return fmt.Errorf("%v: %w", scale, ErrInvalidScale)
	}
	return nil
}
