// Package pdfredact finds and redacts content in PDF documents.
//
// Regions to redact are created from phrase matches or from rectangles drawn
// on a rendered page, collected in a Session and exported in one of two
// modes:
//
//   - Recoverable appends opaque rectangles with an incremental update. The
//     original content is still present underneath.
//   - Secure renders every page to an image, paints the regions into the
//     pixels and rebuilds the document from those images.
//
// Basic usage:
//
//	doc, err := pdfredact.OpenFile("report.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s := pdfredact.NewSession(doc, pdfredact.DefaultOptions())
//	if _, err := s.AddPhrase("Jane Smith"); err != nil {
//	    log.Fatal(err)
//	}
//
//	out, err := s.Export(ctx, pdfredact.Secure)
package pdfredact

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/digitorus/pdfredact/coords"
	"github.com/digitorus/pdfredact/extract"
	"github.com/digitorus/pdfredact/fragment"
	ipdf "github.com/digitorus/pdfredact/internal/pdf"
)

// Document is a loaded PDF document. Its bytes are never modified; exports
// produce new byte slices.
type Document struct {
	name  string
	data  []byte
	pages []ipdf.PageInfo

	mu        sync.Mutex
	text      *lpdf.Reader
	fragments []fragment.TextFragment
	extracted bool
}

// Open reads a document of the given size from r.
func Open(r io.ReaderAt, size int64) (*Document, error) {
	if size <= 0 {
		return nil, fmt.Errorf("empty file: %w", ErrInvalidInput)
	}
	data := make([]byte, size)
	if _, err := r.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return OpenBytes(data)
}

// OpenFile is a convenience method to load a document from disk. The base
// name of path is reported by Name.
func OpenFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	doc, err := OpenBytes(data)
	if err != nil {
		return nil, err
	}
	doc.name = filepath.Base(path)
	return doc, nil
}

// OpenBytes loads a document held in memory. data must not be modified
// afterwards.
func OpenBytes(data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty file: %w", ErrInvalidInput)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 1024)], "\x00\t\n\r "), []byte("%PDF-")) {
		return nil, fmt.Errorf("missing %%PDF header: %w", ErrInvalidInput)
	}

	_, pages, err := ipdf.Open(data)
	if err != nil {
		return nil, classify(err)
	}

	text, err := openText(data)
	if err != nil {
		return nil, err
	}

	return &Document{
		name:  "document.pdf",
		data:  data,
		pages: pages,
		text:  text,
	}, nil
}

// openText opens the reader used for text extraction.
func openText(data []byte) (rdr *lpdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			rdr = nil
			err = fmt.Errorf("%w: %v", ErrUnreadableDocument, r)
		}
	}()

	rdr, err = lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if err == lpdf.ErrInvalidPassword {
			return nil, fmt.Errorf("%w: %w", ErrProtectedDocument, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnreadableDocument, err)
	}
	return rdr, nil
}

// Name returns the file name the document was opened from.
func (d *Document) Name() string { return d.name }

// Bytes returns the original document. The slice must not be modified.
func (d *Document) Bytes() []byte { return d.data }

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.pages) }

// PageSize returns the displayed size of page i in page units, after
// rotation.
func (d *Document) PageSize(i int) (width, height float64, err error) {
	if i < 0 || i >= len(d.pages) {
		return 0, 0, fmt.Errorf("page %d of %d: %w", i, len(d.pages), ErrInvalidInput)
	}
	w, h := d.pages[i].Size()
	return w, h, nil
}

// Raster returns the raster space of page i rendered at scale.
func (d *Document) Raster(i int, scale float64) (coords.Raster, error) {
	if i < 0 || i >= len(d.pages) {
		return coords.Raster{}, fmt.Errorf("page %d of %d: %w", i, len(d.pages), ErrInvalidInput)
	}
	rs, err := coords.NewRaster(d.pages[i].Box(), d.pages[i].Rotate, scale)
	if err != nil {
		return coords.Raster{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return rs, nil
}

// Viewport returns the viewport of page i displayed at scale, with the
// canvas origin at the top-left corner of the visible page box.
func (d *Document) Viewport(i int, scale float64) (coords.Viewport, error) {
	rs, err := d.Raster(i, scale)
	if err != nil {
		return coords.Viewport{}, err
	}
	return rs.Viewport(), nil
}

// Fragments returns the text fragments of all pages in page order. Text is
// extracted on first use with opts and cached.
func (d *Document) Fragments(opts extract.Options) ([]fragment.TextFragment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.extracted {
		return d.fragments, nil
	}

	frags, err := extract.Document(d.text, opts)
	if err != nil {
		return nil, classify(err)
	}
	d.fragments = frags
	d.extracted = true
	return frags, nil
}
