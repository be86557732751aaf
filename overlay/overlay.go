// Package overlay applies recoverable redactions by appending opaque
// rectangles to existing pages with a PDF incremental update.
//
// The original bytes are kept unchanged at the start of the output. Each
// redacted page gets a new revision of its page dictionary whose /Contents
// wraps the original streams in a saved graphics state and appends a stream
// that fills the redaction rectangles. Text, fonts and other objects are
// untouched and remain extractable; this is not a secure redaction.
package overlay

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"slices"

	"github.com/digitorus/pdf"
	"github.com/mattetti/filebuffer"
	"go.uber.org/zap"

	ipdf "github.com/digitorus/pdfredact/internal/pdf"
	"github.com/digitorus/pdfredact/region"
)

var (
	// ErrEncrypted is returned for documents with a security handler.
	ErrEncrypted = ipdf.ErrEncrypted
	// ErrMalformed is returned when the document structure cannot be read.
	ErrMalformed = ipdf.ErrMalformed
	// ErrPageOutOfRange is returned for regions on pages the document does not have.
	ErrPageOutOfRange = region.ErrPageOutOfRange
)

// Black is the default fill colour.
var Black = [3]float64{0, 0, 0}

// Options configure Apply.
type Options struct {
	// Fill is the RGB colour of the rectangles, each component in [0, 1].
	Fill [3]float64
	// CompressLevel is the zlib level for new content streams.
	CompressLevel int
	Logger        *zap.Logger
}

// DefaultOptions returns black fills with default compression.
func DefaultOptions() Options {
	return Options{Fill: Black, CompressLevel: zlib.DefaultCompression}
}

// Context holds the state of one incremental update.
type Context struct {
	InputData     []byte
	OutputBuffer  *filebuffer.Buffer
	PDFReader     *pdf.Reader
	CompressLevel int
	NewXrefStart  int64

	lastXrefID         uint32
	newXrefEntries     []xrefEntry
	updatedXrefEntries []xrefEntry
}

type xrefEntry struct {
	ID     uint32
	Gen    uint16
	Offset int64
}

// Apply returns a new revision of input with every region drawn as an
// opaque rectangle on its page. An empty region list returns a copy of the
// input. The output is only returned once it is complete.
func Apply(ctx context.Context, input []byte, regions []region.Region, opts Options) (out []byte, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// The structural reader panics on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%v: %w", r, ErrMalformed)
		}
	}()

	rdr, pages, err := ipdf.Open(input)
	if err != nil {
		return nil, err
	}
	for _, r := range regions {
		if r.PageIndex < 0 || r.PageIndex >= len(pages) {
			return nil, fmt.Errorf("page %d of %d: %w", r.PageIndex, len(pages), ErrPageOutOfRange)
		}
	}
	if len(regions) == 0 {
		return slices.Clone(input), nil
	}

	c := &Context{
		InputData:     input,
		OutputBuffer:  filebuffer.New([]byte{}),
		PDFReader:     rdr,
		CompressLevel: opts.CompressLevel,
	}
	if err := c.begin(); err != nil {
		return nil, err
	}

	byPage := region.GroupByPage(regions)
	order := make([]int, 0, len(byPage))
	for page := range byPage {
		order = append(order, page)
	}
	slices.Sort(order)

	openID, err := c.addStream([]byte("q\n"))
	if err != nil {
		return nil, fmt.Errorf("failed to add graphics state stream: %w", err)
	}

	for _, page := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info := pages[page]
		fillID, err := c.addStream(fillContent(byPage[page], opts.Fill))
		if err != nil {
			return nil, fmt.Errorf("page %d: failed to add fill stream: %w", page, err)
		}
		if err := c.updatePage(info, openID, fillID); err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		logger.Debug("page redacted",
			zap.Int("page", page),
			zap.Int("regions", len(byPage[page])),
			zap.Uint32("object", info.ID()),
		)
	}

	if err := c.writeXref(); err != nil {
		return nil, fmt.Errorf("failed to write xref: %w", err)
	}
	if err := c.writeTrailer(); err != nil {
		return nil, fmt.Errorf("failed to write trailer: %w", err)
	}

	return slices.Clone(c.OutputBuffer.Buff.Bytes()), nil
}

// begin copies the original revision and sets the first free object number.
func (c *Context) begin() error {
	if _, err := c.OutputBuffer.Write(c.InputData); err != nil {
		return err
	}
	if n := len(c.InputData); n > 0 && c.InputData[n-1] != '\n' && c.InputData[n-1] != '\r' {
		if _, err := c.OutputBuffer.Write([]byte("\n")); err != nil {
			return err
		}
	}

	size := c.PDFReader.Trailer().Key("Size").Int64()
	if size <= 0 {
		size = c.PDFReader.XrefInformation.ItemCount
	}
	if size <= 0 {
		return fmt.Errorf("trailer has no /Size: %w", ErrMalformed)
	}
	c.lastXrefID = uint32(size - 1)
	return nil
}

// fillContent closes the graphics state opened before the original content
// and fills every rectangle in page space.
func fillContent(regions []region.Region, fill [3]float64) []byte {
	var b bytes.Buffer
	b.WriteString("Q\nq\n")
	fmt.Fprintf(&b, "%s %s %s rg\n", ipdf.FormatNumber(fill[0]), ipdf.FormatNumber(fill[1]), ipdf.FormatNumber(fill[2]))
	for _, r := range regions {
		rect := r.Rect.Normalize()
		fmt.Fprintf(&b, "%s %s %s %s re\n",
			ipdf.FormatNumber(rect.X), ipdf.FormatNumber(rect.Y), ipdf.FormatNumber(rect.Width), ipdf.FormatNumber(rect.Height))
	}
	b.WriteString("f\nQ\n")
	return b.Bytes()
}
