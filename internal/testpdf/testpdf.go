// Package testpdf writes small, valid PDF files for tests.
//
// Every page uses one Helvetica font resource with explicit widths of 500
// units per glyph, so a glyph of size s advances s/2 points. That makes the
// geometry of extracted text easy to predict.
package testpdf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"strings"
)

// GlyphWidth is the advance of every glyph, in thousandths of the font size.
const GlyphWidth = 500

// Line is one run of text drawn with a single Tj.
type Line struct {
	X, Y float64
	Size float64
	Text string
}

// Page describes a page to generate.
type Page struct {
	Width, Height float64
	// CropBox overrides the visible box when non-nil (llx, lly, urx, ury).
	CropBox *[4]float64
	Rotate  int
	Lines   []Line
	// Raw is appended to the content stream verbatim.
	Raw string
}

// Options change the container format.
type Options struct {
	// XrefStream writes a cross-reference stream instead of a table.
	XrefStream bool
	// Encrypt adds a standard security handler with an unknown password.
	Encrypt bool
	// ContentsArray stores each page's content as an array of two streams.
	ContentsArray bool
}

// Letter returns a US Letter page with the given lines.
func Letter(lines ...Line) Page {
	return Page{Width: 612, Height: 792, Lines: lines}
}

// Build writes a PDF with the given pages and default options.
func Build(pages ...Page) []byte {
	return BuildWithOptions(Options{}, pages...)
}

// BuildWithOptions writes a PDF with the given pages.
func BuildWithOptions(opts Options, pages ...Page) []byte {
	w := &writer{}
	w.buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	// Object layout: 1 catalog, 2 page tree, 3 font, then per page the page
	// object followed by its content streams.
	perPage := 2
	if opts.ContentsArray {
		perPage = 3
	}
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+i*perPage)
	}

	w.object(1, "<< /Type /Catalog /Pages 2 0 R >>")
	w.object(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	w.object(3, fontDict())

	for i, p := range pages {
		id := 4 + i*perPage
		var dict strings.Builder
		fmt.Fprintf(&dict, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s]", num(p.Width), num(p.Height))
		if p.CropBox != nil {
			fmt.Fprintf(&dict, " /CropBox [%s %s %s %s]", num(p.CropBox[0]), num(p.CropBox[1]), num(p.CropBox[2]), num(p.CropBox[3]))
		}
		if p.Rotate != 0 {
			fmt.Fprintf(&dict, " /Rotate %d", p.Rotate)
		}
		dict.WriteString(" /Resources << /Font << /F1 3 0 R >> >>")

		content := pageContent(p)
		if opts.ContentsArray {
			half := len(content) / 2
			if cut := strings.Index(content[half:], "BT"); cut >= 0 {
				half += cut
			} else {
				half = len(content)
			}
			fmt.Fprintf(&dict, " /Contents [%d 0 R %d 0 R] >>", id+1, id+2)
			w.object(id, dict.String())
			w.stream(id+1, content[:half])
			w.stream(id+2, content[half:])
			continue
		}
		fmt.Fprintf(&dict, " /Contents %d 0 R >>", id+1)
		w.object(id, dict.String())
		w.stream(id+1, content)
	}

	size := 4 + len(pages)*perPage
	var trailer strings.Builder
	fmt.Fprintf(&trailer, "/Root 1 0 R /ID [<%s> <%s>]", strings.Repeat("ab", 16), strings.Repeat("cd", 16))
	if opts.Encrypt {
		fmt.Fprintf(&trailer, " /Encrypt << /Filter /Standard /V 1 /R 2 /O <%s> /U <%s> /P -4 >>",
			strings.Repeat("01", 32), strings.Repeat("02", 32))
	}

	if opts.XrefStream {
		w.xrefStream(size, trailer.String())
	} else {
		w.xrefTable(size, trailer.String())
	}
	return w.buf.Bytes()
}

type writer struct {
	buf     bytes.Buffer
	offsets map[int]int
}

func (w *writer) object(id int, body string) {
	if w.offsets == nil {
		w.offsets = make(map[int]int)
	}
	w.offsets[id] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n%s\nendobj\n", id, body)
}

func (w *writer) stream(id int, content string) {
	w.object(id, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
}

func (w *writer) xrefTable(size int, trailer string) {
	start := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n", size)
	w.buf.WriteString("0000000000 65535 f\r\n")
	for id := 1; id < size; id++ {
		fmt.Fprintf(&w.buf, "%010d 00000 n\r\n", w.offsets[id])
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n", size, trailer, start)
}

func (w *writer) xrefStream(size int, trailer string) {
	id := size
	start := w.buf.Len()
	w.offsets[id] = start

	var rows bytes.Buffer
	row := func(typ byte, off uint32, gen byte) {
		rows.WriteByte(typ)
		_ = binary.Write(&rows, binary.BigEndian, off)
		rows.WriteByte(gen)
	}
	row(0, 0, 255)
	for i := 1; i <= id; i++ {
		row(1, uint32(w.offsets[i]), 0)
	}

	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	_, _ = zw.Write(rows.Bytes())
	_ = zw.Close()

	fmt.Fprintf(&w.buf, "%d 0 obj\n<< /Type /XRef /Size %d /W [1 4 1] /Filter /FlateDecode /Length %d %s >>\nstream\n",
		id, id+1, z.Len(), trailer)
	w.buf.Write(z.Bytes())
	fmt.Fprintf(&w.buf, "\nendstream\nendobj\nstartxref\n%d\n%%%%EOF\n", start)
}

func fontDict() string {
	widths := make([]string, 95)
	for i := range widths {
		widths[i] = fmt.Sprint(GlyphWidth)
	}
	return fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>",
		strings.Join(widths, " "))
}

func pageContent(p Page) string {
	var b strings.Builder
	for _, l := range p.Lines {
		fmt.Fprintf(&b, "BT /F1 %s Tf %s %s Td (%s) Tj ET\n", num(l.Size), num(l.X), num(l.Y), escape(l.Text))
	}
	b.WriteString(p.Raw)
	return b.String()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

func num(f float64) string {
	return fmt.Sprintf("%g", f)
}
