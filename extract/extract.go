// Package extract builds text fragments from PDF page content.
//
// The underlying reader reports one entry per glyph. Glyphs are grouped into
// word fragments, so a phrase search can start at any word and a match covers
// whole words. Fragment order follows the content stream.
package extract

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"strings"
	"unicode"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/digitorus/pdfredact/fragment"
)

// ErrMalformedContent is returned when a page content stream cannot be interpreted.
var ErrMalformedContent = errors.New("malformed page content")

const (
	// DescentRatio places the bottom of a fragment below the baseline, as a
	// fraction of the font size.
	DescentRatio = 0.22
	// DefaultGapRatio is the horizontal gap, as a fraction of the font size,
	// that separates two words without a space glyph.
	DefaultGapRatio = 0.25
	// fallbackAdvance is used for fonts without a /Widths array.
	fallbackAdvance = 0.5
)

// Options tune word grouping.
type Options struct {
	GapRatio float64
}

func (o Options) gap() float64 {
	if o.GapRatio > 0 {
		return o.GapRatio
	}
	return DefaultGapRatio
}

// Page is the extraction result of one page.
type Page struct {
	Index     int
	Fragments []fragment.TextFragment
}

// Iter returns an iterator over the fragments of every page. A page whose
// content cannot be interpreted yields an error for that page only; the
// caller decides whether to continue.
func Iter(rdr *lpdf.Reader, opts Options) iter.Seq2[*Page, error] {
	return func(yield func(*Page, error) bool) {
		n := rdr.NumPage()
		for i := 0; i < n; i++ {
			frags, err := PageFragments(rdr.Page(i+1), i, opts)
			if err != nil {
				if !yield(nil, fmt.Errorf("page %d: %w", i, err)) {
					return
				}
				continue
			}
			if !yield(&Page{Index: i, Fragments: frags}, nil) {
				return
			}
		}
	}
}

// Document returns the fragments of all pages in reading order. The first
// page error aborts extraction.
func Document(rdr *lpdf.Reader, opts Options) ([]fragment.TextFragment, error) {
	var all []fragment.TextFragment
	for page, err := range Iter(rdr, opts) {
		if err != nil {
			return nil, err
		}
		all = append(all, page.Fragments...)
	}
	return all, nil
}

// PageFragments extracts the word fragments of a single page.
func PageFragments(p lpdf.Page, pageIndex int, opts Options) (frags []fragment.TextFragment, err error) {
	if p.V.IsNull() {
		return nil, fmt.Errorf("page not found: %w", ErrMalformedContent)
	}

	// The reader panics on content it cannot interpret.
	defer func() {
		if r := recover(); r != nil {
			frags = nil
			err = fmt.Errorf("%v: %w", r, ErrMalformedContent)
		}
	}()

	content := p.Content()
	g := grouper{page: pageIndex, gapRatio: opts.gap()}
	for _, t := range content.Text {
		g.add(t)
	}
	g.flush()
	return g.out, nil
}

type grouper struct {
	page     int
	gapRatio float64

	out []fragment.TextFragment

	text     strings.Builder
	font     string
	size     float64
	baseline float64
	start    float64
	end      float64
	lastRawX float64
}

func (g *grouper) add(t lpdf.Text) {
	if t.S == "" {
		return
	}
	if strings.TrimFunc(t.S, unicode.IsSpace) == "" {
		g.flush()
		return
	}

	size := math.Abs(t.FontSize)
	if size == 0 {
		size = 1
	}
	x := t.X
	w := t.W
	if w <= 0 {
		w = fallbackAdvance * size * float64(len([]rune(t.S)))
		// Without widths the pen does not advance; continue from the last glyph.
		if g.text.Len() > 0 && math.Abs(x-g.lastRawX) < 1e-9 {
			x = g.end
		}
	}

	if g.text.Len() > 0 && !g.continues(t, x, size) {
		g.flush()
	}
	if g.text.Len() == 0 {
		g.font = t.Font
		g.size = size
		g.baseline = t.Y
		g.start = x
		g.end = x
	}
	g.text.WriteString(t.S)
	g.end = math.Max(g.end, x+w)
	g.lastRawX = t.X
}

func (g *grouper) continues(t lpdf.Text, x, size float64) bool {
	if t.Font != g.font || math.Abs(size-g.size) > 0.01*g.size {
		return false
	}
	if math.Abs(t.Y-g.baseline) > 0.1*g.size {
		return false
	}
	gap := x - g.end
	return gap <= g.gapRatio*g.size && gap >= -0.5*g.size
}

func (g *grouper) flush() {
	if g.text.Len() == 0 {
		return
	}
	g.out = append(g.out, fragment.TextFragment{
		PageIndex: g.page,
		Text:      g.text.String(),
		X:         g.start,
		Y:         g.baseline - DescentRatio*g.size,
		Width:     g.end - g.start,
		Height:    g.size,
	})
	g.text.Reset()
}
