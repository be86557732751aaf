// Package region turns matched text spans and manually drawn rectangles into
// redaction regions, and keeps the ordered collection a session edits.
//
// A Region is always expressed in page space. Viewport and raster
// coordinates are converted at the boundary with package coords.
package region

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/digitorus/pdfredact/coords"
	"github.com/digitorus/pdfredact/fragment"
)

// DefaultPadding is added on every side of a region built from text, in page units.
const DefaultPadding = 1.0

// DefaultMinPixels is the smallest screen-space drag accepted, in pixels,
// for both dimensions.
const DefaultMinPixels = 5.0

var (
	// ErrTooSmall is returned for manual rectangles at or below the minimum size.
	ErrTooSmall = errors.New("rectangle too small")
	// ErrEmpty is returned when no fragment contributed finite geometry.
	ErrEmpty = errors.New("no geometry to aggregate")
)

// Source records how a region was created.
type Source int

const (
	Phrase Source = iota
	Manual
)

func (s Source) String() string {
	switch s {
	case Phrase:
		return "phrase"
	case Manual:
		return "manual"
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// Region is a page-space rectangle to black out.
type Region struct {
	ID        uuid.UUID   `json:"id"`
	PageIndex int         `json:"page"`
	Rect      coords.Rect `json:"rect"`
	Source    Source      `json:"source"`
	Term      string      `json:"term,omitempty"` // phrase searched for
	Text      string      `json:"text,omitempty"` // text under a phrase region
}

// Aggregator builds regions from spans and rectangles.
type Aggregator struct {
	Padding float64
}

// NewAggregator returns an aggregator with the default padding.
func NewAggregator() Aggregator {
	return Aggregator{Padding: DefaultPadding}
}

// FromSpan returns the padded union bounding box of the span's fragments.
// Each fragment contributes its own vertical extent, so mixed font sizes
// are covered. Fragments with non-finite geometry are ignored.
func (a Aggregator) FromSpan(span fragment.MatchSpan) (Region, error) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	var text []string
	for _, f := range span.Fragments {
		if !f.Finite() {
			continue
		}
		b := f.Bounds().Normalize()
		minX = math.Min(minX, b.X)
		minY = math.Min(minY, b.Y)
		maxX = math.Max(maxX, b.MaxX())
		maxY = math.Max(maxY, b.MaxY())
		text = append(text, f.Text)
	}

	r := coords.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
	if !r.Finite() {
		return Region{}, ErrEmpty
	}
	r = r.Pad(a.Padding)
	if !r.Valid() {
		return Region{}, ErrEmpty
	}
	matched := strings.Join(text, " ")
	term := span.Term
	if term == "" {
		term = matched
	}
	return Region{
		ID:        uuid.New(),
		PageIndex: span.PageIndex,
		Rect:      r,
		Source:    Phrase,
		Term:      term,
		Text:      matched,
	}, nil
}

// FromSpans aggregates every span, skipping those without geometry.
func (a Aggregator) FromSpans(spans []fragment.MatchSpan) []Region {
	out := make([]Region, 0, len(spans))
	for _, s := range spans {
		r, err := a.FromSpan(s)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FromRect wraps an already page-space rectangle. It is not padded, so the
// region converts back to exactly the rectangle that was drawn.
func (a Aggregator) FromRect(page int, r coords.Rect) (Region, error) {
	r = r.Normalize()
	if !r.Valid() {
		return Region{}, ErrEmpty
	}
	return Region{ID: uuid.New(), PageIndex: page, Rect: r, Source: Manual}, nil
}
