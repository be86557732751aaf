// Package fragment holds the positioned text runs a page emits and the spans
// a phrase search selects from them.
//
// Fragments are kept in content-stream reading order. Nothing in this module
// re-sorts them; the span matcher depends on that order.
package fragment

import (
	"math"
	"strings"

	"github.com/digitorus/pdfredact/coords"
)

// TextFragment is one positioned run of text on a page.
//
// X and Y are the bottom-left corner of the rendered extent in page space
// (origin bottom-left, y grows upward). Width and Height are in the same units.
type TextFragment struct {
	PageIndex int     `json:"page"`
	Text      string  `json:"text"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// MaxX returns the right edge of the fragment.
func (f TextFragment) MaxX() float64 { return f.X + f.Width }

// MaxY returns the top edge of the fragment.
func (f TextFragment) MaxY() float64 { return f.Y + f.Height }

// Bounds returns the fragment extent as a page-space rectangle.
func (f TextFragment) Bounds() coords.Rect {
	return coords.Rect{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height}
}

// Finite reports whether all geometry fields are finite numbers.
func (f TextFragment) Finite() bool {
	for _, v := range [...]float64{f.X, f.Y, f.Width, f.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MatchSpan is a contiguous run of fragments on a single page whose
// normalized text equals a search phrase. Start and End are inclusive
// indexes into the fragment list the span was found in. Term is the phrase
// as it was searched for.
type MatchSpan struct {
	PageIndex int            `json:"page"`
	Start     int            `json:"start"`
	End       int            `json:"end"`
	Term      string         `json:"term,omitempty"`
	Fragments []TextFragment `json:"fragments"`
}

// Len returns the number of fragments in the span.
func (s MatchSpan) Len() int { return s.End - s.Start + 1 }

// Text joins the fragment strings with a single space.
func (s MatchSpan) Text() string {
	parts := make([]string, len(s.Fragments))
	for i, f := range s.Fragments {
		parts[i] = f.Text
	}
	return strings.Join(parts, " ")
}

// Range is a half-open index range [From, To) of fragments on one page.
type Range struct {
	PageIndex int
	From, To  int
}

// ByPage splits an ordered fragment list into per-page ranges, in the order
// the pages first appear. A page that appears in two separate runs yields two
// ranges.
func ByPage(fragments []TextFragment) []Range {
	var ranges []Range
	for i, f := range fragments {
		if len(ranges) > 0 && ranges[len(ranges)-1].PageIndex == f.PageIndex {
			ranges[len(ranges)-1].To = i + 1
			continue
		}
		ranges = append(ranges, Range{PageIndex: f.PageIndex, From: i, To: i + 1})
	}
	return ranges
}

// OnPage returns the fragments of the given page, preserving order.
func OnPage(fragments []TextFragment, page int) []TextFragment {
	var out []TextFragment
	for _, f := range fragments {
		if f.PageIndex == page {
			out = append(out, f)
		}
	}
	return out
}
