package region

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"

	"github.com/digitorus/pdfredact/coords"
	"github.com/digitorus/pdfredact/fragment"
)

var approx = cmpopts.EquateApprox(0, coords.Tolerance)

func TestFromSpan(t *testing.T) {
	span := fragment.MatchSpan{
		PageIndex: 0,
		Start:     0,
		End:       1,
		Fragments: []fragment.TextFragment{
			{PageIndex: 0, Text: "Jane", X: 72, Y: 698, Width: 24, Height: 12},
			{PageIndex: 0, Text: "Smith", X: 99, Y: 696, Width: 36, Height: 16},
		},
	}

	r, err := NewAggregator().FromSpan(span)
	if err != nil {
		t.Fatalf("FromSpan() error = %v", err)
	}
	want := coords.Rect{X: 71, Y: 695, Width: 65, Height: 18}
	if diff := cmp.Diff(want, r.Rect, approx); diff != "" {
		t.Errorf("FromSpan() rect mismatch (-want +got):\n%s", diff)
	}
	if r.PageIndex != 0 || r.Source != Phrase || r.Term != "Jane Smith" || r.Text != "Jane Smith" {
		t.Errorf("FromSpan() = %+v", r)
	}
	if r.ID == uuid.Nil {
		t.Error("FromSpan() returned a region without id")
	}

	for _, f := range span.Fragments {
		fr := coords.Rect{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height}
		if u := r.Rect.Union(fr); !u.Equal(r.Rect) {
			t.Errorf("region %+v does not enclose fragment %q %+v", r.Rect, f.Text, fr)
		}
	}
}

func TestFromSpanKeepsSearchedTerm(t *testing.T) {
	span := fragment.MatchSpan{
		Term: "jane smith",
		Fragments: []fragment.TextFragment{
			{Text: "Ja", X: 72, Y: 698, Width: 12, Height: 12},
			{Text: "ne", X: 84, Y: 698, Width: 12, Height: 12},
			{Text: "Smith,", X: 99, Y: 698, Width: 36, Height: 12},
		},
	}
	r, err := NewAggregator().FromSpan(span)
	if err != nil {
		t.Fatalf("FromSpan() error = %v", err)
	}
	if r.Term != "jane smith" {
		t.Errorf("FromSpan() term = %q, want %q", r.Term, "jane smith")
	}
	if r.Text != "Ja ne Smith," {
		t.Errorf("FromSpan() text = %q, want %q", r.Text, "Ja ne Smith,")
	}
}

func TestFromSpanDegenerate(t *testing.T) {
	tests := []struct {
		name string
		span fragment.MatchSpan
	}{
		{"no fragments", fragment.MatchSpan{}},
		{"non finite", fragment.MatchSpan{Fragments: []fragment.TextFragment{{X: math.NaN(), Width: 1, Height: 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewAggregator().FromSpan(tt.span); !errors.Is(err, ErrEmpty) {
				t.Errorf("FromSpan() error = %v, want %v", err, ErrEmpty)
			}
		})
	}

	spans := []fragment.MatchSpan{
		{},
		{Fragments: []fragment.TextFragment{{X: 1, Y: 1, Width: 1, Height: 1}}},
	}
	if got := NewAggregator().FromSpans(spans); len(got) != 1 {
		t.Errorf("FromSpans() returned %d regions, want 1", len(got))
	}
}

func TestCaptureThreshold(t *testing.T) {
	v := coords.NewViewport(792, 1.25)
	c := NewCapture()

	if _, err := c.FromScreen(0, coords.Rect{X: 100, Y: 100, Width: 2, Height: 2}, v); !errors.Is(err, ErrTooSmall) {
		t.Errorf("FromScreen(2x2) error = %v, want %v", err, ErrTooSmall)
	}
	if _, err := c.FromScreen(0, coords.Rect{X: 100, Y: 100, Width: 50, Height: 3}, v); !errors.Is(err, ErrTooSmall) {
		t.Errorf("FromScreen(50x3) error = %v, want %v", err, ErrTooSmall)
	}

	screen := coords.Rect{X: 100, Y: 100, Width: 50, Height: 20}
	r, err := c.FromScreen(0, screen, v)
	if err != nil {
		t.Fatalf("FromScreen(50x20) error = %v", err)
	}
	if r.Source != Manual {
		t.Errorf("Source = %v, want %v", r.Source, Manual)
	}
	if diff := cmp.Diff(screen, v.PageToViewport(r.Rect), approx); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCaptureReverseDrag(t *testing.T) {
	v := coords.Viewport{Scale: 2, PanX: 10, PanY: -30, CanvasHeight: 1584}
	r, err := NewCapture().FromScreen(2, coords.Rect{X: 200, Y: 300, Width: -60, Height: -40}, v)
	if err != nil {
		t.Fatalf("FromScreen() error = %v", err)
	}
	want := coords.Rect{X: 140, Y: 260, Width: 60, Height: 40}
	if diff := cmp.Diff(want, v.PageToViewport(r.Rect), approx); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if r.PageIndex != 2 {
		t.Errorf("PageIndex = %d, want 2", r.PageIndex)
	}
}

func TestCaptureFromRaster(t *testing.T) {
	rs, err := coords.NewRaster(coords.Rect{Width: 612, Height: 792}, 90, 1)
	if err != nil {
		t.Fatalf("NewRaster() error = %v", err)
	}
	c := NewCapture()
	if _, err := c.FromRaster(0, coords.Rect{X: 10, Y: 10, Width: 3, Height: 30}, rs); !errors.Is(err, ErrTooSmall) {
		t.Errorf("FromRaster(3x30) error = %v, want %v", err, ErrTooSmall)
	}

	screen := coords.Rect{X: 100, Y: 50, Width: 40, Height: 20}
	r, err := c.FromRaster(0, screen, rs)
	if err != nil {
		t.Fatalf("FromRaster() error = %v", err)
	}
	// On a page rotated by 90 degrees the drag's width runs along page y.
	if !near(r.Rect.Width, 20) || !near(r.Rect.Height, 40) {
		t.Errorf("FromRaster() page rect = %+v, want 20x40", r.Rect)
	}
	if diff := cmp.Diff(screen, rs.PageToRaster(r.Rect), approx); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCollection(t *testing.T) {
	agg := NewAggregator()
	mk := func(page int, x float64) Region {
		r, err := agg.FromRect(page, coords.Rect{X: x, Y: 10, Width: 10, Height: 10})
		if err != nil {
			t.Fatalf("FromRect() error = %v", err)
		}
		return r
	}

	c := NewCollection(2)
	a, b, d := mk(0, 1), mk(1, 2), mk(0, 3)
	if err := c.Add(a, b, d); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := c.Add(mk(0, 4), mk(2, 5)); !errors.Is(err, ErrPageOutOfRange) {
		t.Errorf("Add() error = %v, want %v", err, ErrPageOutOfRange)
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d after rejected Add, want 3", c.Len())
	}

	snap := c.Snapshot()

	last, err := c.Undo()
	if err != nil || last.ID != d.ID {
		t.Errorf("Undo() = %v, %v, want region %v", last.ID, err, d.ID)
	}
	if _, err := c.Remove(a.ID); err != nil {
		t.Errorf("Remove() error = %v", err)
	}
	if _, err := c.Remove(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove() twice error = %v, want %v", err, ErrNotFound)
	}
	if got := c.Snapshot(); len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("Snapshot() = %v, want only region b", got)
	}
	if len(snap) != 3 || snap[0].ID != a.ID {
		t.Error("earlier snapshot changed after edits")
	}
	if got := ForPage(snap, 0); len(got) != 2 || got[1].ID != d.ID {
		t.Errorf("ForPage(0) = %v", got)
	}

	c.Clear()
	if _, err := c.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo() on empty error = %v, want %v", err, ErrNothingToUndo)
	}
}

func TestOverlappingRegionsAreKept(t *testing.T) {
	agg := NewAggregator()
	r1, _ := agg.FromRect(0, coords.Rect{X: 10, Y: 10, Width: 50, Height: 50})
	r2, _ := agg.FromRect(0, coords.Rect{X: 10, Y: 10, Width: 50, Height: 50})
	c := NewCollection(1)
	if err := c.Add(r1, r2); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if got := GroupByPage(c.Snapshot()); len(got[0]) != 2 {
		t.Errorf("GroupByPage() = %v, want two regions on page 0", got)
	}
}
