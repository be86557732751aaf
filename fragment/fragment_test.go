package fragment

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestByPage(t *testing.T) {
	frags := []TextFragment{
		{PageIndex: 0, Text: "a"},
		{PageIndex: 0, Text: "b"},
		{PageIndex: 1, Text: "c"},
		{PageIndex: 0, Text: "d"},
	}

	want := []Range{
		{PageIndex: 0, From: 0, To: 2},
		{PageIndex: 1, From: 2, To: 3},
		{PageIndex: 0, From: 3, To: 4},
	}
	if diff := cmp.Diff(want, ByPage(frags)); diff != "" {
		t.Errorf("ByPage() mismatch (-want +got):\n%s", diff)
	}

	if got := ByPage(nil); got != nil {
		t.Errorf("ByPage(nil) = %v, want nil", got)
	}
}

func TestOnPage(t *testing.T) {
	frags := []TextFragment{
		{PageIndex: 0, Text: "a"},
		{PageIndex: 1, Text: "b"},
		{PageIndex: 0, Text: "c"},
	}
	got := OnPage(frags, 0)
	if len(got) != 2 || got[0].Text != "a" || got[1].Text != "c" {
		t.Errorf("OnPage() = %v, want fragments a and c", got)
	}
}

func TestFinite(t *testing.T) {
	tests := []struct {
		name string
		f    TextFragment
		want bool
	}{
		{"regular", TextFragment{X: 1, Y: 2, Width: 3, Height: 4}, true},
		{"nan", TextFragment{X: math.NaN(), Width: 1, Height: 1}, false},
		{"inf", TextFragment{Width: math.Inf(1), Height: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.f.Finite(); got != tt.want {
				t.Errorf("Finite() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchSpanText(t *testing.T) {
	s := MatchSpan{Start: 2, End: 3, Fragments: []TextFragment{{Text: "Jane"}, {Text: "Smith"}}}
	if got := s.Text(); got != "Jane Smith" {
		t.Errorf("Text() = %q, want %q", got, "Jane Smith")
	}
	if got := s.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestBounds(t *testing.T) {
	f := TextFragment{X: 72, Y: 697.36, Width: 24, Height: 12}
	b := f.Bounds()
	if b.X != 72 || b.Y != 697.36 || b.MaxX() != 96 || b.Height != 12 {
		t.Errorf("Bounds() = %+v", b)
	}
	if b.MaxX() != f.MaxX() || b.MaxY() != f.MaxY() {
		t.Errorf("Bounds() edges %v, %v, want %v, %v", b.MaxX(), b.MaxY(), f.MaxX(), f.MaxY())
	}
}
