package match

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/digitorus/pdfredact/fragment"
)

func frags(page int, texts ...string) []fragment.TextFragment {
	out := make([]fragment.TextFragment, len(texts))
	for i, s := range texts {
		out[i] = fragment.TextFragment{PageIndex: page, Text: s, X: float64(i * 40), Y: 700, Width: 35, Height: 12}
	}
	return out
}

type bounds struct{ Page, Start, End int }

func spanBounds(spans []fragment.MatchSpan) []bounds {
	out := make([]bounds, len(spans))
	for i, s := range spans {
		out[i] = bounds{s.PageIndex, s.Start, s.End}
	}
	return out
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Jane Smith", "janesmith"},
		{"  JANE\tSMITH\n", "janesmith"},
		{"ﬁle", "file"}, // ligature
		{"Ｊａｎｅ", "jane"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFind(t *testing.T) {
	tests := []struct {
		name      string
		term      string
		fragments []fragment.TextFragment
		want      []bounds
	}{
		{
			name:      "split over two fragments",
			term:      "jane smith",
			fragments: frags(0, "Jane", "Smith"),
			want:      []bounds{{0, 0, 1}},
		},
		{
			name:      "explicit space fragment",
			term:      "Jane Smith",
			fragments: frags(0, "Dear", "Jane", " ", "Smith", "hello"),
			want:      []bounds{{0, 1, 3}},
		},
		{
			name:      "single fragment",
			term:      "JANE SMITH",
			fragments: frags(0, "jane smith"),
			want:      []bounds{{0, 0, 0}},
		},
		{
			name:      "split inside a word",
			term:      "jane smith",
			fragments: frags(0, "Ja", "ne Sm", "ith"),
			want:      []bounds{{0, 0, 2}},
		},
		{
			name:      "trailing punctuation",
			term:      "jane smith",
			fragments: frags(0, "Jane", "Smith,"),
			want:      []bounds{{0, 0, 1}},
		},
		{
			name:      "leading punctuation does not match",
			term:      "jane",
			fragments: frags(0, "(Jane"),
			want:      nil,
		},
		{
			name:      "trailing letters do not match",
			term:      "jane",
			fragments: frags(0, "Janet"),
			want:      nil,
		},
		{
			name:      "two occurrences",
			term:      "secret",
			fragments: frags(0, "secret", "and", "Secret"),
			want:      []bounds{{0, 0, 0}, {0, 2, 2}},
		},
		{
			name:      "not present",
			term:      "john doe",
			fragments: frags(0, "Jane", "Smith"),
			want:      nil,
		},
		{
			name:      "empty term",
			term:      " \t ",
			fragments: frags(0, "Jane"),
			want:      nil,
		},
		{
			name:      "retry after divergence",
			term:      "ab",
			fragments: frags(0, "a", "a", "b"),
			want:      []bounds{{0, 1, 2}},
		},
		{
			name:      "non overlapping",
			term:      "aa",
			fragments: frags(0, "a", "a", "a"),
			want:      []bounds{{0, 0, 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := spanBounds(Prefix{}.Find(tt.term, tt.fragments))
			if len(got) == 0 {
				got = nil
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Find(%q) mismatch (-want +got):\n%s", tt.term, diff)
			}
		})
	}
}

func TestFindNeverCrossesPages(t *testing.T) {
	list := append(frags(0, "Jane"), frags(1, "Smith")...)
	if got := FindMatches("jane smith", list); len(got) != 0 {
		t.Errorf("FindMatches() = %v, want no spans across pages", spanBounds(got))
	}

	list = append(list, frags(1, "Jane", "Smith")...)
	want := []bounds{{1, 2, 3}}
	if diff := cmp.Diff(want, spanBounds(FindMatches("jane smith", list))); diff != "" {
		t.Errorf("FindMatches() mismatch (-want +got):\n%s", diff)
	}
}

func TestFindArbitrarySplits(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	phrase := "Confidential Account 12345"
	compact := strings.ReplaceAll(phrase, " ", "")

	for iter := 0; iter < 500; iter++ {
		// Cut the compact phrase at random points and randomly re-insert spaces.
		var parts []string
		rest := compact
		for len(rest) > 0 {
			n := 1 + rng.Intn(len(rest))
			part := rest[:n]
			rest = rest[n:]
			if rng.Intn(2) == 0 {
				part = " " + part
			}
			if rng.Intn(3) == 0 {
				part = strings.ToUpper(part)
			}
			parts = append(parts, part)
			if rng.Intn(4) == 0 && len(rest) > 0 {
				parts = append(parts, " ")
			}
		}

		list := frags(0, append(append([]string{"before"}, parts...), "after")...)
		got := spanBounds(FindMatches(phrase, list))
		want := []bounds{{0, 1, len(parts)}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("parts %q: FindMatches() mismatch (-want +got):\n%s", parts, diff)
		}
	}
}

func TestFindBounded(t *testing.T) {
	// Whitespace-only fragments add nothing to the collected text; the
	// fragment cap still ends the attempt.
	texts := []string{"a"}
	for i := 0; i < 100; i++ {
		texts = append(texts, " ")
	}
	texts = append(texts, "b")
	if got := (Prefix{BoundFactor: 2}).Find("ab", frags(0, texts...)); len(got) != 0 {
		t.Errorf("Find() = %v, want no span past the bound", spanBounds(got))
	}
	if got := (Prefix{BoundFactor: 100}).Find("ab", frags(0, texts...)); len(got) != 1 {
		t.Errorf("Find() = %v, want one span within the bound", spanBounds(got))
	}
}

func TestFindBoundCountsRunes(t *testing.T) {
	// "ää" is two runes but four bytes: BoundFactor 2 allows six fragments.
	near := frags(0, "ä", " ", " ", " ", " ", "ä")
	if got := (Prefix{BoundFactor: 2}).Find("ää", near); len(got) != 1 {
		t.Errorf("Find() = %v, want one span within six fragments", spanBounds(got))
	}
	far := frags(0, "ä", " ", " ", " ", " ", " ", " ", " ", " ", "ä")
	if got := (Prefix{BoundFactor: 2}).Find("ää", far); len(got) != 0 {
		t.Errorf("Find() = %v, want no span past six fragments", spanBounds(got))
	}
}

func TestFindRecordsTerm(t *testing.T) {
	spans := FindMatches("  Jane Smith ", frags(0, "Ja", "ne", "Smith,"))
	if len(spans) != 1 {
		t.Fatalf("FindMatches() returned %d spans, want 1", len(spans))
	}
	if got, want := spans[0].Term, "Jane Smith"; got != want {
		t.Errorf("Term = %q, want %q", got, want)
	}
	if got, want := spans[0].Text(), "Ja ne Smith,"; got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestFindAll(t *testing.T) {
	list := frags(0, "Jane", "Smith", "owes", "100", "EUR")
	got := spanBounds(FindAll(Default, []string{"100 eur", "jane"}, list))
	want := []bounds{{0, 0, 0}, {0, 3, 4}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FindAll() mismatch (-want +got):\n%s", diff)
	}
}

func TestSpanCopiesFragments(t *testing.T) {
	list := frags(0, "Jane", "Smith")
	spans := FindMatches("jane smith", list)
	if len(spans) != 1 {
		t.Fatalf("FindMatches() returned %d spans, want 1", len(spans))
	}
	list[0].Text = "changed"
	if spans[0].Fragments[0].Text != "Jane" {
		t.Error("span shares storage with the input list")
	}
}
