// Package match finds search phrases in ordered text fragments.
//
// A phrase may be split over several fragments, with or without explicit
// space glyphs between them, so matching runs over a normalized form of the
// text: compatibility-composed, lower-cased and with all whitespace removed.
package match

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/digitorus/pdfredact/fragment"
)

// SpanMatcher finds every non-overlapping occurrence of a phrase in an
// ordered fragment list.
type SpanMatcher interface {
	Find(term string, fragments []fragment.TextFragment) []fragment.MatchSpan
}

// DefaultBoundFactor limits the work spent on a single start position as a
// multiple of the normalized phrase length.
const DefaultBoundFactor = 4

// Normalize returns the form both phrases and fragment text are compared in.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Lower(language.Und).String(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Prefix is the normalized-prefix strategy. From each start fragment it
// accumulates following fragments while the collected text and the phrase
// remain prefixes of one another, and records a span as soon as the phrase
// is complete.
//
// The fragment that completes a phrase may continue with punctuation, so
// "Smith," matches "smith". Letters or digits after the phrase do not
// match. A span always starts at a fragment whose text begins with the
// phrase: a fragment such as "(Jane" is never matched by "jane".
type Prefix struct {
	// BoundFactor caps the fragments visited from one start position at
	// BoundFactor times the phrase length in runes, plus BoundFactor. Zero
	// means DefaultBoundFactor.
	BoundFactor int
}

// Find implements SpanMatcher.
func (p Prefix) Find(term string, fragments []fragment.TextFragment) []fragment.MatchSpan {
	needle := Normalize(term)
	if needle == "" || len(fragments) == 0 {
		return nil
	}

	bound := p.BoundFactor
	if bound <= 0 {
		bound = DefaultBoundFactor
	}
	// Every visited fragment either extends the collected text, which
	// cannot outgrow the phrase, or is blank; the fragment cap bounds the
	// blank ones.
	maxFragments := bound*utf8.RuneCountInString(needle) + bound

	normalized := make([]string, len(fragments))
	for i, f := range fragments {
		normalized[i] = Normalize(f.Text)
	}

	var spans []fragment.MatchSpan
	for i := 0; i < len(fragments); i++ {
		if normalized[i] == "" {
			continue
		}
		end, ok := extend(fragments, normalized, i, needle, maxFragments)
		if !ok {
			continue
		}
		spans = append(spans, fragment.MatchSpan{
			PageIndex: fragments[i].PageIndex,
			Start:     i,
			End:       end,
			Term:      strings.TrimSpace(term),
			Fragments: append([]fragment.TextFragment(nil), fragments[i:end+1]...),
		})
		i = end
	}
	return spans
}

// extend grows a candidate from start and returns the index of the fragment
// that completes the phrase. Text left over in that fragment must be
// punctuation.
func extend(fragments []fragment.TextFragment, normalized []string, start int, needle string, maxFragments int) (int, bool) {
	var buf strings.Builder
	page := fragments[start].PageIndex

	for j := start; j < len(fragments) && j-start < maxFragments; j++ {
		if fragments[j].PageIndex != page {
			return 0, false
		}
		buf.WriteString(normalized[j])
		s := buf.String()

		switch {
		case s == needle:
			return j, true
		case strings.HasPrefix(s, needle):
			// The last fragment may carry trailing punctuation ("Smith,"),
			// but not further letters ("Janet" is not "Jane").
			return j, punctuation(s[len(needle):])
		case !strings.HasPrefix(needle, s):
			return 0, false
		}
	}
	return 0, false
}

func punctuation(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func sortSpans(spans []fragment.MatchSpan) {
	slices.SortStableFunc(spans, func(a, b fragment.MatchSpan) int {
		if a.Start != b.Start {
			return a.Start - b.Start
		}
		return a.End - b.End
	})
}

// Default is the canonical strategy.
var Default SpanMatcher = Prefix{}

// FindMatches runs the default strategy.
func FindMatches(term string, fragments []fragment.TextFragment) []fragment.MatchSpan {
	return Default.Find(term, fragments)
}

// FindAll runs m for every term and returns all spans ordered by their start
// fragment. Spans of different terms may overlap; each is honoured on its own.
func FindAll(m SpanMatcher, terms []string, fragments []fragment.TextFragment) []fragment.MatchSpan {
	var all []fragment.MatchSpan
	for _, term := range terms {
		all = append(all, m.Find(term, fragments)...)
	}
	sortSpans(all)
	return all
}
