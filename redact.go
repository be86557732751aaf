package pdfredact

import (
	"fmt"

	"github.com/digitorus/pdfredact/coords"
	"github.com/digitorus/pdfredact/fragment"
	"github.com/digitorus/pdfredact/match"
	"github.com/digitorus/pdfredact/region"
)

// FindMatches returns every occurrence of term in fragments with the
// default matcher. An empty term has no matches.
func FindMatches(term string, fragments []fragment.TextFragment) []fragment.MatchSpan {
	return match.FindMatches(term, fragments)
}

// ToRegion converts a match into a padded region covering all of its
// fragments.
func ToRegion(span fragment.MatchSpan) (region.Region, error) {
	r, err := region.NewAggregator().FromSpan(span)
	if err != nil {
		return region.Region{}, classify(err)
	}
	return r, nil
}

// ManualRegion converts a rectangle drawn on the viewport of a page into a
// region. Rectangles not larger than region.DefaultMinPixels in both
// dimensions are rejected; IsSilent reports true for that error.
func ManualRegion(page int, screen coords.Rect, v coords.Viewport) (region.Region, error) {
	if err := v.Validate(); err != nil {
		return region.Region{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	r, err := region.NewCapture().FromScreen(page, screen, v)
	if err != nil {
		return region.Region{}, classify(err)
	}
	return r, nil
}
