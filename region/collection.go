package region

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrPageOutOfRange = errors.New("page index out of range")
	ErrNotFound       = errors.New("region not found")
	ErrNothingToUndo  = errors.New("nothing to undo")
)

// Collection is the ordered list of regions of one document. Insertion
// order is undo order. Regions are never changed in place; edits remove
// and re-add.
//
// A Collection is not safe for concurrent use.
type Collection struct {
	pageCount int
	regions   []Region
}

// NewCollection returns an empty collection for a document with pageCount pages.
func NewCollection(pageCount int) *Collection {
	return &Collection{pageCount: pageCount}
}

// Add appends regions. Either all of them are added or none is.
func (c *Collection) Add(regions ...Region) error {
	for _, r := range regions {
		if r.PageIndex < 0 || r.PageIndex >= c.pageCount {
			return fmt.Errorf("page %d of %d: %w", r.PageIndex, c.pageCount, ErrPageOutOfRange)
		}
		if !r.Rect.Valid() {
			return fmt.Errorf("region on page %d has no area: %w", r.PageIndex, ErrEmpty)
		}
	}
	for _, r := range regions {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		c.regions = append(c.regions, r)
	}
	return nil
}

// Undo removes and returns the most recently added region.
func (c *Collection) Undo() (Region, error) {
	if len(c.regions) == 0 {
		return Region{}, ErrNothingToUndo
	}
	last := c.regions[len(c.regions)-1]
	c.regions = c.regions[:len(c.regions)-1]
	return last, nil
}

// Remove deletes the region with the given id.
func (c *Collection) Remove(id uuid.UUID) (Region, error) {
	for i, r := range c.regions {
		if r.ID == id {
			c.regions = append(c.regions[:i:i], c.regions[i+1:]...)
			return r, nil
		}
	}
	return Region{}, fmt.Errorf("%s: %w", id, ErrNotFound)
}

// Clear removes all regions.
func (c *Collection) Clear() {
	c.regions = nil
}

// Len returns the number of regions.
func (c *Collection) Len() int {
	return len(c.regions)
}

// Snapshot returns an independent copy of the regions in insertion order.
func (c *Collection) Snapshot() []Region {
	return append([]Region(nil), c.regions...)
}

// ForPage returns the regions of one page in insertion order.
func (c *Collection) ForPage(page int) []Region {
	return ForPage(c.regions, page)
}

// ForPage filters regions by page, preserving order.
func ForPage(regions []Region, page int) []Region {
	var out []Region
	for _, r := range regions {
		if r.PageIndex == page {
			out = append(out, r)
		}
	}
	return out
}

// GroupByPage maps page index to that page's regions.
func GroupByPage(regions []Region) map[int][]Region {
	out := make(map[int][]Region)
	for _, r := range regions {
		out[r.PageIndex] = append(out[r.PageIndex], r)
	}
	return out
}
