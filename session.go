package pdfredact

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/digitorus/pdfredact/coords"
	"github.com/digitorus/pdfredact/match"
	"github.com/digitorus/pdfredact/preview"
	"github.com/digitorus/pdfredact/region"
)

// Session holds the regions selected on one document. Region edits and
// exports may be called from different goroutines; an export works on a
// snapshot of the regions taken when it starts.
type Session struct {
	doc  *Document
	opts Options

	mu      sync.Mutex
	regions *region.Collection

	exporting atomic.Bool
}

// NewSession starts an empty session on doc.
func NewSession(doc *Document, opts Options) *Session {
	return &Session{
		doc:     doc,
		opts:    opts.withDefaults(),
		regions: region.NewCollection(doc.PageCount()),
	}
}

// Document returns the session document.
func (s *Session) Document() *Document { return s.doc }

// AddPhrase adds a region for every occurrence of term and returns them.
// No occurrences is not an error.
func (s *Session) AddPhrase(term string) ([]region.Region, error) {
	if match.Normalize(term) == "" {
		return nil, fmt.Errorf("empty search term: %w", ErrInvalidInput)
	}
	frags, err := s.doc.Fragments(s.opts.Extract)
	if err != nil {
		return nil, err
	}

	spans := s.opts.Matcher.Find(term, frags)
	for i := range spans {
		if spans[i].Term == "" {
			spans[i].Term = strings.TrimSpace(term)
		}
	}
	added := s.opts.Aggregator().FromSpans(spans)
	if len(added) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.regions.Add(added...); err != nil {
		return nil, classify(err)
	}
	s.opts.Logger.Debug("phrase added",
		zap.String("term", term),
		zap.Int("matches", len(spans)),
		zap.Int("regions", len(added)),
	)
	return added, nil
}

// AddManual adds a region from a rectangle drawn on the viewport of page.
func (s *Session) AddManual(page int, screen coords.Rect, v coords.Viewport) (region.Region, error) {
	r, err := s.opts.capture().FromScreen(page, screen, v)
	if err != nil {
		return region.Region{}, classify(err)
	}
	return s.add(r)
}

// AddManualRaster adds a region from a rectangle drawn on page rendered at
// scale. Page rotation is taken into account.
func (s *Session) AddManualRaster(page int, screen coords.Rect, scale float64) (region.Region, error) {
	rs, err := s.doc.Raster(page, scale)
	if err != nil {
		return region.Region{}, err
	}
	r, err := s.opts.capture().FromRaster(page, screen, rs)
	if err != nil {
		return region.Region{}, classify(err)
	}
	return s.add(r)
}

// AddRect adds a region given in page space. It is not padded.
func (s *Session) AddRect(page int, rect coords.Rect) (region.Region, error) {
	r, err := s.opts.Aggregator().FromRect(page, rect)
	if err != nil {
		return region.Region{}, classify(err)
	}
	return s.add(r)
}

func (s *Session) add(r region.Region) (region.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.regions.Add(r); err != nil {
		return region.Region{}, classify(err)
	}
	return r, nil
}

// Undo removes the most recently added region.
func (s *Session) Undo() (region.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regions.Undo()
}

// Remove deletes the region with the given ID.
func (s *Session) Remove(id uuid.UUID) (region.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regions.Remove(id)
}

// Clear removes every region.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions.Clear()
}

// Regions returns a copy of the regions in insertion order.
func (s *Session) Regions() []region.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regions.Snapshot()
}

// Terms returns the distinct phrases regions were added for.
func (s *Session) Terms() []string {
	var terms []string
	seen := make(map[string]bool)
	for _, r := range s.Regions() {
		if r.Source != region.Phrase {
			continue
		}
		key := strings.ToLower(r.Term)
		if !seen[key] {
			seen[key] = true
			terms = append(terms, r.Term)
		}
	}
	return terms
}

// Export applies the current regions in mode. Only one export may run at a
// time; a concurrent call fails with ErrExportInProgress. Regions edited
// while the export runs do not affect it, and a failed or cancelled export
// leaves the regions unchanged.
func (s *Session) Export(ctx context.Context, mode ExportMode) ([]byte, error) {
	if !s.exporting.CompareAndSwap(false, true) {
		return nil, ErrExportInProgress
	}
	defer s.exporting.Store(false)

	regions := s.Regions()
	return apply(ctx, mode, s.doc.Bytes(), regions, s.opts)
}

// Exporting reports whether an export is running.
func (s *Session) Exporting() bool {
	return s.exporting.Load()
}

// Preview returns a render scheduler over the session document. The caller
// must close it.
func (s *Session) Preview(baseScale float64) (*Previewer, error) {
	rz, err := s.opts.Open(s.doc.Bytes())
	if err != nil {
		return nil, classify(err)
	}
	return &Previewer{
		session: s,
		sched: preview.NewScheduler(rz, preview.Options{
			BaseScale: baseScale,
			Fill:      s.opts.Fill,
			Logger:    s.opts.Logger,
		}),
	}, nil
}

// Previewer renders pages of a session with its current regions.
type Previewer struct {
	session *Session
	sched   *preview.Scheduler
}

// Render renders page at scale with the session regions drawn in style.
// Starting a render cancels the previous one, which then returns
// ErrRenderCancelled.
func (p *Previewer) Render(ctx context.Context, page int, scale float64, style preview.Style) (*PageImage, error) {
	rs, err := p.session.doc.Raster(page, scale)
	if err != nil {
		return nil, err
	}
	img, err := p.sched.Render(ctx, page, rs, p.session.Regions(), style)
	if err != nil {
		return nil, classify(err)
	}
	return &PageImage{RGBA: img, Raster: rs}, nil
}

// Close releases the renderer.
func (p *Previewer) Close() error {
	return p.sched.Close()
}
