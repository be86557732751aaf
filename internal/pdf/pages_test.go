package pdf_test

import (
	"bytes"
	"testing"

	pdflib "github.com/digitorus/pdf"
	"github.com/google/go-cmp/cmp"

	"github.com/digitorus/pdfredact/coords"
	"github.com/digitorus/pdfredact/internal/pdf"
	"github.com/digitorus/pdfredact/internal/testpdf"
)

func TestPages(t *testing.T) {
	crop := [4]float64{50, 100, 550, 700}
	data := testpdf.Build(
		testpdf.Letter(),
		testpdf.Page{Width: 595, Height: 842, Rotate: 90},
		testpdf.Page{Width: 612, Height: 792, CropBox: &crop},
	)

	rdr, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	pages, err := pdf.Pages(rdr)
	if err != nil {
		t.Fatalf("Pages() error = %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("Pages() returned %d pages, want 3", len(pages))
	}

	tests := []struct {
		name   string
		page   pdf.PageInfo
		box    coords.Rect
		rotate int
		w, h   float64
	}{
		{"letter", pages[0], coords.Rect{Width: 612, Height: 792}, 0, 612, 792},
		{"rotated a4", pages[1], coords.Rect{Width: 595, Height: 842}, 90, 842, 595},
		{"cropped", pages[2], coords.Rect{X: 50, Y: 100, Width: 500, Height: 600}, 0, 500, 600},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.page.Index != i {
				t.Errorf("Index = %d, want %d", tt.page.Index, i)
			}
			if diff := cmp.Diff(tt.box, tt.page.Box()); diff != "" {
				t.Errorf("Box() mismatch (-want +got):\n%s", diff)
			}
			if tt.page.Rotate != tt.rotate {
				t.Errorf("Rotate = %d, want %d", tt.page.Rotate, tt.rotate)
			}
			if w, h := tt.page.Size(); w != tt.w || h != tt.h {
				t.Errorf("Size() = %vx%v, want %vx%v", w, h, tt.w, tt.h)
			}
		})
	}

	// Page objects follow the catalog, page tree and font objects.
	if got := pages[0].ID(); got != 4 {
		t.Errorf("ID() = %d, want 4", got)
	}
}

func TestPage(t *testing.T) {
	data := testpdf.Build(testpdf.Letter())
	rdr, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	if _, err := pdf.Page(rdr, 0); err != nil {
		t.Errorf("Page(0) error = %v", err)
	}
	if _, err := pdf.Page(rdr, 1); err == nil {
		t.Error("Page(1) expected out of range error")
	}
}
