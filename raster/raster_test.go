package raster

import (
	"context"
	"errors"
	"testing"

	"github.com/digitorus/pdfredact/internal/testpdf"
)

func TestMuPDFRenderPage(t *testing.T) {
	data := testpdf.Build(
		testpdf.Letter(testpdf.Line{X: 72, Y: 700, Size: 12, Text: "Hello"}),
		testpdf.Page{Width: 612, Height: 792, Rotate: 90},
	)
	r, err := OpenMuPDF(data)
	if err != nil {
		t.Fatalf("OpenMuPDF() error = %v", err)
	}
	defer r.Close()

	if got := r.PageCount(); got != 2 {
		t.Fatalf("PageCount() = %d, want 2", got)
	}

	tests := []struct {
		page  int
		scale float64
		w, h  int
	}{
		{0, 1, 612, 792},
		{0, 2, 1224, 1584},
		{1, 1, 792, 612},
	}
	for _, tt := range tests {
		img, err := r.RenderPage(context.Background(), tt.page, tt.scale)
		if err != nil {
			t.Fatalf("RenderPage(%d, %v) error = %v", tt.page, tt.scale, err)
		}
		// MuPDF rounds the page bounds outwards.
		if dx, dy := img.Bounds().Dx(), img.Bounds().Dy(); abs(dx-tt.w) > 1 || abs(dy-tt.h) > 1 {
			t.Errorf("RenderPage(%d, %v) size = %dx%d, want %dx%d", tt.page, tt.scale, dx, dy, tt.w, tt.h)
		}
	}
}

func TestMuPDFRenderErrors(t *testing.T) {
	r, err := OpenMuPDF(testpdf.Build(testpdf.Letter()))
	if err != nil {
		t.Fatalf("OpenMuPDF() error = %v", err)
	}
	defer r.Close()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name  string
		ctx   context.Context
		page  int
		scale float64
		want  error
	}{
		{"negative page", context.Background(), -1, 1, ErrPageOutOfRange},
		{"past last page", context.Background(), 1, 1, ErrPageOutOfRange},
		{"zero scale", context.Background(), 0, 0, ErrInvalidScale},
		{"cancelled", cancelled, 0, 1, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.RenderPage(tt.ctx, tt.page, tt.scale)
			if !errors.Is(err, tt.want) {
				t.Errorf("RenderPage() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpenMuPDFInvalid(t *testing.T) {
	if _, err := OpenMuPDF([]byte("not a pdf")); err == nil {
		t.Error("OpenMuPDF() expected error for invalid data")
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
