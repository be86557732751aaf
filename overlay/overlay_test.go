package overlay

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	lpdf "github.com/ledongthuc/pdf"
	"github.com/mattetti/filebuffer"

	"github.com/digitorus/pdfredact/coords"
	"github.com/digitorus/pdfredact/extract"
	"github.com/digitorus/pdfredact/internal/testpdf"
	"github.com/digitorus/pdfredact/region"
)

func sample(opts testpdf.Options) []byte {
	return testpdf.BuildWithOptions(opts,
		testpdf.Letter(
			testpdf.Line{X: 72, Y: 700, Size: 12, Text: "Patient Jane Smith"},
			testpdf.Line{X: 72, Y: 680, Size: 12, Text: "Diagnosis unknown"},
		),
		testpdf.Letter(testpdf.Line{X: 72, Y: 700, Size: 12, Text: "Second page"}),
	)
}

func manual(t *testing.T, page int, r coords.Rect) region.Region {
	t.Helper()
	reg, err := region.NewAggregator().FromRect(page, r)
	if err != nil {
		t.Fatalf("FromRect() error = %v", err)
	}
	return reg
}

func texts(t *testing.T, data []byte) []string {
	t.Helper()
	rdr, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	frags, err := extract.Document(rdr, extract.Options{})
	if err != nil {
		t.Fatalf("extract.Document() error = %v", err)
	}
	var out []string
	for _, f := range frags {
		out = append(out, f.Text)
	}
	return out
}

func TestApply(t *testing.T) {
	variants := []struct {
		name string
		opts testpdf.Options
	}{
		{"xref table", testpdf.Options{}},
		{"xref stream", testpdf.Options{XrefStream: true}},
		{"contents array", testpdf.Options{ContentsArray: true}},
	}

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			input := sample(v.opts)
			target := coords.Rect{X: 113, Y: 695, Width: 66, Height: 14}
			regions := []region.Region{
				manual(t, 0, target),
				manual(t, 0, coords.Rect{X: 120, Y: 690, Width: 30, Height: 30}),
			}

			out, err := Apply(context.Background(), input, regions, DefaultOptions())
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if !bytes.HasPrefix(out, input) {
				t.Fatal("output does not start with the original revision")
			}

			rdr, err := lpdf.NewReader(bytes.NewReader(out), int64(len(out)))
			if err != nil {
				t.Fatalf("output is not readable: %v", err)
			}
			if got := rdr.NumPage(); got != 2 {
				t.Errorf("NumPage() = %d, want 2", got)
			}

			// Text underneath the rectangles is still there.
			if diff := cmp.Diff(texts(t, input), texts(t, out)); diff != "" {
				t.Errorf("extracted text changed (-before +after):\n%s", diff)
			}

			page := rdr.Page(1)
			rects := page.Content().Rect
			want := lpdf.Rect{
				Min: lpdf.Point{X: target.X, Y: target.Y},
				Max: lpdf.Point{X: target.MaxX(), Y: target.MaxY()},
			}
			found := false
			for _, r := range rects {
				if r == want {
					found = true
				}
			}
			if !found {
				t.Errorf("Content().Rect = %v, missing %v", rects, want)
			}

			// The untouched page keeps its original content.
			if got := rdr.Page(2).V.Key("Contents").Kind(); !v.opts.ContentsArray && got != lpdf.Stream {
				t.Errorf("page 2 /Contents kind = %v, want stream", got)
			}
			wantContents := 3
			if v.opts.ContentsArray {
				wantContents = 4
			}
			if got := page.V.Key("Contents").Len(); got != wantContents {
				t.Errorf("page 1 /Contents has %d entries, want %d", got, wantContents)
			}
			if got := page.V.Key("MediaBox").Index(2).Float64(); got != 612 {
				t.Errorf("page 1 MediaBox width = %v, want 612", got)
			}
			if got := page.Font("F1").BaseFont(); got != "Helvetica" {
				t.Errorf("page 1 font = %q, want Helvetica", got)
			}
		})
	}
}

func TestApplyTwice(t *testing.T) {
	input := sample(testpdf.Options{})
	first, err := Apply(context.Background(), input, []region.Region{manual(t, 0, coords.Rect{X: 10, Y: 10, Width: 20, Height: 20})}, DefaultOptions())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	second, err := Apply(context.Background(), first, []region.Region{manual(t, 1, coords.Rect{X: 30, Y: 30, Width: 20, Height: 20})}, DefaultOptions())
	if err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}

	rdr, err := lpdf.NewReader(bytes.NewReader(second), int64(len(second)))
	if err != nil {
		t.Fatalf("output is not readable: %v", err)
	}
	for i := 1; i <= 2; i++ {
		if n := len(rdr.Page(i).Content().Rect); n != 1 {
			t.Errorf("page %d has %d rectangles, want 1", i, n)
		}
	}
}

func TestApplyNoRegions(t *testing.T) {
	input := sample(testpdf.Options{})
	out, err := Apply(context.Background(), input, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !bytes.Equal(out, input) {
		t.Error("Apply() without regions changed the document")
	}
}

func TestApplyErrors(t *testing.T) {
	input := sample(testpdf.Options{})
	reg := manual(t, 0, coords.Rect{X: 10, Y: 10, Width: 20, Height: 20})

	tests := []struct {
		name    string
		ctx     func() context.Context
		input   []byte
		regions []region.Region
		want    error
	}{
		{
			name:    "encrypted",
			input:   testpdf.BuildWithOptions(testpdf.Options{Encrypt: true}, testpdf.Letter()),
			regions: []region.Region{reg},
			want:    ErrEncrypted,
		},
		{
			name:    "garbage",
			input:   []byte("%PDF-1.7\nthis is not a document\n%%EOF\n"),
			regions: []region.Region{reg},
			want:    ErrMalformed,
		},
		{
			name:    "page out of range",
			input:   input,
			regions: []region.Region{manual(t, 5, coords.Rect{X: 1, Y: 1, Width: 1, Height: 1})},
			want:    ErrPageOutOfRange,
		},
		{
			name: "cancelled",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			input:   input,
			regions: []region.Region{reg},
			want:    context.Canceled,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.ctx != nil {
				ctx = tt.ctx()
			}
			out, err := Apply(ctx, tt.input, tt.regions, DefaultOptions())
			if !errors.Is(err, tt.want) {
				t.Errorf("Apply() error = %v, want %v", err, tt.want)
			}
			if out != nil {
				t.Error("Apply() returned partial output with an error")
			}
		})
	}
}

func TestWriteIncrXrefTable(t *testing.T) {
	c := &Context{
		OutputBuffer: &filebuffer.Buffer{
			Buff: new(bytes.Buffer),
		},
		lastXrefID: 100,
		updatedXrefEntries: []xrefEntry{
			{ID: 51, Offset: 5678},
			{ID: 50, Offset: 1234},
			{ID: 7, Gen: 2, Offset: 42},
		},
		newXrefEntries: []xrefEntry{
			{ID: 101, Offset: 9012},
			{ID: 102, Offset: 3456},
		},
	}

	if err := c.writeIncrXrefTable(); err != nil {
		t.Fatalf("writeIncrXrefTable failed: %v", err)
	}

	expected := "xref\n" +
		"7 1\n" +
		"0000000042 00002 n\r\n" +
		"50 2\n" +
		"0000001234 00000 n\r\n" +
		"0000005678 00000 n\r\n" +
		"101 2\n" +
		"0000009012 00000 n\r\n" +
		"0000003456 00000 n\r\n"

	if got := c.OutputBuffer.Buff.String(); got != expected {
		t.Errorf("writeIncrXrefTable output mismatch\ngot:\n%s\nwant:\n%s", got, expected)
	}
}

func TestFillContent(t *testing.T) {
	regions := []region.Region{
		{Rect: coords.Rect{X: 10, Y: 20, Width: 30.5, Height: 40}},
		{Rect: coords.Rect{X: 1.25, Y: 2, Width: -1, Height: 3}},
	}
	got := string(fillContent(regions, [3]float64{0.5, 0, 1}))
	want := "Q\nq\n0.5 0 1 rg\n10 20 30.5 40 re\n0.25 2 1 3 re\nf\nQ\n"
	if got != want {
		t.Errorf("fillContent() = %q, want %q", got, want)
	}
}

func TestEscapeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Contents", "Contents"},
		{"A B", "A#20B"},
		{"x/y", "x#2Fy"},
		{"caf\xc3\xa9", "caf#C3#A9"},
	}
	for _, tt := range tests {
		if got := escapeName(tt.in); got != tt.want {
			t.Errorf("escapeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAddStreamUncompressed(t *testing.T) {
	c := &Context{OutputBuffer: filebuffer.New([]byte{}), CompressLevel: zlib.NoCompression, lastXrefID: 9}
	id, err := c.addStream([]byte("q\n"))
	if err != nil {
		t.Fatalf("addStream() error = %v", err)
	}
	if id != 10 {
		t.Errorf("addStream() id = %d, want 10", id)
	}
	want := "10 0 obj\n<< /Length 2 >>\nstream\nq\n\nendstream\nendobj\n"
	if got := c.OutputBuffer.Buff.String(); got != want {
		t.Errorf("object = %q, want %q", got, want)
	}
}
