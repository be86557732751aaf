// Package pdf walks the page tree of a parsed document and resolves the
// geometry of each page, including inherited attributes.
package pdf

import (
	"errors"
	"fmt"
	"math"

	pdflib "github.com/digitorus/pdf"

	"github.com/digitorus/pdfredact/coords"
)

// ErrNoPages is returned when the catalog has no usable page tree.
var ErrNoPages = errors.New("document has no pages")

// maxDepth bounds page tree recursion on malformed files.
const maxDepth = 64

// Letter is used when a page carries no usable MediaBox.
var Letter = [4]float64{0, 0, 612, 792}

// PageInfo is one leaf of the page tree.
type PageInfo struct {
	Index    int
	Object   pdflib.Value
	MediaBox [4]float64
	CropBox  [4]float64
	Rotate   int
}

// ID returns the object number of the page dictionary.
func (p PageInfo) ID() uint32 { return uint32(p.Object.GetPtr().GetID()) }

// Gen returns the generation number of the page dictionary.
func (p PageInfo) Gen() uint16 { return uint16(p.Object.GetPtr().GetGen()) }

// Box returns the visible page area: the crop box clipped to the media box.
func (p PageInfo) Box() coords.Rect {
	media := boxRect(p.MediaBox)
	if crop, ok := boxRect(p.CropBox).Intersect(media); ok {
		return crop
	}
	return media
}

// Size returns the displayed page size in page units, after rotation.
func (p PageInfo) Size() (width, height float64) {
	b := p.Box()
	if r := coords.NormalizeRotation(p.Rotate); r == 90 || r == 270 {
		return b.Height, b.Width
	}
	return b.Width, b.Height
}

type inherited struct {
	mediaBox, cropBox [4]float64
	hasMedia, hasCrop bool
	rotate            int
	hasRotate         bool
}

// Pages returns every page of the document in page order.
func Pages(r *pdflib.Reader) ([]PageInfo, error) {
	root := r.Trailer().Key("Root").Key("Pages")
	if root.IsNull() {
		return nil, ErrNoPages
	}

	var pages []PageInfo
	visited := make(map[uint32]bool)
	if err := walk(root, 0, inherited{}, visited, &pages, 0); err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	return pages, nil
}

// Page returns the page with the zero-based index.
func Page(r *pdflib.Reader, index int) (PageInfo, error) {
	pages, err := Pages(r)
	if err != nil {
		return PageInfo{}, err
	}
	if index < 0 || index >= len(pages) {
		return PageInfo{}, fmt.Errorf("page %d out of range (0-%d)", index, len(pages)-1)
	}
	return pages[index], nil
}

func walk(node pdflib.Value, parent uint32, inh inherited, visited map[uint32]bool, out *[]PageInfo, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("page tree deeper than %d levels", maxDepth)
	}
	// Direct kids share the object number of their parent.
	id := uint32(node.GetPtr().GetID())
	if id != 0 && id != parent {
		if visited[id] {
			return fmt.Errorf("page tree cycle at object %d", id)
		}
		visited[id] = true
	}

	if box, ok := readBox(node.Key("MediaBox")); ok {
		inh.mediaBox, inh.hasMedia = box, true
	}
	if box, ok := readBox(node.Key("CropBox")); ok {
		inh.cropBox, inh.hasCrop = box, true
	}
	if rot := node.Key("Rotate"); rot.Kind() == pdflib.Integer || rot.Kind() == pdflib.Real {
		inh.rotate, inh.hasRotate = int(rot.Int64()), true
		if rot.Kind() == pdflib.Real {
			inh.rotate = int(math.Round(rot.Float64()))
		}
	}

	switch node.Key("Type").Name() {
	case "Page":
		info := PageInfo{Index: len(*out), Object: node, MediaBox: Letter, Rotate: inh.rotate}
		if inh.hasMedia {
			info.MediaBox = inh.mediaBox
		}
		info.CropBox = info.MediaBox
		if inh.hasCrop {
			info.CropBox = inh.cropBox
		}
		if info.Rotate%90 != 0 {
			info.Rotate = 0
		}
		*out = append(*out, info)
		return nil
	case "Pages", "":
		kids := node.Key("Kids")
		if kids.Kind() != pdflib.Array {
			return nil
		}
		for i := 0; i < kids.Len(); i++ {
			if err := walk(kids.Index(i), id, inh, visited, out, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func readBox(v pdflib.Value) ([4]float64, bool) {
	var box [4]float64
	if v.Kind() != pdflib.Array || v.Len() < 4 {
		return box, false
	}
	for i := 0; i < 4; i++ {
		box[i] = v.Index(i).Float64()
	}
	return box, true
}

func boxRect(b [4]float64) coords.Rect {
	return coords.Rect{
		X:      math.Min(b[0], b[2]),
		Y:      math.Min(b[1], b[3]),
		Width:  math.Abs(b[2] - b[0]),
		Height: math.Abs(b[3] - b[1]),
	}
}
