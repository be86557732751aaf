package flatten

import (
	"bytes"
	"compress/zlib"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mattetti/filebuffer"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/digitorus/pdfredact/images"
	ipdf "github.com/digitorus/pdfredact/internal/pdf"
)

// Producer is written to the /Info dictionary of rebuilt documents.
const Producer = "pdfredact"

// ErrFinished is returned when pages are added after Bytes was called.
var ErrFinished = errors.New("document already finished")

// Builder writes a new document whose pages each show a single image.
type Builder struct {
	CompressLevel int
	Producer      string
	CreationDate  time.Time

	buf      *filebuffer.Buffer
	offsets  map[uint32]int64
	nextID   uint32
	pageIDs  []uint32
	byHash   map[string]uint32
	finished []byte
}

const (
	catalogID = 1
	pagesID   = 2
)

// NewBuilder starts a new document.
func NewBuilder(compressLevel int) *Builder {
	b := &Builder{
		CompressLevel: compressLevel,
		Producer:      Producer,
		CreationDate:  time.Now(),
		buf:           filebuffer.New([]byte{}),
		offsets:       make(map[uint32]int64),
		nextID:        pagesID + 1,
		byHash:        make(map[string]uint32),
	}
	// Binary comment marks the file as binary for transfer tools.
	b.buf.Write([]byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"))
	return b
}

// Pages returns the number of pages added so far.
func (b *Builder) Pages() int { return len(b.pageIDs) }

// Images returns the number of distinct image objects written.
func (b *Builder) Images() int { return len(b.byHash) }

// AddPageFromImage appends a page of width by height points covered by img.
// Identical images are stored once.
func (b *Builder) AddPageFromImage(img images.Image, width, height float64) error {
	if b.finished != nil {
		return ErrFinished
	}
	if !(width > 0 && height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return fmt.Errorf("invalid page size %vx%v", width, height)
	}

	imgID, ok := b.byHash[img.Hash]
	if !ok || img.Hash == "" {
		obj, err := img.XObject(b.CompressLevel)
		if err != nil {
			return err
		}
		imgID = b.addObject(obj)
		if img.Hash != "" {
			b.byHash[img.Hash] = imgID
		}
	}

	content := fmt.Sprintf("q %s 0 0 %s 0 0 cm /Im0 Do Q\n", ipdf.FormatNumber(width), ipdf.FormatNumber(height))
	contentID, err := b.addStream([]byte(content))
	if err != nil {
		return err
	}

	var page bytes.Buffer
	page.WriteString("<< /Type /Page\n")
	fmt.Fprintf(&page, "  /Parent %d 0 R\n", pagesID)
	fmt.Fprintf(&page, "  /MediaBox [0 0 %s %s]\n", ipdf.FormatNumber(width), ipdf.FormatNumber(height))
	fmt.Fprintf(&page, "  /Resources << /XObject << /Im0 %d 0 R >> >>\n", imgID)
	fmt.Fprintf(&page, "  /Contents %d 0 R\n", contentID)
	page.WriteString(">>")
	b.pageIDs = append(b.pageIDs, b.addObject(page.Bytes()))
	return nil
}

// Bytes finishes the document and returns it. Later calls return the same
// bytes.
func (b *Builder) Bytes() []byte {
	if b.finished != nil {
		return b.finished
	}

	var kids strings.Builder
	for i, id := range b.pageIDs {
		if i > 0 {
			kids.WriteString(" ")
		}
		fmt.Fprintf(&kids, "%d 0 R", id)
	}
	b.writeObject(pagesID, []byte(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), len(b.pageIDs))))
	b.writeObject(catalogID, []byte(fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesID)))

	var info bytes.Buffer
	info.WriteString("<<")
	if b.Producer != "" {
		fmt.Fprintf(&info, " /Producer %s", pdfString(b.Producer))
	}
	if !b.CreationDate.IsZero() {
		fmt.Fprintf(&info, " /CreationDate %s", pdfDateTime(b.CreationDate))
	}
	info.WriteString(" >>")
	infoID := b.addObject(info.Bytes())

	xrefStart := b.buf.Buff.Len()
	size := b.nextID
	fmt.Fprintf(b.buf, "xref\n0 %d\n", size)
	b.buf.Write([]byte("0000000000 65535 f\r\n"))
	for id := uint32(1); id < size; id++ {
		fmt.Fprintf(b.buf, "%010d 00000 n\r\n", b.offsets[id])
	}

	sum := sha256.Sum256(b.buf.Buff.Bytes())
	id := hex.EncodeToString(sum[:16])
	fmt.Fprintf(b.buf, "trailer\n<<\n  /Size %d\n  /Root %d 0 R\n  /Info %d 0 R\n  /ID [<%s> <%s>]\n>>\n", size, catalogID, infoID, id, id)
	fmt.Fprintf(b.buf, "startxref\n%d\n%%%%EOF\n", xrefStart)

	b.finished = bytes.Clone(b.buf.Buff.Bytes())
	return b.finished
}

func (b *Builder) addObject(content []byte) uint32 {
	id := b.nextID
	b.nextID++
	b.writeObject(id, content)
	return id
}

func (b *Builder) writeObject(id uint32, content []byte) {
	b.offsets[id] = int64(b.buf.Buff.Len())
	fmt.Fprintf(b.buf, "%d 0 obj\n", id)
	b.buf.Write(content)
	b.buf.Write([]byte("\nendobj\n"))
}

func (b *Builder) addStream(data []byte) (uint32, error) {
	var obj bytes.Buffer
	if b.CompressLevel == zlib.NoCompression {
		fmt.Fprintf(&obj, "<< /Length %d >>\nstream\n", len(data))
		obj.Write(data)
	} else {
		var z bytes.Buffer
		zw, err := zlib.NewWriterLevel(&z, b.CompressLevel)
		if err != nil {
			return 0, err
		}
		if _, err := zw.Write(data); err != nil {
			return 0, err
		}
		if err := zw.Close(); err != nil {
			return 0, err
		}
		fmt.Fprintf(&obj, "<< /Length %d /Filter /FlateDecode >>\nstream\n", z.Len())
		obj.Write(z.Bytes())
	}
	obj.WriteString("\nendstream")
	return b.addObject(obj.Bytes()), nil
}

func pdfString(text string) string {
	if !isASCII(text) {
		enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
		res, _, err := transform.String(enc, text)
		if err == nil {
			return "<" + hex.EncodeToString([]byte(res)) + ">"
		}
	}

	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, ")", "\\)")
	text = strings.ReplaceAll(text, "(", "\\(")
	text = strings.ReplaceAll(text, "\r", "\\r")
	return "(" + text + ")"
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

func pdfDateTime(date time.Time) string {
	_, offset := date.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return pdfString(fmt.Sprintf("D:%s%s%02d'%02d'", date.Format("20060102150405"), sign, offset/3600, offset%3600/60))
}
