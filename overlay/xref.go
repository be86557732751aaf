package overlay

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/digitorus/pdf"
)

// writeXref writes a cross-reference section of the same kind as the
// source's last one.
func (c *Context) writeXref() error {
	c.NewXrefStart = int64(c.OutputBuffer.Buff.Len())

	switch c.PDFReader.XrefInformation.Type {
	case "stream":
		return c.writeXrefStream()
	case "table", "":
		return c.writeIncrXrefTable()
	default:
		return fmt.Errorf("unknown xref type %q: %w", c.PDFReader.XrefInformation.Type, ErrMalformed)
	}
}

// subsections groups entries into runs of consecutive object numbers.
func subsections(entries []xrefEntry) [][]xrefEntry {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b xrefEntry) int {
		return int(a.ID) - int(b.ID)
	})

	var out [][]xrefEntry
	for i, e := range sorted {
		if i > 0 && e.ID == sorted[i-1].ID+1 {
			out[len(out)-1] = append(out[len(out)-1], e)
			continue
		}
		out = append(out, []xrefEntry{e})
	}
	return out
}

func (c *Context) allEntries() []xrefEntry {
	return append(slices.Clone(c.updatedXrefEntries), c.newXrefEntries...)
}

// size returns the /Size of the new revision.
func (c *Context) size() int64 {
	size := int64(c.lastXrefID) + 1
	for _, e := range c.allEntries() {
		if int64(e.ID)+1 > size {
			size = int64(e.ID) + 1
		}
	}
	return size
}

// writeIncrXrefTable writes the incremental cross-reference table.
func (c *Context) writeIncrXrefTable() error {
	if _, err := c.OutputBuffer.Write([]byte("xref\n")); err != nil {
		return fmt.Errorf("failed to write incremental xref header: %w", err)
	}

	for _, sub := range subsections(c.allEntries()) {
		if _, err := fmt.Fprintf(c.OutputBuffer, "%d %d\n", sub[0].ID, len(sub)); err != nil {
			return fmt.Errorf("failed to write xref subsection header: %w", err)
		}
		for _, entry := range sub {
			line := fmt.Sprintf("%010d %05d n\r\n", entry.Offset, entry.Gen)
			if _, err := c.OutputBuffer.Write([]byte(line)); err != nil {
				return fmt.Errorf("failed to write incremental xref entry: %w", err)
			}
		}
	}
	return nil
}

// writeXrefStream writes the cross-reference stream object. The stream
// includes an entry for itself.
func (c *Context) writeXrefStream() error {
	id := c.lastXrefID + uint32(len(c.newXrefEntries)) + 1
	self := xrefEntry{ID: id, Offset: c.NewXrefStart}
	entries := append(c.allEntries(), self)
	sections := subsections(entries)

	var rows bytes.Buffer
	var index []uint32
	for _, sub := range sections {
		index = append(index, sub[0].ID, uint32(len(sub)))
		for _, e := range sub {
			writeXrefStreamLine(&rows, 1, e.Offset, e.Gen)
		}
	}

	streamBytes, err := encodeXrefStream(rows.Bytes())
	if err != nil {
		return fmt.Errorf("failed to encode xref stream: %w", err)
	}

	var obj bytes.Buffer
	obj.WriteString("<< /Type /XRef\n")
	fmt.Fprintf(&obj, "  /Length %d\n", len(streamBytes))
	obj.WriteString("  /Filter /FlateDecode\n")
	obj.WriteString("  /W [ 1 4 2 ]\n")
	fmt.Fprintf(&obj, "  /Size %d\n", max(c.size(), int64(id)+1))
	obj.WriteString("  /Index [")
	for _, v := range index {
		fmt.Fprintf(&obj, " %d", v)
	}
	obj.WriteString(" ]\n")
	if err := c.writeTrailerEntries(&obj); err != nil {
		return err
	}
	obj.WriteString(">>\nstream\n")
	obj.Write(streamBytes)
	obj.WriteString("\nendstream")

	if err := c.writeObject(id, 0, obj.Bytes()); err != nil {
		return fmt.Errorf("failed to add xref stream object: %w", err)
	}
	c.newXrefEntries = append(c.newXrefEntries, self)
	return nil
}

func encodeXrefStream(data []byte) ([]byte, error) {
	var b bytes.Buffer
	w := zlib.NewWriter(&b)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// writeXrefStreamLine writes one row: type (1 byte), offset (4 bytes),
// generation (2 bytes).
func writeXrefStreamLine(b *bytes.Buffer, xreftype byte, offset int64, gen uint16) {
	b.WriteByte(xreftype)
	_ = binary.Write(b, binary.BigEndian, uint32(offset))
	_ = binary.Write(b, binary.BigEndian, gen)
}

// writeTrailerEntries writes /Root, /Info, /ID and /Prev, carried over from
// the previous revision.
func (c *Context) writeTrailerEntries(w io.Writer) error {
	trailer := c.PDFReader.Trailer()

	root, ok := reference(trailer.Key("Root"), 0)
	if !ok {
		return fmt.Errorf("trailer has no /Root reference: %w", ErrMalformed)
	}
	fmt.Fprintf(w, "  /Root %s\n", root)

	if info, ok := reference(trailer.Key("Info"), 0); ok {
		fmt.Fprintf(w, "  /Info %s\n", info)
	}

	if id := trailer.Key("ID"); id.Kind() == pdf.Array && id.Len() == 2 {
		id0 := hex.EncodeToString([]byte(id.Index(0).RawString()))
		id1 := hex.EncodeToString([]byte(id.Index(1).RawString()))
		fmt.Fprintf(w, "  /ID [<%s> <%s>]\n", id0, id1)
	}

	fmt.Fprintf(w, "  /Prev %s\n", strconv.FormatInt(c.PDFReader.XrefInformation.StartPos, 10))
	return nil
}

// writeTrailer finishes the revision.
func (c *Context) writeTrailer() error {
	if c.PDFReader.XrefInformation.Type != "stream" {
		var t bytes.Buffer
		t.WriteString("trailer\n<<\n")
		fmt.Fprintf(&t, "  /Size %d\n", c.size())
		if err := c.writeTrailerEntries(&t); err != nil {
			return err
		}
		t.WriteString(">>\n")
		if _, err := c.OutputBuffer.Write(t.Bytes()); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(c.OutputBuffer, "startxref\n%d\n%%%%EOF\n", c.NewXrefStart); err != nil {
		return err
	}
	return nil
}
