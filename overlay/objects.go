package overlay

import (
	"bytes"
	"compress/zlib"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/digitorus/pdf"

	ipdf "github.com/digitorus/pdfredact/internal/pdf"
)

// maxValueDepth bounds recursion when re-serializing direct objects.
const maxValueDepth = 32

// addObject appends a new object and returns its object number.
func (c *Context) addObject(content []byte) (uint32, error) {
	id := c.lastXrefID + uint32(len(c.newXrefEntries)) + 1
	offset := int64(c.OutputBuffer.Buff.Len())

	if err := c.writeObject(id, 0, content); err != nil {
		return 0, err
	}
	c.newXrefEntries = append(c.newXrefEntries, xrefEntry{ID: id, Offset: offset})
	return id, nil
}

// updateObject appends a new revision of an existing object.
func (c *Context) updateObject(id uint32, gen uint16, content []byte) error {
	offset := int64(c.OutputBuffer.Buff.Len())
	if err := c.writeObject(id, gen, content); err != nil {
		return err
	}
	c.updatedXrefEntries = append(c.updatedXrefEntries, xrefEntry{ID: id, Gen: gen, Offset: offset})
	return nil
}

func (c *Context) writeObject(id uint32, gen uint16, content []byte) error {
	if _, err := fmt.Fprintf(c.OutputBuffer, "%d %d obj\n", id, gen); err != nil {
		return fmt.Errorf("failed to write object header: %w", err)
	}
	if _, err := c.OutputBuffer.Write(content); err != nil {
		return fmt.Errorf("failed to write object %d: %w", id, err)
	}
	if _, err := c.OutputBuffer.Write([]byte("\nendobj\n")); err != nil {
		return fmt.Errorf("failed to write object trailer: %w", err)
	}
	return nil
}

// addStream appends a content stream, compressed unless compression is off.
func (c *Context) addStream(data []byte) (uint32, error) {
	var buf bytes.Buffer
	if c.CompressLevel == zlib.NoCompression {
		fmt.Fprintf(&buf, "<< /Length %d >>\nstream\n", len(data))
		buf.Write(data)
	} else {
		var z bytes.Buffer
		zw, err := zlib.NewWriterLevel(&z, c.CompressLevel)
		if err != nil {
			return 0, err
		}
		if _, err := zw.Write(data); err != nil {
			return 0, err
		}
		if err := zw.Close(); err != nil {
			return 0, err
		}
		fmt.Fprintf(&buf, "<< /Length %d /Filter /FlateDecode >>\nstream\n", z.Len())
		buf.Write(z.Bytes())
	}
	buf.WriteString("\nendstream")
	return c.addObject(buf.Bytes())
}

// updatePage writes a new revision of the page dictionary whose content is
// [open, original streams..., fill]. All other keys are kept as they are.
func (c *Context) updatePage(info ipdf.PageInfo, openID, fillID uint32) error {
	page := info.Object
	id := info.ID()
	if id == 0 {
		return fmt.Errorf("page is not an indirect object: %w", ErrMalformed)
	}

	var buf bytes.Buffer
	buf.WriteString("<<\n")
	for _, key := range page.Keys() {
		if key == "Contents" {
			continue
		}
		fmt.Fprintf(&buf, "  /%s ", escapeName(key))
		if err := writeValue(&buf, page.Key(key), id, 0); err != nil {
			return fmt.Errorf("failed to serialize /%s: %w", key, err)
		}
		buf.WriteString("\n")
	}

	refs, err := contentRefs(page.Key("Contents"), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(&buf, "  /Contents [%d 0 R", openID)
	for _, ref := range refs {
		buf.WriteString(" " + ref)
	}
	fmt.Fprintf(&buf, " %d 0 R]\n", fillID)
	buf.WriteString(">>")

	return c.updateObject(id, info.Gen(), buf.Bytes())
}

// contentRefs returns the indirect references of the existing content streams.
func contentRefs(contents pdf.Value, pageID uint32) ([]string, error) {
	switch contents.Kind() {
	case pdf.Null:
		return nil, nil
	case pdf.Stream:
		ref, ok := reference(contents, pageID)
		if !ok {
			return nil, fmt.Errorf("direct content stream: %w", ErrMalformed)
		}
		return []string{ref}, nil
	case pdf.Array:
		container := uint32(contents.GetPtr().GetID())
		var refs []string
		for i := 0; i < contents.Len(); i++ {
			ref, ok := reference(contents.Index(i), container)
			if !ok {
				return nil, fmt.Errorf("content array entry %d is not a reference: %w", i, ErrMalformed)
			}
			refs = append(refs, ref)
		}
		return refs, nil
	}
	return nil, fmt.Errorf("unexpected /Contents of kind %v: %w", contents.Kind(), ErrMalformed)
}

// reference reports whether v was reached through an indirect reference from
// the object numbered container, and formats that reference. Direct values
// carry the number of the object that contains them.
func reference(v pdf.Value, container uint32) (string, bool) {
	ptr := v.GetPtr()
	id := uint32(ptr.GetID())
	if id == 0 || id == container {
		return "", false
	}
	return fmt.Sprintf("%d %d R", id, ptr.GetGen()), true
}

// writeValue serializes v as it appears inside the object numbered container.
func writeValue(b *bytes.Buffer, v pdf.Value, container uint32, depth int) error {
	if depth > maxValueDepth {
		return fmt.Errorf("object nesting deeper than %d", maxValueDepth)
	}
	if ref, ok := reference(v, container); ok {
		b.WriteString(ref)
		return nil
	}

	switch v.Kind() {
	case pdf.Null:
		b.WriteString("null")
	case pdf.Bool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case pdf.Integer:
		b.WriteString(strconv.FormatInt(v.Int64(), 10))
	case pdf.Real:
		b.WriteString(ipdf.FormatNumber(v.Float64()))
	case pdf.String:
		b.WriteString("<" + hex.EncodeToString([]byte(v.RawString())) + ">")
	case pdf.Name:
		b.WriteString("/" + escapeName(v.Name()))
	case pdf.Array:
		b.WriteString("[")
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				b.WriteString(" ")
			}
			if err := writeValue(b, v.Index(i), container, depth+1); err != nil {
				return err
			}
		}
		b.WriteString("]")
	case pdf.Dict:
		b.WriteString("<<")
		for _, key := range v.Keys() {
			b.WriteString(" /" + escapeName(key) + " ")
			if err := writeValue(b, v.Key(key), container, depth+1); err != nil {
				return err
			}
		}
		b.WriteString(" >>")
	case pdf.Stream:
		return fmt.Errorf("direct stream object: %w", ErrMalformed)
	default:
		return fmt.Errorf("unknown value kind %v", v.Kind())
	}
	return nil
}

// escapeName encodes a name with #xx escapes for delimiters, whitespace and
// bytes outside the printable ASCII range.
func escapeName(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if ch < '!' || ch > '~' || strings.IndexByte("#/()<>[]{}%", ch) >= 0 {
			fmt.Fprintf(&b, "#%02X", ch)
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}
