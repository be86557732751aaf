// Package images provides page image resources for rebuilt PDF documents.
//
// A page bitmap is kept either as lossless PNG bytes or as a prepared image
// XObject, together with its dimensions and a SHA-256 hash, so identical
// pages can share one image object.
package images

import (
	"bytes"
	"compress/zlib"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
)

// ErrEmpty is returned for images without pixels.
var ErrEmpty = errors.New("image has no pixels")

// Image represents a page image resource.
type Image struct {
	Name   string // Identifier for the image
	Data   []byte // PNG encoded pixels, empty for prepared images
	Hash   string // SHA256 hash for deduplication
	Width  int
	Height int

	object []byte
	level  int
}

// Prepare builds the image XObject for img at zlib level right away. The
// pixels are not kept.
func Prepare(name string, img image.Image, level int) (Image, error) {
	b := img.Bounds()
	if b.Empty() {
		return Image{}, ErrEmpty
	}
	obj, err := xobject(img, level)
	if err != nil {
		return Image{}, fmt.Errorf("failed to prepare %s: %w", name, err)
	}
	sum := sha256.Sum256(obj)
	return Image{
		Name:   name,
		Hash:   hex.EncodeToString(sum[:]),
		Width:  b.Dx(),
		Height: b.Dy(),
		object: obj,
		level:  level,
	}, nil
}

// Encode stores img as PNG.
func Encode(name string, img image.Image, level png.CompressionLevel) (Image, error) {
	b := img.Bounds()
	if b.Empty() {
		return Image{}, ErrEmpty
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(&buf, img); err != nil {
		return Image{}, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return FromPNG(name, buf.Bytes())
}

// FromPNG wraps already encoded PNG data.
func FromPNG(name string, data []byte) (Image, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return Image{}, ErrEmpty
	}
	sum := sha256.Sum256(data)
	return Image{
		Name:   name,
		Data:   data,
		Hash:   hex.EncodeToString(sum[:]),
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// Decode returns the pixels.
func (i Image) Decode() (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(i.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", i.Name, err)
	}
	return img, nil
}

// XObject returns the dictionary and stream of an image XObject holding
// the pixels as 8 bit DeviceRGB samples. Transparent pixels are composited
// over white. The samples are Flate compressed unless level is
// zlib.NoCompression.
func (i Image) XObject(level int) ([]byte, error) {
	if i.object != nil && i.level == level {
		return i.object, nil
	}
	if len(i.Data) == 0 {
		return nil, fmt.Errorf("%s was prepared at level %d, not %d", i.Name, i.level, level)
	}
	img, err := i.Decode()
	if err != nil {
		return nil, err
	}
	return xobject(img, level)
}

func xobject(img image.Image, level int) ([]byte, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var samples bytes.Buffer
	var w io.Writer = &samples
	var zw *zlib.Writer
	compress := level != zlib.NoCompression
	if compress {
		var err error
		zw, err = zlib.NewWriterLevel(&samples, level)
		if err != nil {
			return nil, err
		}
		w = zw
	}

	row := make([]byte, width*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		rgbRow(row, img, y)
		if _, err := w.Write(row); err != nil {
			return nil, err
		}
	}
	if compress {
		if err := zw.Close(); err != nil {
			return nil, err
		}
	}

	var obj bytes.Buffer
	obj.WriteString("<< /Type /XObject /Subtype /Image\n")
	fmt.Fprintf(&obj, "  /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8\n", width, height)
	if compress {
		obj.WriteString("  /Filter /FlateDecode")
	}
	fmt.Fprintf(&obj, " /Length %d >>\nstream\n", samples.Len())
	obj.Write(samples.Bytes())
	obj.WriteString("\nendstream")
	return obj.Bytes(), nil
}

// rgbRow fills row with the RGB samples of line y of img. RGBA and NRGBA
// pixels are read from Pix directly.
func rgbRow(row []byte, img image.Image, y int) {
	bounds := img.Bounds()
	switch m := img.(type) {
	case *image.RGBA:
		pix := m.Pix[m.PixOffset(bounds.Min.X, y):]
		for x, o := 0, 0; o < len(row); x, o = x+4, o+3 {
			a := widen(pix[x+3])
			row[o] = overWhite(widen(pix[x]), a)
			row[o+1] = overWhite(widen(pix[x+1]), a)
			row[o+2] = overWhite(widen(pix[x+2]), a)
		}
	case *image.NRGBA:
		pix := m.Pix[m.PixOffset(bounds.Min.X, y):]
		for x, o := 0, 0; o < len(row); x, o = x+4, o+3 {
			a8 := uint32(pix[x+3])
			a := widen(pix[x+3])
			row[o] = overWhite(widen(pix[x])*a8/0xff, a)
			row[o+1] = overWhite(widen(pix[x+1])*a8/0xff, a)
			row[o+2] = overWhite(widen(pix[x+2])*a8/0xff, a)
		}
	default:
		for x, o := bounds.Min.X, 0; o < len(row); x, o = x+1, o+3 {
			r, g, b, a := img.At(x, y).RGBA()
			row[o] = overWhite(r, a)
			row[o+1] = overWhite(g, a)
			row[o+2] = overWhite(b, a)
		}
	}
}

// widen scales an 8 bit sample to 16 bits the way color.RGBA does.
func widen(v uint8) uint32 {
	return uint32(v) | uint32(v)<<8
}

// overWhite composites a premultiplied 16 bit sample over white.
func overWhite(c, a uint32) uint8 {
	return uint8((c + 0xffff - a) >> 8)
}
