// Package config loads redaction settings from a TOML file.
package config

import (
	"compress/zlib"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/asaskevich/govalidator"
	"go.uber.org/zap/zapcore"

	"github.com/digitorus/pdfredact"
	"github.com/digitorus/pdfredact/coords"
	"github.com/digitorus/pdfredact/preview"
	"github.com/digitorus/pdfredact/region"
)

func init() {
	govalidator.SetFieldsRequiredByDefault(true)
	govalidator.CustomTypeTagMap.Set("compresslevel", func(i interface{}, _ interface{}) bool {
		level, ok := i.(int)
		return ok && level >= zlib.HuffmanOnly && level <= zlib.BestCompression
	})
}

// DefaultLocation is read by the command line tool when no file is given.
var DefaultLocation = "./pdfredact.toml"

// Config is the root of the config
type Config struct {
	// Padding around matched phrases in page units.
	Padding float64 `toml:"padding" valid:"optional,range(0|72)"`

	// Oversample is the secure export render scale.
	Oversample float64 `toml:"oversample" valid:"optional,range(0|16)"`

	// MinDragPixels is the size both dimensions of a manual drag must exceed.
	MinDragPixels float64 `toml:"min_drag_pixels" valid:"optional,range(0|100)"`

	// FillColor is the redaction colour as #rgb or #rrggbb.
	FillColor string `toml:"fill_color" valid:"hexcolor"`

	CompressLevel int     `toml:"compress_level" valid:"compresslevel,optional"`
	Parallelism   int     `toml:"parallelism" valid:"optional,range(0|256)"`
	LogLevel      string  `toml:"log_level" valid:"in(debug|info|warn|error)"`
	PreviewScale  float64 `toml:"preview_scale" valid:"optional,range(0|16)"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Padding:       region.DefaultPadding,
		Oversample:    coords.DefaultOversample,
		MinDragPixels: region.DefaultMinPixels,
		FillColor:     "#000000",
		CompressLevel: zlib.DefaultCompression,
		LogLevel:      "info",
		PreviewScale:  preview.DefaultBaseScale,
	}
}

// ValidateFields validates all the fields of the config
func (c Config) ValidateFields() error {
	_, err := govalidator.ValidateStruct(c)
	if err != nil {
		return err
	}
	return nil
}

// Load reads configfile on top of the defaults and validates the result.
func Load(configfile string) (Config, error) {
	if _, err := os.Stat(configfile); err != nil {
		return Config{}, fmt.Errorf("config file is missing: %w", err)
	}

	c := Default()
	md, err := toml.DecodeFile(configfile, &c)
	if err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", configfile, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config file %s: unknown key %s", configfile, undecoded[0])
	}

	if err := c.ValidateFields(); err != nil {
		return Config{}, fmt.Errorf("config is not valid: %w", err)
	}
	return c, nil
}

// Fill parses FillColor.
func (c Config) Fill() (color.RGBA, error) {
	return ParseColor(c.FillColor)
}

// Level parses LogLevel.
func (c Config) Level() (zapcore.Level, error) {
	return zapcore.ParseLevel(c.LogLevel)
}

// Options converts the settings into redaction options. Fields the config
// does not cover keep their defaults. A zero padding, drag size or
// compression level in the file switches that feature off.
func (c Config) Options() (pdfredact.Options, error) {
	fill, err := c.Fill()
	if err != nil {
		return pdfredact.Options{}, err
	}
	opts := pdfredact.DefaultOptions()
	opts.Padding = disabledIfZero(c.Padding)
	opts.MinPixels = disabledIfZero(c.MinDragPixels)
	opts.Fill = fill
	opts.CompressLevel = c.CompressLevel
	if c.CompressLevel == zlib.NoCompression {
		opts.CompressLevel = pdfredact.NoCompression
	}
	if c.Oversample > 0 {
		opts.Oversample = c.Oversample
	}
	if c.Parallelism > 0 {
		opts.Parallelism = c.Parallelism
	}
	return opts, nil
}

// disabledIfZero maps zero to the negative value pdfredact.Options uses to
// switch a setting off.
func disabledIfZero(v float64) float64 {
	if v == 0 {
		return -1
	}
	return v
}

// ParseColor parses an opaque colour written as #rgb or #rrggbb. The leading
// '#' is optional.
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
