// Package cli implements the pdfredact command line tool.
package cli

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/digitorus/pdfredact"
	"github.com/digitorus/pdfredact/config"
	"github.com/digitorus/pdfredact/raster"
)

var osExit = os.Exit

var (
	// Stdout receives command output.
	Stdout io.Writer = os.Stdout

	// Logger and Settings are initialized by each command after its flags
	// are parsed.
	Logger   = zap.NewNop()
	Settings = config.Default()

	// Renderer overrides the page renderer used for secure exports and
	// previews.
	Renderer raster.Opener

	ConfigFile string
	Verbose    bool

	// Fill and Oversample override the configuration when set.
	Fill       string
	Oversample float64
)

func Usage() {
	fmt.Printf("Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Println("Commands:")
	fmt.Println("  find     List the occurrences of phrases in a PDF file")
	fmt.Println("  redact   Redact phrases and areas of a PDF file")
	fmt.Println("  preview  Render a page with its redactions to an image")
	fmt.Println("")
	fmt.Printf("Use '%s <command> -h' for command-specific help\n", os.Args[0])
	osExit(1)
}

// setup loads the configuration and builds the logger. Without -config the
// file at config.DefaultLocation is used when it exists.
func setup() error {
	path := ConfigFile
	if path == "" {
		if _, err := os.Stat(config.DefaultLocation); err == nil {
			path = config.DefaultLocation
		}
	}

	Settings = config.Default()
	if path != "" {
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		Settings = c
	}

	level, err := Settings.Level()
	if err != nil {
		return err
	}
	logger, err := newLogger(level, Verbose)
	if err != nil {
		return err
	}
	Logger = logger
	return nil
}

func newLogger(level zapcore.Level, verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

// options returns the redaction options from Settings.
func options() (pdfredact.Options, error) {
	opts, err := Settings.Options()
	if err != nil {
		return opts, err
	}
	opts.Logger = Logger
	if Fill != "" {
		if opts.Fill, err = config.ParseColor(Fill); err != nil {
			return opts, err
		}
	}
	if Oversample > 0 {
		opts.Oversample = Oversample
	}
	if Renderer != nil {
		opts.Open = Renderer
	}
	return opts, nil
}

// exit flushes the logger and terminates with status 1 when err is set.
func exit(err error) {
	_ = Logger.Sync()
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	osExit(1)
}
