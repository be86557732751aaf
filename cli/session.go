package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/digitorus/pdfredact"
	"github.com/digitorus/pdfredact/config"
	"github.com/digitorus/pdfredact/coords"
)

// stringList collects a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ", ") }

func (l *stringList) Set(s string) error {
	*l = append(*l, s)
	return nil
}

var (
	Terms   stringList
	Regions stringList
)

func selectionFlags(fs *flag.FlagSet) {
	fs.Var(&Terms, "term", "Phrase to redact, may be repeated")
	fs.Var(&Regions, "region", "Area to redact as page:x,y,width,height in PDF points from the bottom left, may be repeated")
	fs.StringVar(&Fill, "fill", "", "Redaction colour as #rrggbb, overrides fill_color")
	fs.StringVar(&ConfigFile, "config", "", fmt.Sprintf("Configuration file (default %q when present)", config.DefaultLocation))
	fs.BoolVar(&Verbose, "v", false, "Verbose logging")
}

// ParseRegion parses "page:x,y,width,height" with a 1-based page number.
func ParseRegion(s string) (page int, rect coords.Rect, err error) {
	p, nums, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, rect, fmt.Errorf("region %q: want page:x,y,width,height", s)
	}
	page, err = strconv.Atoi(strings.TrimSpace(p))
	if err != nil || page < 1 {
		return 0, rect, fmt.Errorf("region %q: invalid page number", s)
	}

	fields := strings.Split(nums, ",")
	if len(fields) != 4 {
		return 0, rect, fmt.Errorf("region %q: want four numbers after the page", s)
	}
	var v [4]float64
	for i, f := range fields {
		v[i], err = strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return 0, rect, fmt.Errorf("region %q: %w", s, err)
		}
	}
	rect = coords.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
	if !rect.Finite() {
		return 0, rect, fmt.Errorf("region %q: not finite", s)
	}
	return page - 1, rect, nil
}

// openSession opens input and adds the regions selected by Terms and
// Regions.
func openSession(input string) (*pdfredact.Session, error) {
	opts, err := options()
	if err != nil {
		return nil, err
	}
	doc, err := pdfredact.OpenFile(input)
	if err != nil {
		return nil, err
	}
	s := pdfredact.NewSession(doc, opts)

	for _, term := range Terms {
		added, err := s.AddPhrase(term)
		if err != nil {
			return nil, fmt.Errorf("term %q: %w", term, err)
		}
		if len(added) == 0 {
			Logger.Warn("phrase not found", zap.String("term", term))
		}
	}
	for _, arg := range Regions {
		page, rect, err := ParseRegion(arg)
		if err != nil {
			return nil, err
		}
		if _, err := s.AddRect(page, rect); err != nil {
			return nil, fmt.Errorf("region %q: %w", arg, err)
		}
	}
	return s, nil
}

// writeAtomic writes data to a temporary file next to path and renames it
// into place, so a failed write never leaves a partial file behind.
func writeAtomic(path string, data []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
		}
	}()

	if _, err = f.Write(data); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Chmod(f.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

func samePath(a, b string) bool {
	fa, errA := os.Stat(a)
	fb, errB := os.Stat(b)
	if errA == nil && errB == nil {
		return os.SameFile(fa, fb)
	}
	return filepath.Clean(a) == filepath.Clean(b)
}
