package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/digitorus/pdfredact"
	"github.com/digitorus/pdfredact/match"
)

var Mode string

func RedactCommand(ctx context.Context) {
	redactFlags := flag.NewFlagSet("redact", flag.ExitOnError)

	redactFlags.StringVar(&Mode, "mode", "secure", "Export mode (secure, recoverable)")
	redactFlags.Float64Var(&Oversample, "oversample", 0, "Secure mode render scale, overrides oversample")
	selectionFlags(redactFlags)

	redactFlags.Usage = func() {
		fmt.Printf("Usage: %s redact [options] <input.pdf> [output.pdf]\n\n", os.Args[0])
		fmt.Println("Redact phrases and areas of a PDF file")
		fmt.Println("\nThe secure mode rebuilds every page from an image and removes the text.")
		fmt.Println("The recoverable mode only draws rectangles; the text underneath can still be copied.")
		fmt.Println("\nOptions:")
		redactFlags.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Printf("  %s redact -term \"Jane Smith\" -term 4242 input.pdf\n", os.Args[0])
		fmt.Printf("  %s redact -mode recoverable -region 1:72,680,200,14 input.pdf output.pdf\n", os.Args[0])
	}

	if err := redactFlags.Parse(os.Args[2:]); err != nil {
		log.Printf("Failed to parse redact flags: %v", err)
		osExit(1)
		return
	}

	if redactFlags.NArg() < 1 || (len(Terms) == 0 && len(Regions) == 0) {
		redactFlags.Usage()
		osExit(1)
		return
	}

	if err := setup(); err != nil {
		exit(err)
		return
	}
	exit(RedactPDF(ctx, redactFlags.Arg(0), redactFlags.Arg(1)))
}

// RedactPDF redacts input into output. An empty output derives the name
// from input and the mode.
var RedactPDF = redactPDFImpl

func redactPDFImpl(ctx context.Context, input, output string) error {
	mode, err := pdfredact.ParseExportMode(Mode)
	if err != nil {
		return err
	}
	if output == "" {
		output = mode.OutputName(input)
	}
	if samePath(input, output) {
		return fmt.Errorf("output %s would overwrite the input: %w", output, pdfredact.ErrInvalidInput)
	}

	s, err := openSession(input)
	if err != nil {
		return err
	}
	regions := s.Regions()
	if len(regions) == 0 {
		Logger.Warn("nothing to redact", zap.String("input", input))
	}

	data, err := s.Export(ctx, mode)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("redaction interrupted: %w", err)
		}
		return err
	}
	if err := writeAtomic(output, data); err != nil {
		return err
	}

	Logger.Info("redacted document written",
		zap.String("output", output),
		zap.Stringer("mode", mode),
		zap.Int("regions", len(regions)),
	)
	fmt.Fprintf(Stdout, "Redacted PDF written to %s (%d regions, %s)\n", output, len(regions), mode)
	if mode == pdfredact.Recoverable {
		fmt.Fprintln(Stdout, "Warning: recoverable mode does not remove the text under the redactions")
	}
	return nil
}

func FindCommand(ctx context.Context) {
	findFlags := flag.NewFlagSet("find", flag.ExitOnError)
	findFlags.StringVar(&ConfigFile, "config", "", "Configuration file")
	findFlags.BoolVar(&Verbose, "v", false, "Verbose logging")

	findFlags.Usage = func() {
		fmt.Printf("Usage: %s find [options] <input.pdf> <phrase> [phrase...]\n\n", os.Args[0])
		fmt.Println("List the occurrences of phrases and the areas that would be redacted")
		fmt.Println("\nOptions:")
		findFlags.PrintDefaults()
	}

	if err := findFlags.Parse(os.Args[2:]); err != nil {
		log.Printf("Failed to parse find flags: %v", err)
		osExit(1)
		return
	}
	if findFlags.NArg() < 2 {
		findFlags.Usage()
		osExit(1)
		return
	}

	if err := setup(); err != nil {
		exit(err)
		return
	}
	exit(FindPhrases(ctx, findFlags.Arg(0), findFlags.Args()[1:]))
}

// FindPhrases prints one line per occurrence: page number, phrase, matched
// text and the region rectangle in PDF points. A blank phrase is rejected
// with pdfredact.ErrInvalidInput.
var FindPhrases = findPhrasesImpl

func findPhrasesImpl(ctx context.Context, input string, phrases []string) error {
	for _, phrase := range phrases {
		if match.Normalize(phrase) == "" {
			return fmt.Errorf("phrase %q: empty search term: %w", phrase, pdfredact.ErrInvalidInput)
		}
	}
	opts, err := options()
	if err != nil {
		return err
	}
	doc, err := pdfredact.OpenFile(input)
	if err != nil {
		return err
	}
	frags, err := doc.Fragments(opts.Extract)
	if err != nil {
		return err
	}

	agg := opts.Aggregator()
	total := 0
	for _, phrase := range phrases {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, span := range opts.Matcher.Find(phrase, frags) {
			r, err := agg.FromSpan(span)
			if err != nil {
				continue
			}
			total++
			fmt.Fprintf(Stdout, "%d\t%q\t%q\t%.2f %.2f %.2f %.2f\n",
				r.PageIndex+1, r.Term, r.Text, r.Rect.X, r.Rect.Y, r.Rect.Width, r.Rect.Height)
		}
	}
	Logger.Debug("find finished",
		zap.Int("fragments", len(frags)),
		zap.Int("matches", total),
	)
	if total == 0 {
		fmt.Fprintln(Stdout, "No matches")
	}
	return nil
}
