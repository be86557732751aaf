package pdfredact

import (
	"context"
	"errors"
	"fmt"

	"github.com/digitorus/pdfredact/extract"
	ipdf "github.com/digitorus/pdfredact/internal/pdf"
	"github.com/digitorus/pdfredact/preview"
	"github.com/digitorus/pdfredact/raster"
	"github.com/digitorus/pdfredact/region"
)

var (
	// ErrInvalidInput is returned for input rejected before any work is
	// done: files that are not PDF documents, empty search terms, drags
	// below the size threshold.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnreadableDocument is returned for corrupt or unsupported documents.
	ErrUnreadableDocument = errors.New("unreadable document")

	// ErrProtectedDocument is returned for password protected or encrypted
	// documents.
	ErrProtectedDocument = errors.New("document is password protected")

	// ErrRenderCancelled is returned by page renders that were cancelled or
	// superseded. It is expected during navigation and should not be shown.
	ErrRenderCancelled = preview.ErrCancelled

	// ErrExportFailed is matched by every *ExportError.
	ErrExportFailed = errors.New("export failed")

	// ErrExportInProgress is returned when an export is requested while
	// another is running on the same session.
	ErrExportInProgress = errors.New("an export is already in progress")
)

// ExportError reports a failed export and the mode that failed. The whole
// export is abandoned; no output is produced.
type ExportError struct {
	Mode ExportMode
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("%s export failed: %v", e.Mode, e.Err)
}

func (e *ExportError) Unwrap() []error {
	return []error{ErrExportFailed, e.Err}
}

// IsSilent reports whether err is expected during normal interaction and
// should not be reported to the user.
func IsSilent(err error) bool {
	return errors.Is(err, ErrRenderCancelled) || errors.Is(err, region.ErrTooSmall)
}

// classify maps errors of the parsing and rendering packages onto the
// package error taxonomy.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrProtectedDocument), errors.Is(err, ErrUnreadableDocument), errors.Is(err, ErrInvalidInput):
		return err
	case errors.Is(err, ipdf.ErrEncrypted), errors.Is(err, raster.ErrProtected):
		return fmt.Errorf("%w: %w", ErrProtectedDocument, err)
	case errors.Is(err, ipdf.ErrMalformed), errors.Is(err, ipdf.ErrNoPages), errors.Is(err, extract.ErrMalformedContent):
		return fmt.Errorf("%w: %w", ErrUnreadableDocument, err)
	case errors.Is(err, region.ErrPageOutOfRange), errors.Is(err, region.ErrEmpty), errors.Is(err, region.ErrTooSmall):
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return err
}

// exportError wraps a failed export. Cancellation is passed through so
// callers can tell it apart from a failure.
func exportError(mode ExportMode, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ExportError{Mode: mode, Err: classify(err)}
}
