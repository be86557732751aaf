package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	pdflib "github.com/digitorus/pdf"
)

var (
	// ErrEncrypted is returned for documents with a security handler.
	ErrEncrypted = errors.New("document is encrypted")
	// ErrMalformed is returned when the document structure cannot be read.
	ErrMalformed = errors.New("malformed document")
)

// Open parses data and returns its reader and pages. Encrypted documents are
// rejected even when they open with an empty user password.
func Open(data []byte) (rdr *pdflib.Reader, pages []PageInfo, err error) {
	// The parser panics on some malformed input.
	defer func() {
		if r := recover(); r != nil {
			rdr, pages = nil, nil
			err = fmt.Errorf("%v: %w", r, ErrMalformed)
		}
	}()

	rdr, err = pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "encrypt") {
			return nil, nil, fmt.Errorf("%v: %w", err, ErrEncrypted)
		}
		return nil, nil, fmt.Errorf("failed to parse PDF: %v: %w", err, ErrMalformed)
	}
	if !rdr.Trailer().Key("Encrypt").IsNull() {
		return nil, nil, ErrEncrypted
	}

	pages, err = Pages(rdr)
	if err != nil {
		return nil, nil, fmt.Errorf("%v: %w", err, ErrMalformed)
	}
	return rdr, pages, nil
}
