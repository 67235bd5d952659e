package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelfshare/internal/isbn"
	"github.com/mrlokans/shelfshare/internal/metadata"
)

// TextDetector is satisfied by VisionClient.
type TextDetector interface {
	DetectText(ctx context.Context, image []byte) (string, error)
}

// ISBNLookup is satisfied by metadata.Service.
type ISBNLookup interface {
	LookupISBN(ctx context.Context, isbn string) (*metadata.BookMetadata, error)
}

// Result is what a photo scan produced. Lines are returned so the caller can
// fall back to a title search when no ISBN was readable.
type Result struct {
	Lines    []string               `json:"lines"`
	ISBNs    []string               `json:"isbns"`
	ISBN     string                 `json:"isbn,omitempty"`
	Metadata *metadata.BookMetadata `json:"metadata,omitempty"`
}

type Scanner struct {
	detector TextDetector
	lookup   ISBNLookup
	maxBytes int64
}

func NewScanner(detector TextDetector, lookup ISBNLookup, maxBytes int64) *Scanner {
	if maxBytes <= 0 {
		maxBytes = 8 << 20
	}
	return &Scanner{detector: detector, lookup: lookup, maxBytes: maxBytes}
}

// ErrImageTooLarge and ErrEmptyImage reject bad uploads before calling Vision.
var (
	ErrImageTooLarge = errors.New("ocr: image too large")
	ErrEmptyImage    = errors.New("ocr: image is empty")
)

// MaxBytes is the largest accepted image.
func (s *Scanner) MaxBytes() int64 { return s.maxBytes }

// Scan reads text from the image and resolves the first ISBN that a provider knows.
func (s *Scanner) Scan(ctx context.Context, image []byte) (*Result, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}
	if int64(len(image)) > s.maxBytes {
		return nil, ErrImageTooLarge
	}

	text, err := s.detector.DetectText(ctx, image)
	if err != nil {
		return nil, err
	}

	result := &Result{Lines: splitLines(text), ISBNs: isbn.Find(text)}
	if result.ISBNs == nil {
		result.ISBNs = []string{}
	}

	for _, code := range result.ISBNs {
		found, err := s.lookup.LookupISBN(ctx, code)
		if err == nil {
			result.ISBN = code
			result.Metadata = found
			break
		}
		if !errors.Is(err, metadata.ErrNotFound) {
			logrus.WithError(err).WithField("isbn", code).Warn("lookup failed for scanned ISBN")
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("scan cancelled: %w", ctx.Err())
		}
	}
	if result.ISBN == "" && len(result.ISBNs) > 0 {
		result.ISBN = result.ISBNs[0]
	}
	return result, nil
}

func splitLines(text string) []string {
	lines := []string{}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
