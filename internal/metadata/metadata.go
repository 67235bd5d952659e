// Package metadata looks up bibliographic data for books by ISBN or title
// using Google Books and Open Library.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by providers when nothing matches the query.
var ErrNotFound = errors.New("book metadata not found")

// ErrInvalidISBN is returned for input that is not a valid ISBN-10 or ISBN-13.
var ErrInvalidISBN = errors.New("invalid ISBN")

// Provider names used in results and metrics.
const (
	ProviderGoogleBooks = "google_books"
	ProviderOpenLibrary = "open_library"
)

// BookMetadata contains book information from external sources.
type BookMetadata struct {
	Title         string   `json:"title,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	ISBN          string   `json:"isbn,omitempty"`
	CoverURL      string   `json:"cover_url,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	PublishedYear int      `json:"published_year,omitempty"`
	Description   string   `json:"description,omitempty"`
	PageCount     int      `json:"page_count,omitempty"`
	Language      string   `json:"language,omitempty"`
	Subjects      []string `json:"subjects,omitempty"`
	Source        string   `json:"source,omitempty"`
}

// AuthorsString joins authors the way they are stored on a book.
func (m *BookMetadata) AuthorsString() string {
	return strings.Join(m.Authors, ", ")
}

// Provider is a single metadata source.
type Provider interface {
	Name() string
	SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error)
	Search(ctx context.Context, query string, limit int) ([]BookMetadata, error)
}

// BestMatch picks the result closest to title and author: exact title
// beats partial, matching author adds weight, and ISBN or cover breaks ties.
func BestMatch(results []BookMetadata, title, author string) *BookMetadata {
	titleLower := strings.ToLower(title)
	authorLower := strings.ToLower(author)

	var best *BookMetadata
	bestScore := -1

	for i := range results {
		candidate := &results[i]
		score := 0

		candidateTitle := strings.ToLower(candidate.Title)
		if candidateTitle == titleLower {
			score += 10
		} else if strings.Contains(candidateTitle, titleLower) {
			score += 5
		}

		if author != "" {
			for _, a := range candidate.Authors {
				a = strings.ToLower(a)
				if a == authorLower {
					score += 10
					break
				} else if strings.Contains(a, authorLower) || strings.Contains(authorLower, a) {
					score += 5
					break
				}
			}
		}

		if candidate.ISBN != "" {
			score += 2
		}
		if candidate.CoverURL != "" {
			score++
		}

		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}

	return best
}

// extractYear tries to extract a 4-digit year from a date string.
func extractYear(dateStr string) int {
	dateStr = strings.TrimSpace(dateStr)
	if len(dateStr) < 4 {
		return 0
	}

	formats := []string{
		"2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"2006-01-02",
		"2006-01",
		"January 2006",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t.Year()
		}
	}

	// Last resort: find 4 consecutive digits
	for i := 0; i <= len(dateStr)-4; i++ {
		if dateStr[i] >= '0' && dateStr[i] <= '9' {
			var year int
			if _, err := fmt.Sscanf(dateStr[i:i+4], "%d", &year); err == nil && year > 1000 && year < 3000 {
				return year
			}
		}
	}

	return 0
}
