package metadata

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrlokans/shelfshare/internal/entities"
)

// Finder is satisfied by Service.
type Finder interface {
	LookupISBN(ctx context.Context, isbn string) (*BookMetadata, error)
	Search(ctx context.Context, query string, limit int) ([]BookMetadata, error)
}

// BookUpdater defines how the enricher reads and writes books.
type BookUpdater interface {
	GetByID(id uint) (*entities.Book, error)
	Update(id uint, fields map[string]any) error
}

// CoverInvalidator defines the interface for invalidating cached covers.
type CoverInvalidator interface {
	InvalidateCover(bookID uint) error
}

// EnrichmentResult contains the result of an enrichment operation.
type EnrichmentResult struct {
	Book          *entities.Book `json:"book"`
	FieldsUpdated []string       `json:"fields_updated"`
	Source        string         `json:"source,omitempty"`
	SearchMethod  string         `json:"search_method,omitempty"` // "isbn" or "title"
}

// Enricher fills in empty book fields from external metadata. Values a user
// already entered are never overwritten.
type Enricher struct {
	finder           Finder
	books            BookUpdater
	coverInvalidator CoverInvalidator
}

func NewEnricher(finder Finder, books BookUpdater) *Enricher {
	return &Enricher{finder: finder, books: books}
}

// SetCoverInvalidator sets the cover cache invalidator (optional).
func (e *Enricher) SetCoverInvalidator(invalidator CoverInvalidator) {
	e.coverInvalidator = invalidator
}

// EnrichBook looks the book up by ISBN, or by title and authors when it has
// none, and stores whatever fields were missing.
func (e *Enricher) EnrichBook(ctx context.Context, bookID uint) (*EnrichmentResult, error) {
	book, err := e.books.GetByID(bookID)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}

	var metadata *BookMetadata
	searchMethod := "isbn"
	if book.ISBN != "" {
		metadata, err = e.finder.LookupISBN(ctx, book.ISBN)
	} else {
		searchMethod = "title"
		metadata, err = e.byTitle(ctx, book)
	}
	if err != nil {
		return nil, fmt.Errorf("metadata search failed: %w", err)
	}

	fields, updated := BuildUpdates(book, metadata)
	if len(updated) > 0 {
		if _, ok := fields["cover_url"]; ok && e.coverInvalidator != nil {
			_ = e.coverInvalidator.InvalidateCover(bookID)
		}
		if err := e.books.Update(bookID, fields); err != nil {
			return nil, fmt.Errorf("update book metadata: %w", err)
		}
		book, err = e.books.GetByID(bookID)
		if err != nil {
			return nil, fmt.Errorf("refresh book: %w", err)
		}
	}

	return &EnrichmentResult{
		Book:          book,
		FieldsUpdated: updated,
		Source:        metadata.Source,
		SearchMethod:  searchMethod,
	}, nil
}

func (e *Enricher) byTitle(ctx context.Context, book *entities.Book) (*BookMetadata, error) {
	query := strings.TrimSpace(book.Title + " " + book.Authors)
	results, err := e.finder.Search(ctx, query, 5)
	if err != nil {
		return nil, err
	}
	author := book.Authors
	if i := strings.Index(author, ","); i >= 0 {
		author = strings.TrimSpace(author[:i])
	}
	best := BestMatch(results, book.Title, author)
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

// BuildUpdates returns the column updates that fill book's empty fields from
// metadata, plus the names of those columns in a stable order.
func BuildUpdates(book *entities.Book, metadata *BookMetadata) (map[string]any, []string) {
	fields := make(map[string]any)
	var updated []string

	setString := func(column, current, value string) {
		if current == "" && value != "" {
			fields[column] = value
			updated = append(updated, column)
		}
	}
	setInt := func(column string, current, value int) {
		if current == 0 && value > 0 {
			fields[column] = value
			updated = append(updated, column)
		}
	}

	setString("isbn", book.ISBN, metadata.ISBN)
	setString("authors", book.Authors, metadata.AuthorsString())
	setString("description", book.Description, metadata.Description)
	setString("cover_url", book.CoverURL, metadata.CoverURL)
	setString("publisher", book.Publisher, metadata.Publisher)
	setInt("published_year", book.PublishedYear, metadata.PublishedYear)
	setInt("page_count", book.PageCount, metadata.PageCount)
	setString("language", book.Language, metadata.Language)

	return fields, updated
}

// ApplyTo copies metadata into empty fields of an unsaved book.
func (m *BookMetadata) ApplyTo(book *entities.Book) {
	if book.Title == "" {
		book.Title = m.Title
	}
	fields, _ := BuildUpdates(book, m)
	for column, value := range fields {
		switch column {
		case "isbn":
			book.ISBN = value.(string)
		case "authors":
			book.Authors = value.(string)
		case "description":
			book.Description = value.(string)
		case "cover_url":
			book.CoverURL = value.(string)
		case "publisher":
			book.Publisher = value.(string)
		case "published_year":
			book.PublishedYear = value.(int)
		case "page_count":
			book.PageCount = value.(int)
		case "language":
			book.Language = value.(string)
		}
	}
}
