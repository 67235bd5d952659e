package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/entities"
	"github.com/mrlokans/shelfshare/internal/isbn"
	"github.com/mrlokans/shelfshare/internal/metadata"
	"github.com/mrlokans/shelfshare/internal/metrics"
)

const (
	maxTitleLength = 512
	searchLimit    = 50
)

// BookEnricher refreshes a stored book from external metadata.
type BookEnricher interface {
	EnrichBook(ctx context.Context, bookID uint) (*metadata.EnrichmentResult, error)
}

// BookInput is the payload for adding a book. With Lookup set, empty fields
// are filled from an ISBN lookup before the book is saved.
type BookInput struct {
	Title         string `json:"title"`
	Authors       string `json:"authors"`
	ISBN          string `json:"isbn"`
	Description   string `json:"description"`
	CoverURL      string `json:"cover_url"`
	Publisher     string `json:"publisher"`
	PublishedYear int    `json:"published_year"`
	PageCount     int    `json:"page_count"`
	Language      string `json:"language"`
	Lookup        bool   `json:"lookup"`
}

// BookUpdate carries optional metadata edits.
type BookUpdate struct {
	Title         *string `json:"title"`
	Authors       *string `json:"authors"`
	ISBN          *string `json:"isbn"`
	Description   *string `json:"description"`
	CoverURL      *string `json:"cover_url"`
	Publisher     *string `json:"publisher"`
	PublishedYear *int    `json:"published_year"`
	PageCount     *int    `json:"page_count"`
	Language      *string `json:"language"`
}

type BookService struct {
	access
	books    BookStore
	shelves  ShelfStore
	lookup   MetadataLookup
	queue    EnrichmentQueue
	enricher BookEnricher
	audit    AuditLogger
	now      func() time.Time
}

func NewBookService(books BookStore, shelves ShelfStore, members MembershipStore, audit AuditLogger) *BookService {
	if audit == nil {
		audit = nopAudit{}
	}
	return &BookService{
		access:  access{members: members},
		books:   books,
		shelves: shelves,
		audit:   audit,
		now:     time.Now,
	}
}

// SetLookup enables synchronous metadata lookup on Add.
func (s *BookService) SetLookup(lookup MetadataLookup) { s.lookup = lookup }

// SetEnrichment wires the background queue and the synchronous enricher.
func (s *BookService) SetEnrichment(queue EnrichmentQueue, enricher BookEnricher) {
	s.queue = queue
	s.enricher = enricher
}

// Add puts a new book on a shelf. Any member may add books.
func (s *BookService) Add(ctx context.Context, userID, shelfID uint, in BookInput) (*entities.Book, error) {
	shelf, err := s.shelves.GetByID(shelfID)
	if err != nil {
		return nil, translate(err, "shelf")
	}
	if _, err := s.member(shelf.LocationID, userID); err != nil {
		return nil, fmt.Errorf("shelf %w", ErrNotFound)
	}

	book := &entities.Book{
		ShelfID:       shelf.ID,
		LocationID:    shelf.LocationID,
		Title:         strings.TrimSpace(in.Title),
		Authors:       strings.TrimSpace(in.Authors),
		Description:   strings.TrimSpace(in.Description),
		CoverURL:      strings.TrimSpace(in.CoverURL),
		Publisher:     strings.TrimSpace(in.Publisher),
		PublishedYear: in.PublishedYear,
		PageCount:     in.PageCount,
		Language:      strings.TrimSpace(in.Language),
		AddedByID:     userID,
		Status:        entities.BookStatusAvailable,
	}
	if book.ISBN, err = canonicalISBN(in.ISBN); err != nil {
		return nil, err
	}

	looked := false
	if in.Lookup && book.ISBN != "" && s.lookup != nil {
		found, err := s.lookup.LookupISBN(ctx, book.ISBN)
		switch {
		case err == nil:
			found.ApplyTo(book)
			looked = true
		case errors.Is(err, metadata.ErrNotFound):
		default:
			logrus.WithError(err).WithField("isbn", book.ISBN).Warn("metadata lookup failed while adding book")
		}
	}

	if book.Title, err = requireName("title", book.Title, maxTitleLength); err != nil {
		return nil, err
	}
	if err := validateNumbers(book.PublishedYear, book.PageCount); err != nil {
		return nil, err
	}

	if err := s.books.Create(book); err != nil {
		return nil, translate(err, "book")
	}

	if !looked && book.NeedsMetadata() && s.queue != nil {
		if err := s.queue.EnqueueEnrichment(book.ID, userID); err != nil {
			logrus.WithError(err).WithField("book_id", book.ID).Warn("failed to queue metadata enrichment")
		}
	}
	return book, nil
}

func canonicalISBN(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	code := isbn.Canonical(raw)
	if code == "" {
		return "", invalid("isbn is not a valid ISBN-10 or ISBN-13")
	}
	return code, nil
}

func validateNumbers(year, pages int) error {
	if year < 0 || year > 3000 {
		return invalid("published_year is out of range")
	}
	if pages < 0 {
		return invalid("page_count must not be negative")
	}
	return nil
}

// Get returns the book when the caller belongs to its location.
func (s *BookService) Get(userID, bookID uint) (*entities.Book, error) {
	book, err := s.books.GetByID(bookID)
	if err != nil {
		return nil, translate(err, "book")
	}
	if _, err := s.member(book.LocationID, userID); err != nil {
		return nil, fmt.Errorf("book %w", ErrNotFound)
	}
	return book, nil
}

func (s *BookService) ListByShelf(userID, shelfID uint) ([]entities.Book, error) {
	shelf, err := s.shelves.GetByID(shelfID)
	if err != nil {
		return nil, translate(err, "shelf")
	}
	if _, err := s.member(shelf.LocationID, userID); err != nil {
		return nil, fmt.Errorf("shelf %w", ErrNotFound)
	}
	list, err := s.books.ListByShelf(shelfID)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return list, nil
}

func (s *BookService) ListByLocation(userID, locationID uint) ([]entities.Book, error) {
	if _, err := s.member(locationID, userID); err != nil {
		return nil, err
	}
	list, err := s.books.ListByLocation(locationID)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return list, nil
}

// Search matches title, authors or ISBN across the caller's locations.
func (s *BookService) Search(userID uint, query string) ([]entities.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("q is required")
	}
	if code := isbn.Canonical(query); code != "" {
		query = code
	}
	list, err := s.books.Search(userID, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return list, nil
}

// Update edits metadata. Any member may edit.
func (s *BookService) Update(userID, bookID uint, update BookUpdate) (*entities.Book, error) {
	if _, err := s.Get(userID, bookID); err != nil {
		return nil, err
	}

	fields := make(map[string]any)
	if update.Title != nil {
		title, err := requireName("title", *update.Title, maxTitleLength)
		if err != nil {
			return nil, err
		}
		fields["title"] = title
	}
	if update.ISBN != nil {
		code, err := canonicalISBN(*update.ISBN)
		if err != nil {
			return nil, err
		}
		fields["isbn"] = code
	}
	for column, value := range map[string]*string{
		"authors":     update.Authors,
		"description": update.Description,
		"cover_url":   update.CoverURL,
		"publisher":   update.Publisher,
		"language":    update.Language,
	} {
		if value != nil {
			fields[column] = strings.TrimSpace(*value)
		}
	}
	year, pages := 0, 0
	if update.PublishedYear != nil {
		year = *update.PublishedYear
		fields["published_year"] = year
	}
	if update.PageCount != nil {
		pages = *update.PageCount
		fields["page_count"] = pages
	}
	if err := validateNumbers(year, pages); err != nil {
		return nil, err
	}

	if err := s.books.Update(bookID, fields); err != nil && !errors.Is(err, database.ErrNoRowsChanged) {
		return nil, fmt.Errorf("update book: %w", err)
	}
	return s.books.GetByID(bookID)
}

// Move puts the book on another shelf of the same location.
func (s *BookService) Move(userID, bookID, shelfID uint) (*entities.Book, error) {
	book, err := s.Get(userID, bookID)
	if err != nil {
		return nil, err
	}
	shelf, err := s.shelves.GetByID(shelfID)
	if err != nil {
		return nil, translate(err, "shelf")
	}
	if shelf.LocationID != book.LocationID {
		return nil, invalid("books can only move between shelves of the same location")
	}
	if err := s.books.Move(bookID, shelfID, book.LocationID); err != nil {
		return nil, translate(stateConflict(err, "book changed concurrently"), "book")
	}
	book.ShelfID = shelfID
	return book, nil
}

// Delete removes a book. Only the owner may delete directly; members file
// removal requests instead.
func (s *BookService) Delete(userID, bookID uint) error {
	book, err := s.Get(userID, bookID)
	if err != nil {
		return err
	}
	if _, err := s.owner(book.LocationID, userID); err != nil {
		return forbidden("only the location owner can delete books; request removal instead")
	}
	if err := s.books.Delete(bookID, userID); err != nil {
		return stateConflict(err, "book is checked out; check it in before deleting")
	}
	s.audit.LogAction(userID, entities.AuditEventRemoval, "book_delete", "book", bookID, book.Title)
	return nil
}

// Checkout lends an available book to the caller.
func (s *BookService) Checkout(userID, bookID uint, dueAt *time.Time) (*entities.Book, error) {
	book, err := s.Get(userID, bookID)
	if err != nil {
		return nil, err
	}
	if dueAt != nil && !dueAt.After(s.now()) {
		return nil, invalid("due date must be in the future")
	}
	if _, err := s.books.Checkout(bookID, userID, dueAt); err != nil {
		return nil, stateConflict(err, "book is already checked out")
	}

	metrics.BookCheckedOut()
	s.audit.LogAction(userID, entities.AuditEventCirculation, "checkout", "book", bookID, book.Title)
	return s.books.GetByID(bookID)
}

// Checkin returns a book. Allowed for the borrower and the location owner.
func (s *BookService) Checkin(userID, bookID uint) (*entities.Book, error) {
	book, err := s.Get(userID, bookID)
	if err != nil {
		return nil, err
	}
	if book.IsAvailable() {
		return nil, conflict("book is not checked out")
	}
	// Owners may close any loan; everyone else only their own, and the
	// update re-checks the borrower in case the book changed hands.
	var borrowerID *uint
	if _, err := s.owner(book.LocationID, userID); err != nil {
		if !errors.Is(err, ErrForbidden) {
			return nil, err
		}
		if book.CheckedOutByID == nil || *book.CheckedOutByID != userID {
			return nil, forbidden("only the borrower or the location owner can check this book in")
		}
		borrowerID = &userID
	}
	if err := s.books.Checkin(bookID, userID, borrowerID); err != nil {
		return nil, stateConflict(err, "book is not checked out")
	}

	metrics.BookCheckedIn()
	s.audit.LogAction(userID, entities.AuditEventCirculation, "checkin", "book", bookID, book.Title)
	return s.books.GetByID(bookID)
}

// History lists the loans of a book, newest first.
func (s *BookService) History(userID, bookID uint) ([]entities.BookLoan, error) {
	if _, err := s.Get(userID, bookID); err != nil {
		return nil, err
	}
	loans, err := s.books.ListLoans(bookID)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return loans, nil
}

// MyCheckouts lists books the caller currently has.
func (s *BookService) MyCheckouts(userID uint) ([]entities.Book, error) {
	list, err := s.books.ListCheckedOutBy(userID)
	if err != nil {
		return nil, fmt.Errorf("list checkouts: %w", err)
	}
	return list, nil
}

// Enrich runs a synchronous metadata refresh for a book.
func (s *BookService) Enrich(ctx context.Context, userID, bookID uint) (*metadata.EnrichmentResult, error) {
	if _, err := s.Get(userID, bookID); err != nil {
		return nil, err
	}
	if s.enricher == nil {
		return nil, conflict("metadata enrichment is not configured")
	}
	result, err := s.enricher.EnrichBook(ctx, bookID)
	if errors.Is(err, metadata.ErrNotFound) {
		return nil, fmt.Errorf("book metadata %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("enrich book: %w", err)
	}
	return result, nil
}
