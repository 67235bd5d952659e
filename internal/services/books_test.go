package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelfshare/internal/database/dbtest"
	"github.com/mrlokans/shelfshare/internal/entities"
	"github.com/mrlokans/shelfshare/internal/metadata"
)

func newBookService(e *env) (*BookService, *recordingAudit) {
	audit := &recordingAudit{}
	return NewBookService(e.books, e.shelves, e.locations, audit), audit
}

func TestBookService_AddNormalizesISBNAndQueuesEnrichment(t *testing.T) {
	e := newEnv(t)
	svc, _ := newBookService(e)
	queue := &recordingQueue{}
	svc.SetEnrichment(queue, nil)

	book, err := svc.Add(context.Background(), e.member.ID, e.shelf.ID, BookInput{
		Title: "Dune",
		ISBN:  "0-441-17271-7",
	})
	require.NoError(t, err)

	assert.Equal(t, "9780441172719", book.ISBN)
	assert.Equal(t, entities.BookStatusAvailable, book.Status)
	assert.Equal(t, e.location.ID, book.LocationID)
	assert.Equal(t, []uint{book.ID}, queue.bookIDs)
}

func TestBookService_AddRejectsInvalidISBN(t *testing.T) {
	e := newEnv(t)
	svc, _ := newBookService(e)

	_, err := svc.Add(context.Background(), e.member.ID, e.shelf.ID, BookInput{Title: "X", ISBN: "9780441172710"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBookService_AddRequiresTitleAndMembership(t *testing.T) {
	e := newEnv(t)
	svc, _ := newBookService(e)

	_, err := svc.Add(context.Background(), e.member.ID, e.shelf.ID, BookInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Add(context.Background(), e.outsider.ID, e.shelf.ID, BookInput{Title: "Dune"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookService_AddWithLookupFillsFields(t *testing.T) {
	e := newEnv(t)
	svc, _ := newBookService(e)
	queue := &recordingQueue{}
	svc.SetEnrichment(queue, nil)
	svc.SetLookup(&fakeLookup{result: &metadata.BookMetadata{
		Title:     "Dune",
		Authors:   []string{"Frank Herbert"},
		Publisher: "Ace",
	}})

	book, err := svc.Add(context.Background(), e.member.ID, e.shelf.ID, BookInput{
		ISBN:   "9780441172719",
		Lookup: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Frank Herbert", book.Authors)
	assert.Equal(t, "Ace", book.Publisher)
	assert.Empty(t, queue.bookIDs)
}

func TestBookService_AddWithLookupFailureStillNeedsTitle(t *testing.T) {
	e := newEnv(t)
	svc, _ := newBookService(e)
	svc.SetLookup(&fakeLookup{err: metadata.ErrNotFound})

	_, err := svc.Add(context.Background(), e.member.ID, e.shelf.ID, BookInput{ISBN: "9780441172719", Lookup: true})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBookService_CheckoutCheckinStateMachine(t *testing.T) {
	e := newEnv(t)
	svc, audit := newBookService(e)
	book := e.book(t, "Dune")

	due := time.Now().Add(48 * time.Hour)
	out, err := svc.Checkout(e.member.ID, book.ID, &due)
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusCheckedOut, out.Status)
	require.NotNil(t, out.CheckedOutByID)
	assert.Equal(t, e.member.ID, *out.CheckedOutByID)

	_, err = svc.Checkout(e.owner.ID, book.ID, nil)
	assert.ErrorIs(t, err, ErrConflict)

	mine, err := svc.MyCheckouts(e.member.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	in, err := svc.Checkin(e.member.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusAvailable, in.Status)
	assert.Nil(t, in.CheckedOutByID)

	_, err = svc.Checkin(e.member.ID, book.ID)
	assert.ErrorIs(t, err, ErrConflict)

	history, err := svc.History(e.owner.ID, book.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotNil(t, history[0].ReturnedAt)
	assert.Equal(t, []string{"checkout", "checkin"}, audit.actions)
}

func TestBookService_CheckoutRejectsPastDueDate(t *testing.T) {
	e := newEnv(t)
	svc, _ := newBookService(e)
	book := e.book(t, "Dune")

	past := time.Now().Add(-time.Hour)
	_, err := svc.Checkout(e.member.ID, book.ID, &past)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBookService_CheckinByOwnerOrBorrowerOnly(t *testing.T) {
	e := newEnv(t)
	svc, _ := newBookService(e)
	other := dbtest.CreateUser(t, e.db, "other@example.com")
	dbtest.AddMember(t, e.db, e.location, other)
	book := e.book(t, "Dune")

	_, err := svc.Checkout(e.member.ID, book.ID, nil)
	require.NoError(t, err)

	_, err = svc.Checkin(other.ID, book.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Checkin(e.owner.ID, book.ID)
	assert.NoError(t, err)
}

// handoffStore runs swap once, right after the service has read the book,
// to simulate the book changing hands before the check-in update lands.
type handoffStore struct {
	BookStore
	swap func()
}

func (h *handoffStore) GetByID(id uint) (*entities.Book, error) {
	book, err := h.BookStore.GetByID(id)
	if h.swap != nil {
		swap := h.swap
		h.swap = nil
		swap()
	}
	return book, err
}

func TestBookService_CheckinRechecksBorrowerAtUpdate(t *testing.T) {
	e := newEnv(t)
	other := dbtest.CreateUser(t, e.db, "other@example.com")
	dbtest.AddMember(t, e.db, e.location, other)
	book := e.book(t, "Dune")
	_, err := e.books.Checkout(book.ID, e.member.ID, nil)
	require.NoError(t, err)

	store := &handoffStore{BookStore: e.books}
	svc := NewBookService(store, e.shelves, e.locations, nil)
	store.swap = func() {
		require.NoError(t, e.books.Checkin(book.ID, e.member.ID, nil))
		_, err := e.books.Checkout(book.ID, other.ID, nil)
		require.NoError(t, err)
	}

	_, err = svc.Checkin(e.member.ID, book.ID)
	assert.ErrorIs(t, err, ErrConflict)

	current, err := e.books.GetByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusCheckedOut, current.Status)
	require.NotNil(t, current.CheckedOutByID)
	assert.Equal(t, other.ID, *current.CheckedOutByID)
}

func TestBookService_OutsiderCannotSeeBook(t *testing.T) {
	e := newEnv(t)
	svc, _ := newBookService(e)
	book := e.book(t, "Dune")

	_, err := svc.Get(e.outsider.ID, book.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Checkout(e.outsider.ID, book.ID, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookService_DeleteOwnerOnlyAndNotWhileCheckedOut(t *testing.T) {
	e := newEnv(t)
	svc, _ := newBookService(e)
	book := e.book(t, "Dune")

	assert.ErrorIs(t, svc.Delete(e.member.ID, book.ID), ErrForbidden)

	_, err := svc.Checkout(e.member.ID, book.ID, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Delete(e.owner.ID, book.ID), ErrConflict)

	_, err = svc.Checkin(e.member.ID, book.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(e.owner.ID, book.ID))

	_, err = svc.Get(e.owner.ID, book.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookService_MoveWithinLocationOnly(t *testing.T) {
	e := newEnv(t)
	svc, _ := newBookService(e)
	book := e.book(t, "Dune")
	other := dbtest.CreateShelf(t, e.db, e.location, "Bedroom")
	elsewhere := dbtest.CreateLocation(t, e.db, e.member, "Office")
	foreign := dbtest.CreateShelf(t, e.db, elsewhere, "Desk")

	moved, err := svc.Move(e.member.ID, book.ID, other.ID)
	require.NoError(t, err)
	assert.Equal(t, other.ID, moved.ShelfID)

	_, err = svc.Move(e.member.ID, book.ID, foreign.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBookService_UpdateAndSearch(t *testing.T) {
	e := newEnv(t)
	svc, _ := newBookService(e)
	book := e.book(t, "Dune")

	authors := "Frank Herbert"
	isbn := "978-0-441-17271-9"
	updated, err := svc.Update(e.member.ID, book.ID, BookUpdate{Authors: &authors, ISBN: &isbn})
	require.NoError(t, err)
	assert.Equal(t, "Frank Herbert", updated.Authors)
	assert.Equal(t, "9780441172719", updated.ISBN)

	found, err := svc.Search(e.member.ID, "herbert")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = svc.Search(e.member.ID, "0441172717")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	found, err = svc.Search(e.outsider.ID, "herbert")
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = svc.Search(e.member.ID, " ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

type stubEnricher struct{ err error }

func (s stubEnricher) EnrichBook(_ context.Context, bookID uint) (*metadata.EnrichmentResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &metadata.EnrichmentResult{Book: &entities.Book{ID: bookID}, FieldsUpdated: []string{"publisher"}}, nil
}

func TestBookService_Enrich(t *testing.T) {
	e := newEnv(t)
	svc, _ := newBookService(e)
	book := e.book(t, "Dune")

	_, err := svc.Enrich(context.Background(), e.member.ID, book.ID)
	assert.ErrorIs(t, err, ErrConflict, "no enricher configured")

	svc.SetEnrichment(nil, stubEnricher{})
	result, err := svc.Enrich(context.Background(), e.member.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"publisher"}, result.FieldsUpdated)

	svc.SetEnrichment(nil, stubEnricher{err: metadata.ErrNotFound})
	_, err = svc.Enrich(context.Background(), e.member.ID, book.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	svc.SetEnrichment(nil, stubEnricher{err: errors.New("boom")})
	_, err = svc.Enrich(context.Background(), e.member.ID, book.ID)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}
