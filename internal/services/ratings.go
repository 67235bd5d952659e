package services

import (
	"errors"
	"fmt"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/entities"
)

const maxReviewLength = 2000

type RatingService struct {
	access
	books   BookStore
	ratings RatingStore
}

func NewRatingService(ratings RatingStore, books BookStore, members MembershipStore) *RatingService {
	return &RatingService{access: access{members: members}, books: books, ratings: ratings}
}

func (s *RatingService) visibleBook(userID, bookID uint) (*entities.Book, error) {
	book, err := s.books.GetByID(bookID)
	if err != nil {
		return nil, translate(err, "book")
	}
	if _, err := s.member(book.LocationID, userID); err != nil {
		return nil, fmt.Errorf("book %w", ErrNotFound)
	}
	return book, nil
}

// Rate creates or replaces the caller's rating of a book.
func (s *RatingService) Rate(userID, bookID uint, rating int, review string) (*entities.BookRating, error) {
	if rating < 1 || rating > 5 {
		return nil, invalid("rating must be between 1 and 5")
	}
	review, err := limitText("review", review, maxReviewLength)
	if err != nil {
		return nil, err
	}
	if _, err := s.visibleBook(userID, bookID); err != nil {
		return nil, err
	}

	if err := s.ratings.Upsert(&entities.BookRating{
		BookID: bookID,
		UserID: userID,
		Rating: rating,
		Review: review,
	}); err != nil {
		return nil, fmt.Errorf("save rating: %w", err)
	}
	saved, err := s.ratings.Get(bookID, userID)
	if err != nil {
		return nil, translate(err, "rating")
	}
	return saved, nil
}

func (s *RatingService) Delete(userID, bookID uint) error {
	if _, err := s.visibleBook(userID, bookID); err != nil {
		return err
	}
	if err := s.ratings.Delete(bookID, userID); err != nil {
		if errors.Is(err, database.ErrNoRowsChanged) {
			return fmt.Errorf("rating %w", ErrNotFound)
		}
		return fmt.Errorf("delete rating: %w", err)
	}
	return nil
}

// List returns every rating of a book with the average and count.
func (s *RatingService) List(userID, bookID uint) (*entities.RatingSummary, error) {
	if _, err := s.visibleBook(userID, bookID); err != nil {
		return nil, err
	}
	summary, err := s.ratings.Summary(bookID)
	if err != nil {
		return nil, fmt.Errorf("rating summary: %w", err)
	}
	return summary, nil
}
