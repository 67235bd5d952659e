// Package ratings stores one rating per user per book.
package ratings

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Upsert creates the user's rating for a book or replaces the existing one.
func (r *Repository) Upsert(rating *entities.BookRating) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "book_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "review", "updated_at"}),
	}).Create(rating).Error
}

func (r *Repository) Get(bookID, userID uint) (*entities.BookRating, error) {
	var rating entities.BookRating
	err := r.db.Where("book_id = ? AND user_id = ?", bookID, userID).First(&rating).Error
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

func (r *Repository) Delete(bookID, userID uint) error {
	return database.RequireChanged(
		r.db.Where("book_id = ? AND user_id = ?", bookID, userID).Delete(&entities.BookRating{}),
	)
}

// Summary returns all ratings of a book with their average.
func (r *Repository) Summary(bookID uint) (*entities.RatingSummary, error) {
	var ratings []entities.BookRating
	err := r.db.Preload("User").
		Where("book_id = ?", bookID).
		Order("updated_at DESC").
		Find(&ratings).Error
	if err != nil {
		return nil, err
	}

	summary := &entities.RatingSummary{BookID: bookID, Ratings: ratings, Count: int64(len(ratings))}
	if len(ratings) > 0 {
		total := 0
		for _, rating := range ratings {
			total += rating.Rating
		}
		summary.Average = float64(total) / float64(len(ratings))
	}
	return summary, nil
}
