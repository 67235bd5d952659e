// Package books provides database operations for books and the checkout state machine.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	if err := repo.Checkout(bookID, userID, nil); errors.Is(err, database.ErrNoRowsChanged) {
//		// book was not available
//	}
package books

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/entities"
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(book *entities.Book) error {
	if book.Status == "" {
		book.Status = entities.BookStatusAvailable
	}
	return r.db.Create(book).Error
}

func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.Preload("CheckedOutBy").First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *Repository) ListByShelf(shelfID uint) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Preload("CheckedOutBy").
		Where("shelf_id = ?", shelfID).
		Order("title ASC").
		Find(&books).Error
	return books, err
}

func (r *Repository) ListByLocation(locationID uint) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Preload("CheckedOutBy").
		Where("location_id = ?", locationID).
		Order("title ASC").
		Find(&books).Error
	return books, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike makes LIKE wildcards in user input match literally.
func escapeLike(s string) string { return likeEscaper.Replace(s) }

// Search matches title, authors or ISBN across every location the user belongs to.
func (r *Repository) Search(userID uint, query string, limit int) ([]entities.Book, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(query))) + "%"

	var books []entities.Book
	err := r.db.Preload("CheckedOutBy").
		Joins("JOIN location_members lm ON lm.location_id = books.location_id AND lm.user_id = ?", userID).
		Where(`LOWER(books.title) LIKE ? ESCAPE '\' OR LOWER(books.authors) LIKE ? ESCAPE '\' OR books.isbn LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern).
		Order("books.title ASC").
		Limit(limit).
		Find(&books).Error
	return books, err
}

// Update writes the given columns. Status columns are never touched here.
func (r *Repository) Update(id uint, fields map[string]any) error {
	delete(fields, "status")
	delete(fields, "checked_out_by_id")
	delete(fields, "checked_out_at")
	if len(fields) == 0 {
		return nil
	}
	return database.RequireChanged(
		r.db.Model(&entities.Book{}).Where("id = ?", id).Updates(fields),
	)
}

// Move puts the book on another shelf of the same location.
func (r *Repository) Move(id, shelfID, locationID uint) error {
	return database.RequireChanged(
		r.db.Model(&entities.Book{}).
			Where("id = ? AND location_id = ?", id, locationID).
			Update("shelf_id", shelfID),
	)
}

// Delete removes an available book with its loans and ratings, closing any
// pending removal requests as approved by deciderID.
func (r *Repository) Delete(id, deciderID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return DeleteInTx(tx, id, deciderID, time.Now())
	})
}

// DeleteInTx is Delete for callers that already hold a transaction.
func DeleteInTx(tx *gorm.DB, id, deciderID uint, now time.Time) error {
	err := database.RequireChanged(
		tx.Where("id = ? AND status = ?", id, entities.BookStatusAvailable).Delete(&entities.Book{}),
	)
	if err != nil {
		return err
	}
	if err := tx.Where("book_id = ?", id).Delete(&entities.BookLoan{}).Error; err != nil {
		return err
	}
	if err := tx.Where("book_id = ?", id).Delete(&entities.BookRating{}).Error; err != nil {
		return err
	}
	return tx.Model(&entities.BookRemovalRequest{}).
		Where("book_id = ? AND status = ?", id, entities.RequestStatusPending).
		Updates(map[string]any{
			"status":        entities.RequestStatusApproved,
			"decided_by_id": deciderID,
			"decided_at":    now,
		}).Error
}

// Checkout marks an available book as lent to userID and opens a loan.
// Returns database.ErrNoRowsChanged when the book is not available.
func (r *Repository) Checkout(id, userID uint, dueAt *time.Time) (*entities.BookLoan, error) {
	now := time.Now()
	loan := &entities.BookLoan{
		BookID:       id,
		UserID:       userID,
		CheckedOutAt: now,
		DueAt:        dueAt,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := database.RequireChanged(
			tx.Model(&entities.Book{}).
				Where("id = ? AND status = ?", id, entities.BookStatusAvailable).
				Updates(map[string]any{
					"status":            entities.BookStatusCheckedOut,
					"checked_out_by_id": userID,
					"checked_out_at":    now,
					"due_at":            dueAt,
				}),
		)
		if err != nil {
			return err
		}
		return tx.Create(loan).Error
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}

// Checkin returns a checked out book and closes its open loan. A non-nil
// borrowerID restricts the update to the loan held by that user.
// Returns database.ErrNoRowsChanged when the book is not checked out, or is
// checked out by someone else.
func (r *Repository) Checkin(id, byUserID uint, borrowerID *uint) error {
	now := time.Now()
	return r.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&entities.Book{}).
			Where("id = ? AND status = ?", id, entities.BookStatusCheckedOut)
		if borrowerID != nil {
			query = query.Where("checked_out_by_id = ?", *borrowerID)
		}
		err := database.RequireChanged(
			query.Updates(map[string]any{
				"status":            entities.BookStatusAvailable,
				"checked_out_by_id": nil,
				"checked_out_at":    nil,
				"due_at":            nil,
			}),
		)
		if err != nil {
			return err
		}
		return tx.Model(&entities.BookLoan{}).
			Where("book_id = ? AND returned_at IS NULL", id).
			Updates(map[string]any{
				"returned_at":    now,
				"returned_by_id": byUserID,
			}).Error
	})
}

// ListLoans returns the checkout history of a book, newest first.
func (r *Repository) ListLoans(bookID uint) ([]entities.BookLoan, error) {
	var loans []entities.BookLoan
	err := r.db.Preload("User").
		Where("book_id = ?", bookID).
		Order("checked_out_at DESC").
		Find(&loans).Error
	return loans, err
}

// ListCheckedOutBy returns books currently lent to the user.
func (r *Repository) ListCheckedOutBy(userID uint) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Where("checked_out_by_id = ? AND status = ?", userID, entities.BookStatusCheckedOut).
		Order("checked_out_at ASC").
		Find(&books).Error
	return books, err
}
