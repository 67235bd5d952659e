// Package removals stores requests from members to remove a book from a location.
package removals

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/database/books"
	"github.com/mrlokans/shelfshare/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(request *entities.BookRemovalRequest) error {
	if request.Status == "" {
		request.Status = entities.RequestStatusPending
	}
	return r.db.Create(request).Error
}

func (r *Repository) GetByID(id uint) (*entities.BookRemovalRequest, error) {
	var request entities.BookRemovalRequest
	if err := r.db.Preload("Requester").First(&request, id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// ListByLocation returns requests for a location. An empty status returns all of them.
func (r *Repository) ListByLocation(locationID uint, status entities.RequestStatus) ([]entities.BookRemovalRequest, error) {
	var requests []entities.BookRemovalRequest
	query := r.db.Preload("Requester").Where("location_id = ?", locationID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("created_at DESC").Find(&requests).Error
	return requests, err
}

func (r *Repository) ListByBook(bookID uint) ([]entities.BookRemovalRequest, error) {
	var requests []entities.BookRemovalRequest
	err := r.db.Preload("Requester").
		Where("book_id = ?", bookID).
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

// HasPending reports whether the requester already has an open request for the book.
func (r *Repository) HasPending(bookID, requesterID uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.BookRemovalRequest{}).
		Where("book_id = ? AND requester_id = ? AND status = ?", bookID, requesterID, entities.RequestStatusPending).
		Count(&count).Error
	return count > 0, err
}

// Approve accepts a pending request and deletes the book in one transaction.
// Returns database.ErrNoRowsChanged if the request is no longer pending or the
// book cannot be deleted because it is checked out.
func (r *Repository) Approve(id, deciderID uint, now time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var request entities.BookRemovalRequest
		if err := tx.First(&request, id).Error; err != nil {
			return err
		}
		err := database.RequireChanged(
			tx.Model(&entities.BookRemovalRequest{}).
				Where("id = ? AND status = ?", id, entities.RequestStatusPending).
				Updates(map[string]any{
					"status":        entities.RequestStatusApproved,
					"decided_by_id": deciderID,
					"decided_at":    now,
				}),
		)
		if err != nil {
			return err
		}
		return books.DeleteInTx(tx, request.BookID, deciderID, now)
	})
}

func (r *Repository) Deny(id, deciderID uint, now time.Time) error {
	return database.RequireChanged(
		r.db.Model(&entities.BookRemovalRequest{}).
			Where("id = ? AND status = ?", id, entities.RequestStatusPending).
			Updates(map[string]any{
				"status":        entities.RequestStatusDenied,
				"decided_by_id": deciderID,
				"decided_at":    now,
			}),
	)
}

// Cancel deletes a pending request on behalf of its requester.
func (r *Repository) Cancel(id, requesterID uint) error {
	return database.RequireChanged(
		r.db.Where("id = ? AND requester_id = ? AND status = ?", id, requesterID, entities.RequestStatusPending).
			Delete(&entities.BookRemovalRequest{}),
	)
}
