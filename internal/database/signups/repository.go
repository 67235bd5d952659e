// Package signups stores admin approval requests for new accounts.
package signups

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(id uint) (*entities.SignupApprovalRequest, error) {
	var request entities.SignupApprovalRequest
	if err := r.db.Preload("User").First(&request, id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests with the given status, oldest first.
func (r *Repository) List(status entities.RequestStatus) ([]entities.SignupApprovalRequest, error) {
	var requests []entities.SignupApprovalRequest
	query := r.db.Preload("User").Order("created_at ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&requests).Error
	return requests, err
}

// Decide moves a pending request and its user to the target status in one
// transaction. Returns database.ErrNoRowsChanged when the request was already decided.
func (r *Repository) Decide(id uint, status entities.RequestStatus, reviewerID uint, note string, now time.Time) error {
	userStatus := entities.UserStatusDenied
	if status == entities.RequestStatusApproved {
		userStatus = entities.UserStatusApproved
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var request entities.SignupApprovalRequest
		if err := tx.First(&request, id).Error; err != nil {
			return err
		}
		err := database.RequireChanged(
			tx.Model(&entities.SignupApprovalRequest{}).
				Where("id = ? AND status = ?", id, entities.RequestStatusPending).
				Updates(map[string]any{
					"status":         status,
					"reviewed_by_id": reviewerID,
					"reviewed_at":    now,
					"note":           note,
				}),
		)
		if err != nil {
			return err
		}
		return tx.Model(&entities.User{}).
			Where("id = ?", request.UserID).
			Update("status", userStatus).Error
	})
}
