// Package invitations stores single-use location invitation tokens.
package invitations

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

func (r *Repository) Create(invitation *entities.LocationInvitation) error {
	return r.db.Create(invitation).Error
}

func (r *Repository) GetByID(id uint) (*entities.LocationInvitation, error) {
	var invitation entities.LocationInvitation
	if err := r.db.First(&invitation, id).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

// GetByToken loads the invitation with its location and inviter.
func (r *Repository) GetByToken(token string) (*entities.LocationInvitation, error) {
	var invitation entities.LocationInvitation
	err := r.db.Preload("Location").Preload("Inviter").
		Where("token = ?", token).
		First(&invitation).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *Repository) ListByLocation(locationID uint) ([]entities.LocationInvitation, error) {
	var invitations []entities.LocationInvitation
	err := r.db.Preload("Inviter").
		Where("location_id = ?", locationID).
		Order("created_at DESC").
		Find(&invitations).Error
	return invitations, err
}

// HasOpen reports whether an unused, unexpired invitation exists for the email.
func (r *Repository) HasOpen(locationID uint, email string, now time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&entities.LocationInvitation{}).
		Where("location_id = ? AND email = ? AND used_at IS NULL AND expires_at > ?", locationID, email, now).
		Count(&count).Error
	return count > 0, err
}

// Revoke deletes an invitation that has not been used yet.
func (r *Repository) Revoke(id, locationID uint) error {
	return database.RequireChanged(
		r.db.Where("id = ? AND location_id = ? AND used_at IS NULL", id, locationID).
			Delete(&entities.LocationInvitation{}),
	)
}

// Accept marks the invitation used and adds the user as a member in one
// transaction. Returns database.ErrNoRowsChanged when the invitation was
// already used or has expired.
func (r *Repository) Accept(invitation *entities.LocationInvitation, userID uint, now time.Time) (*entities.LocationMember, error) {
	member := &entities.LocationMember{
		LocationID: invitation.LocationID,
		UserID:     userID,
		Role:       entities.MemberRoleMember,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := database.RequireChanged(
			tx.Model(&entities.LocationInvitation{}).
				Where("id = ? AND used_at IS NULL AND expires_at > ?", invitation.ID, now).
				Updates(map[string]any{
					"used_at":    now,
					"used_by_id": userID,
				}),
		)
		if err != nil {
			return err
		}
		return tx.Create(member).Error
	})
	if err != nil {
		return nil, err
	}

	invitation.UsedAt = &now
	invitation.UsedByID = &userID
	return member, nil
}

// Purge deletes invitations that were used or expired before cutoff.
func (r *Repository) Purge(cutoff time.Time) (int64, error) {
	result := r.db.Where("(used_at IS NOT NULL AND used_at < ?) OR expires_at < ?", cutoff, cutoff).
		Delete(&entities.LocationInvitation{})
	return result.RowsAffected, result.Error
}
