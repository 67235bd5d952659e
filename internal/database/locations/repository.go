// Package locations provides database operations for locations and their memberships.
package locations

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/entities"
)

// ErrBooksCheckedOut is returned when deleting a location that still has lent books.
var ErrBooksCheckedOut = errors.New("location has checked out books")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the location and the owner's membership together.
func (r *Repository) Create(location *entities.Location) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(location).Error; err != nil {
			return err
		}
		return tx.Create(&entities.LocationMember{
			LocationID: location.ID,
			UserID:     location.OwnerID,
			Role:       entities.MemberRoleOwner,
		}).Error
	})
}

func (r *Repository) GetByID(id uint) (*entities.Location, error) {
	var location entities.Location
	if err := r.db.Preload("Owner").First(&location, id).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

// ListForUser returns every location the user belongs to, owned or joined.
func (r *Repository) ListForUser(userID uint) ([]entities.Location, error) {
	var locations []entities.Location
	err := r.db.Preload("Owner").
		Joins("JOIN location_members lm ON lm.location_id = locations.id").
		Where("lm.user_id = ?", userID).
		Order("locations.name ASC").
		Find(&locations).Error
	return locations, err
}

// Update saves name and description.
func (r *Repository) Update(location *entities.Location) error {
	return database.RequireChanged(
		r.db.Model(&entities.Location{}).Where("id = ?", location.ID).Updates(map[string]any{
			"name":        location.Name,
			"description": location.Description,
		}),
	)
}

// Delete removes the location with its shelves, books, loans, ratings,
// invitations, removal requests and memberships.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var lent int64
		if err := tx.Model(&entities.Book{}).
			Where("location_id = ? AND status = ?", id, entities.BookStatusCheckedOut).
			Count(&lent).Error; err != nil {
			return err
		}
		if lent > 0 {
			return ErrBooksCheckedOut
		}

		bookIDs := tx.Model(&entities.Book{}).Select("id").Where("location_id = ?", id)
		if err := tx.Where("book_id IN (?)", bookIDs).Delete(&entities.BookLoan{}).Error; err != nil {
			return err
		}
		if err := tx.Where("book_id IN (?)", bookIDs).Delete(&entities.BookRating{}).Error; err != nil {
			return err
		}

		for _, model := range []any{
			&entities.BookRemovalRequest{},
			&entities.Book{},
			&entities.Shelf{},
			&entities.LocationInvitation{},
			&entities.LocationMember{},
		} {
			if err := tx.Where("location_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return database.RequireChanged(tx.Delete(&entities.Location{}, id))
	})
}

// GetMembership returns gorm.ErrRecordNotFound when the user is not a member.
func (r *Repository) GetMembership(locationID, userID uint) (*entities.LocationMember, error) {
	var member entities.LocationMember
	err := r.db.Where("location_id = ? AND user_id = ?", locationID, userID).First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *Repository) ListMembers(locationID uint) ([]entities.LocationMember, error) {
	var members []entities.LocationMember
	err := r.db.Preload("User").
		Where("location_id = ?", locationID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

// HasMemberWithEmail reports whether a user with that email already belongs to the location.
func (r *Repository) HasMemberWithEmail(locationID uint, email string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.LocationMember{}).
		Joins("JOIN users ON users.id = location_members.user_id").
		Where("location_members.location_id = ? AND users.email = ?", locationID, email).
		Count(&count).Error
	return count > 0, err
}

// RemoveMember deletes a non-owner membership.
func (r *Repository) RemoveMember(locationID, userID uint) error {
	return database.RequireChanged(
		r.db.Where("location_id = ? AND user_id = ? AND role = ?", locationID, userID, entities.MemberRoleMember).
			Delete(&entities.LocationMember{}),
	)
}

// TransferOwnership hands the location to an existing member. The previous
// owner stays on as a regular member.
func (r *Repository) TransferOwnership(locationID, fromUserID, toUserID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		err := database.RequireChanged(
			tx.Model(&entities.Location{}).
				Where("id = ? AND owner_id = ?", locationID, fromUserID).
				Update("owner_id", toUserID),
		)
		if err != nil {
			return err
		}
		err = database.RequireChanged(
			tx.Model(&entities.LocationMember{}).
				Where("location_id = ? AND user_id = ? AND role = ?", locationID, toUserID, entities.MemberRoleMember).
				Update("role", entities.MemberRoleOwner),
		)
		if err != nil {
			return err
		}
		return tx.Model(&entities.LocationMember{}).
			Where("location_id = ? AND user_id = ?", locationID, fromUserID).
			Update("role", entities.MemberRoleMember).Error
	})
}

// CountBooks returns the number of books in the location.
func (r *Repository) CountBooks(locationID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Where("location_id = ?", locationID).Count(&count).Error
	return count, err
}
