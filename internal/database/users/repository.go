// Package users provides database operations for user management.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetByEmail("reader@example.com")
package users

import (
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(id uint) (*entities.User, error) {
	var user entities.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email, ignoring case.
func (r *Repository) GetByEmail(email string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns users ordered by creation time. An empty status returns everyone.
func (r *Repository) List(status entities.UserStatus) ([]entities.User, error) {
	var users []entities.User
	query := r.db.Order("created_at ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&users).Error
	return users, err
}

// ListAdmins returns approved administrators.
func (r *Repository) ListAdmins() ([]entities.User, error) {
	var users []entities.User
	err := r.db.Where("role = ? AND status = ?", entities.RoleAdmin, entities.UserStatusApproved).
		Order("id ASC").Find(&users).Error
	return users, err
}

// CountAdmins returns the number of approved administrators.
func (r *Repository) CountAdmins() (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).
		Where("role = ? AND status = ?", entities.RoleAdmin, entities.UserStatusApproved).
		Count(&count).Error
	return count, err
}

// SetRole changes a user's role.
func (r *Repository) SetRole(id uint, role entities.UserRole) error {
	return database.RequireChanged(
		r.db.Model(&entities.User{}).Where("id = ?", id).Update("role", role),
	)
}

// Demote turns an admin into a regular user only while another approved admin remains.
func (r *Repository) Demote(id uint) error {
	return database.RequireChanged(r.db.Exec(`
		UPDATE users SET role = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND role = ?
		AND (SELECT COUNT(*) FROM users WHERE role = ? AND status = ? AND id <> ?) > 0`,
		entities.RoleUser, id, entities.RoleAdmin, entities.RoleAdmin, entities.UserStatusApproved, id,
	))
}
