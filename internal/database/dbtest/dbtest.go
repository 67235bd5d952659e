// Package dbtest opens throwaway sqlite databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/entities"
)

// Open returns a migrated database stored under t.TempDir(). It is closed on cleanup.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath+"?_busy_timeout=5000"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.Models...))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts an approved user with the given email.
func CreateUser(t *testing.T, db *gorm.DB, email string) *entities.User {
	t.Helper()
	user := &entities.User{
		Email:  email,
		Name:   email,
		Role:   entities.RoleUser,
		Status: entities.UserStatusApproved,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateLocation inserts a location owned by owner together with the owner membership.
func CreateLocation(t *testing.T, db *gorm.DB, owner *entities.User, name string) *entities.Location {
	t.Helper()
	loc := &entities.Location{OwnerID: owner.ID, Name: name}
	require.NoError(t, db.Create(loc).Error)
	require.NoError(t, db.Create(&entities.LocationMember{
		LocationID: loc.ID,
		UserID:     owner.ID,
		Role:       entities.MemberRoleOwner,
	}).Error)
	return loc
}

// AddMember inserts a plain membership.
func AddMember(t *testing.T, db *gorm.DB, loc *entities.Location, user *entities.User) {
	t.Helper()
	require.NoError(t, db.Create(&entities.LocationMember{
		LocationID: loc.ID,
		UserID:     user.ID,
		Role:       entities.MemberRoleMember,
	}).Error)
}

// CreateShelf inserts a shelf into loc.
func CreateShelf(t *testing.T, db *gorm.DB, loc *entities.Location, name string) *entities.Shelf {
	t.Helper()
	shelf := &entities.Shelf{LocationID: loc.ID, Name: name}
	require.NoError(t, db.Create(shelf).Error)
	return shelf
}

// CreateBook inserts an available book on shelf.
func CreateBook(t *testing.T, db *gorm.DB, shelf *entities.Shelf, addedBy *entities.User, title string) *entities.Book {
	t.Helper()
	book := &entities.Book{
		ShelfID:    shelf.ID,
		LocationID: shelf.LocationID,
		Title:      title,
		AddedByID:  addedBy.ID,
		Status:     entities.BookStatusAvailable,
	}
	require.NoError(t, db.Create(book).Error)
	return book
}
