package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/database/dbtest"
	"github.com/mrlokans/shelfshare/internal/entities"
)

func TestRepository_GetByEmail_IgnoresCase(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	created := dbtest.CreateUser(t, db, "reader@example.com")

	user, err := repo.GetByEmail("  Reader@Example.COM ")

	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))

	_, err := repo.GetByID(999)

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_ListFiltersByStatus(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	dbtest.CreateUser(t, db, "a@example.com")
	pending := &entities.User{Email: "b@example.com", Name: "B", Status: entities.UserStatusPending}
	require.NoError(t, db.Create(pending).Error)

	all, err := repo.List("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyPending, err := repo.List(entities.UserStatusPending)
	require.NoError(t, err)
	require.Len(t, onlyPending, 1)
	assert.Equal(t, "b@example.com", onlyPending[0].Email)
}

func TestRepository_DemoteKeepsLastAdmin(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	first := dbtest.CreateUser(t, db, "first@example.com")
	second := dbtest.CreateUser(t, db, "second@example.com")
	require.NoError(t, repo.SetRole(first.ID, entities.RoleAdmin))
	require.NoError(t, repo.SetRole(second.ID, entities.RoleAdmin))

	count, err := repo.CountAdmins()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, repo.Demote(first.ID))

	err = repo.Demote(second.ID)
	assert.ErrorIs(t, err, database.ErrNoRowsChanged)

	admins, err := repo.ListAdmins()
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, second.ID, admins[0].ID)
}
