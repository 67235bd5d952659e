package invitations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/database/dbtest"
	"github.com/mrlokans/shelfshare/internal/entities"
)

func setup(t *testing.T) (*gorm.DB, *Repository, *entities.Location, *entities.User) {
	db := dbtest.Open(t)
	owner := dbtest.CreateUser(t, db, "owner@example.com")
	loc := dbtest.CreateLocation(t, db, owner, "Home")
	return db, NewRepository(db), loc, owner
}

func invite(t *testing.T, repo *Repository, loc *entities.Location, inviter *entities.User, token string, expires time.Time) *entities.LocationInvitation {
	inv := &entities.LocationInvitation{
		LocationID: loc.ID,
		InviterID:  inviter.ID,
		Email:      "guest@example.com",
		Token:      token,
		ExpiresAt:  expires,
	}
	require.NoError(t, repo.Create(inv))
	return inv
}

func TestRepository_AcceptIsSingleUse(t *testing.T) {
	db, repo, loc, owner := setup(t)
	guest := dbtest.CreateUser(t, db, "guest@example.com")
	other := dbtest.CreateUser(t, db, "other@example.com")
	inv := invite(t, repo, loc, owner, "tok-1", time.Now().Add(time.Hour))

	member, err := repo.Accept(inv, guest.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, entities.MemberRoleMember, member.Role)
	assert.NotNil(t, inv.UsedAt)

	stale, err := repo.GetByToken("tok-1")
	require.NoError(t, err)
	_, err = repo.Accept(stale, other.ID, time.Now())
	assert.ErrorIs(t, err, database.ErrNoRowsChanged)

	var members int64
	require.NoError(t, db.Model(&entities.LocationMember{}).Where("location_id = ?", loc.ID).Count(&members).Error)
	assert.Equal(t, int64(2), members)
}

func TestRepository_AcceptExpired(t *testing.T) {
	db, repo, loc, owner := setup(t)
	guest := dbtest.CreateUser(t, db, "guest@example.com")
	inv := invite(t, repo, loc, owner, "tok-old", time.Now().Add(-time.Minute))

	_, err := repo.Accept(inv, guest.ID, time.Now())

	assert.ErrorIs(t, err, database.ErrNoRowsChanged)
}

func TestRepository_GetByTokenPreloads(t *testing.T) {
	_, repo, loc, owner := setup(t)
	invite(t, repo, loc, owner, "tok-2", time.Now().Add(time.Hour))

	inv, err := repo.GetByToken("tok-2")
	require.NoError(t, err)
	require.NotNil(t, inv.Location)
	assert.Equal(t, "Home", inv.Location.Name)
	require.NotNil(t, inv.Inviter)
	assert.Equal(t, owner.Email, inv.Inviter.Email)
	assert.Equal(t, entities.InvitationStateOpen, inv.StateAt(time.Now()))
}

func TestRepository_HasOpenAndRevoke(t *testing.T) {
	db, repo, loc, owner := setup(t)
	inv := invite(t, repo, loc, owner, "tok-3", time.Now().Add(time.Hour))

	open, err := repo.HasOpen(loc.ID, "guest@example.com", time.Now())
	require.NoError(t, err)
	assert.True(t, open)

	require.NoError(t, repo.Revoke(inv.ID, loc.ID))
	open, err = repo.HasOpen(loc.ID, "guest@example.com", time.Now())
	require.NoError(t, err)
	assert.False(t, open)

	used := invite(t, repo, loc, owner, "tok-4", time.Now().Add(time.Hour))
	guest := dbtest.CreateUser(t, db, "guest@example.com")
	_, err = repo.Accept(used, guest.ID, time.Now())
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Revoke(used.ID, loc.ID), database.ErrNoRowsChanged)
}

func TestRepository_Purge(t *testing.T) {
	_, repo, loc, owner := setup(t)
	invite(t, repo, loc, owner, "expired-long-ago", time.Now().Add(-60*24*time.Hour))
	invite(t, repo, loc, owner, "expired-recently", time.Now().Add(-time.Hour))
	invite(t, repo, loc, owner, "open", time.Now().Add(time.Hour))

	purged, err := repo.Purge(time.Now().Add(-30 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	remaining, err := repo.ListByLocation(loc.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}
