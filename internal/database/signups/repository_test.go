package signups

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/database/dbtest"
	"github.com/mrlokans/shelfshare/internal/entities"
)

func TestRepository_DecideUpdatesUser(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	admin := dbtest.CreateUser(t, db, "admin@example.com")

	for _, tc := range []struct {
		email      string
		decision   entities.RequestStatus
		userStatus entities.UserStatus
	}{
		{"yes@example.com", entities.RequestStatusApproved, entities.UserStatusApproved},
		{"no@example.com", entities.RequestStatusDenied, entities.UserStatusDenied},
	} {
		user := &entities.User{Email: tc.email, Name: tc.email, Status: entities.UserStatusPending}
		require.NoError(t, db.Create(user).Error)
		req := &entities.SignupApprovalRequest{UserID: user.ID, Status: entities.RequestStatusPending}
		require.NoError(t, db.Create(req).Error)

		require.NoError(t, repo.Decide(req.ID, tc.decision, admin.ID, "checked", time.Now()))

		stored, err := repo.GetByID(req.ID)
		require.NoError(t, err)
		assert.Equal(t, tc.decision, stored.Status)
		require.NotNil(t, stored.User)
		assert.Equal(t, tc.userStatus, stored.User.Status)
		require.NotNil(t, stored.ReviewedByID)
		assert.Equal(t, admin.ID, *stored.ReviewedByID)

		err = repo.Decide(req.ID, entities.RequestStatusApproved, admin.ID, "", time.Now())
		assert.ErrorIs(t, err, database.ErrNoRowsChanged, "decisions are final")
	}

	pending, err := repo.List(entities.RequestStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	all, err := repo.List("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
