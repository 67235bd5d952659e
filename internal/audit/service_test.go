package audit

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	auditRepo "github.com/mrlokans/shelfshare/internal/database/audit"
	"github.com/mrlokans/shelfshare/internal/database/dbtest"
	"github.com/mrlokans/shelfshare/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db := dbtest.Open(t)
	return NewService(auditRepo.NewRepository(db)), db
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{
		UserID:    1,
		EventType: entities.AuditEventLocation,
		Action:    "location_create",
		Status:    entities.AuditStatusSuccess,
	}
	require.NoError(t, svc.Log(event))

	var saved entities.AuditEvent
	require.NoError(t, db.First(&saved, event.ID).Error)
	assert.Equal(t, "location_create", saved.Action)
}

func TestService_LogAction(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogAction(7, entities.AuditEventCirculation, "checkout", "book", 42, "Checked out Dune")
	svc.Flush()

	var event entities.AuditEvent
	require.NoError(t, db.Where("action = ?", "checkout").First(&event).Error)
	assert.Equal(t, uint(7), event.UserID)
	assert.Equal(t, "book", event.EntityType)
	require.NotNil(t, event.EntityID)
	assert.Equal(t, uint(42), *event.EntityID)
}

func TestService_LogAuth(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogAuth(1, "login", "10.0.0.1", strings.Repeat("a", 600), false)
	svc.Flush()

	var event entities.AuditEvent
	require.NoError(t, db.Where("action = ?", "login").First(&event).Error)
	assert.Equal(t, entities.AuditStatusFailed, event.Status)
	assert.Equal(t, "10.0.0.1", event.IPAddress)
	assert.Len(t, event.UserAgent, 500)
}

func TestService_LogSignupDecision(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogSignupDecision(1, 9, entities.RequestStatusDenied, "unknown person")
	svc.Flush()

	var event entities.AuditEvent
	require.NoError(t, db.Where("action = ?", "signup_denied").First(&event).Error)
	assert.Equal(t, entities.AuditEventSignup, event.EventType)
	require.NotNil(t, event.EntityID)
	assert.Equal(t, uint(9), *event.EntityID)
}

func TestService_LogMetadataEnrich(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogMetadataEnrich(1, 3, "google_books", []string{"cover_url"}, nil)
	svc.LogMetadataEnrich(1, 4, "open_library", nil, errors.New("not found"))
	svc.Flush()

	var events []entities.AuditEvent
	require.NoError(t, db.Order("entity_id ASC").Find(&events).Error)
	require.Len(t, events, 2)
	assert.Contains(t, events[0].Metadata, "cover_url")
	assert.Equal(t, entities.AuditStatusFailed, events[1].Status)
	assert.Equal(t, "not found", events[1].ErrorMsg)
}

func TestService_DeleteOldEvents(t *testing.T) {
	svc, _ := setupTestService(t)

	require.NoError(t, svc.Log(&entities.AuditEvent{Action: "old", CreatedAt: time.Now().Add(-100 * 24 * time.Hour)}))
	require.NoError(t, svc.Log(&entities.AuditEvent{Action: "new"}))

	deleted, err := svc.DeleteOldEvents(90 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, total, err := svc.GetEvents(auditRepo.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "new", events[0].Action)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
