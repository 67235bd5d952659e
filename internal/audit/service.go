package audit

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelfshare/internal/database/audit"
	"github.com/mrlokans/shelfshare/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
	wg   sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			logrus.WithError(err).WithField("action", event.Action).Warn("failed to log audit event")
		}
	}()
}

// Flush blocks until every pending asynchronous write has finished.
func (s *Service) Flush() {
	s.wg.Wait()
}

// LogAction records a successful domain action against an entity.
func (s *Service) LogAction(userID uint, eventType entities.AuditEventType, action, entityType string, entityID uint, description string) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   eventType,
		Action:      action,
		Description: truncate(description, 500),
		EntityType:  entityType,
		Status:      entities.AuditStatusSuccess,
	}
	if entityID > 0 {
		event.EntityID = &entityID
	}
	s.LogAsync(event)
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(userID uint, action string, ipAddr, userAgent string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		UserAgent: truncate(userAgent, 500),
		Status:    entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// LogSignupDecision records an admin approving or denying an account.
func (s *Service) LogSignupDecision(adminID, userID uint, decision entities.RequestStatus, note string) {
	event := &entities.AuditEvent{
		UserID:      adminID,
		EventType:   entities.AuditEventSignup,
		Action:      "signup_" + string(decision),
		Description: truncate(note, 500),
		EntityType:  "user",
		EntityID:    &userID,
		Status:      entities.AuditStatusSuccess,
	}
	s.LogAsync(event)
}

// LogSettings records a settings change event.
func (s *Service) LogSettings(userID uint, action, description string) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventSettings,
		Action:      action,
		Description: description,
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// LogMetadataEnrich records a metadata enrichment event.
func (s *Service) LogMetadataEnrich(userID uint, bookID uint, provider string, fields []string, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventMetadataEnrich,
		Action:      "book_enrich",
		Description: "Metadata lookup via " + provider,
		EntityType:  "book",
		EntityID:    &bookID,
		Status:      entities.AuditStatusSuccess,
	}

	if mdBytes, e := json.Marshal(map[string]any{"fields": fields}); e == nil {
		event.Metadata = string(mdBytes)
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(filter audit.EventFilter) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(filter)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
