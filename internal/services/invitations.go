package services

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/entities"
	"github.com/mrlokans/shelfshare/internal/metrics"
)

// DefaultInvitationTTL applies when no TTL is configured.
const DefaultInvitationTTL = 7 * 24 * time.Hour

// InvitationView is what an invitee sees before accepting.
type InvitationView struct {
	LocationName string                   `json:"location_name"`
	InviterName  string                   `json:"inviter_name"`
	Email        string                   `json:"email"`
	ExpiresAt    time.Time                `json:"expires_at"`
	State        entities.InvitationState `json:"state"`
}

type InvitationService struct {
	access
	locations   LocationStore
	invitations InvitationStore
	users       UserStore
	notifier    Notifier
	audit       AuditLogger
	ttl         time.Duration
	now         func() time.Time
}

func NewInvitationService(invitations InvitationStore, locations LocationStore, users UserStore,
	notifier Notifier, audit AuditLogger, ttl time.Duration) *InvitationService {
	if audit == nil {
		audit = nopAudit{}
	}
	if ttl <= 0 {
		ttl = DefaultInvitationTTL
	}
	return &InvitationService{
		access:      access{members: locations},
		locations:   locations,
		invitations: invitations,
		users:       users,
		notifier:    notifier,
		audit:       audit,
		ttl:         ttl,
		now:         time.Now,
	}
}

// NormalizeEmail lowercases and validates an address.
func NormalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw || !strings.Contains(raw, "@") {
		return "", invalid("a valid email address is required")
	}
	return strings.ToLower(raw), nil
}

// Create invites email to the location and queues the invitation email.
func (s *InvitationService) Create(userID, locationID uint, email string) (*entities.LocationInvitation, error) {
	if _, err := s.owner(locationID, userID); err != nil {
		return nil, err
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	isMember, err := s.locations.HasMemberWithEmail(locationID, email)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if isMember {
		return nil, conflict("that user is already a member of this location")
	}
	now := s.now()
	open, err := s.invitations.HasOpen(locationID, email, now)
	if err != nil {
		return nil, fmt.Errorf("check invitations: %w", err)
	}
	if open {
		return nil, conflict("an open invitation for that email already exists")
	}

	invitation := &entities.LocationInvitation{
		LocationID: locationID,
		InviterID:  userID,
		Email:      email,
		Token:      uuid.NewString(),
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.invitations.Create(invitation); err != nil {
		return nil, translate(err, "invitation")
	}
	invitation.State = entities.InvitationStateOpen
	metrics.InvitationEvent("created")

	s.notify(invitation)
	s.audit.LogAction(userID, entities.AuditEventInvitation, "invitation_create", "location", locationID, email)
	return invitation, nil
}

// notify queues the invitation email. Delivery problems never fail the invite;
// the owner can still share the link by hand.
func (s *InvitationService) notify(invitation *entities.LocationInvitation) {
	if s.notifier == nil {
		return
	}
	location, err := s.locations.GetByID(invitation.LocationID)
	if err != nil {
		logrus.WithError(err).Warn("invitation email skipped: location lookup failed")
		return
	}
	inviter, err := s.users.GetByID(invitation.InviterID)
	if err != nil {
		logrus.WithError(err).Warn("invitation email skipped: inviter lookup failed")
		return
	}
	if err := s.notifier.InvitationCreated(invitation, location, inviter); err != nil {
		logrus.WithError(err).WithField("invitation_id", invitation.ID).Warn("failed to queue invitation email")
	}
}

// List returns invitations of a location with their derived state.
func (s *InvitationService) List(userID, locationID uint) ([]entities.LocationInvitation, error) {
	if _, err := s.owner(locationID, userID); err != nil {
		return nil, err
	}
	list, err := s.invitations.ListByLocation(locationID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	now := s.now()
	for i := range list {
		list[i].State = list[i].StateAt(now)
	}
	return list, nil
}

// Revoke deletes an unused invitation.
func (s *InvitationService) Revoke(userID, locationID, invitationID uint) error {
	if _, err := s.owner(locationID, userID); err != nil {
		return err
	}
	invitation, err := s.invitations.GetByID(invitationID)
	if err != nil || invitation.LocationID != locationID {
		return fmt.Errorf("invitation %w", ErrNotFound)
	}
	if err := s.invitations.Revoke(invitationID, locationID); err != nil {
		return stateConflict(err, "invitation has already been used")
	}
	metrics.InvitationEvent("revoked")
	return nil
}

// Inspect returns the public view of an invitation token.
func (s *InvitationService) Inspect(token string) (*InvitationView, error) {
	invitation, err := s.byToken(token)
	if err != nil {
		return nil, err
	}
	view := &InvitationView{
		Email:     invitation.Email,
		ExpiresAt: invitation.ExpiresAt,
		State:     invitation.StateAt(s.now()),
	}
	if invitation.Location != nil {
		view.LocationName = invitation.Location.Name
	}
	if invitation.Inviter != nil {
		view.InviterName = invitation.Inviter.Name
	}
	return view, nil
}

func (s *InvitationService) byToken(token string) (*entities.LocationInvitation, error) {
	// Tokens are stored in canonical lowercase form.
	parsed, err := uuid.Parse(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("invitation %w", ErrNotFound)
	}
	invitation, err := s.invitations.GetByToken(parsed.String())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("invitation %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return invitation, nil
}

// Accept redeems an invitation for the calling user.
func (s *InvitationService) Accept(userID uint, token string) (*entities.LocationMember, error) {
	invitation, err := s.byToken(token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, translate(err, "user")
	}

	now := s.now()
	switch invitation.StateAt(now) {
	case entities.InvitationStateUsed:
		metrics.InvitationEvent("rejected")
		return nil, conflict("invitation has already been used")
	case entities.InvitationStateExpired:
		metrics.InvitationEvent("rejected")
		return nil, conflict("invitation has expired")
	}
	if !strings.EqualFold(strings.TrimSpace(user.Email), invitation.Email) {
		metrics.InvitationEvent("rejected")
		return nil, forbidden("this invitation was sent to a different email address")
	}
	if _, err := s.members.GetMembership(invitation.LocationID, userID); err == nil {
		return nil, conflict("you are already a member of this location")
	}

	member, err := s.invitations.Accept(invitation, userID, now)
	switch {
	case errors.Is(err, database.ErrNoRowsChanged):
		return nil, conflict("invitation is no longer valid")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, conflict("you are already a member of this location")
	case err != nil:
		return nil, fmt.Errorf("accept invitation: %w", err)
	}

	metrics.InvitationEvent("accepted")
	s.audit.LogAction(userID, entities.AuditEventInvitation, "invitation_accept", "location", invitation.LocationID, invitation.Email)
	return member, nil
}

// Purge deletes invitations used or expired more than retention ago.
func (s *InvitationService) Purge(retention time.Duration) (int64, error) {
	n, err := s.invitations.Purge(s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("purge invitations: %w", err)
	}
	return n, nil
}
