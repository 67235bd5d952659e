package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/entities"
)

// SignupPolicy decides whether new accounts need admin approval. The stored
// setting wins over the configured default.
type SignupPolicy struct {
	settings SettingsStore
	fallback bool
}

func NewSignupPolicy(settings SettingsStore, fallback bool) *SignupPolicy {
	return &SignupPolicy{settings: settings, fallback: fallback}
}

func (p *SignupPolicy) RequireApproval() (bool, error) {
	return p.settings.GetBool(entities.SettingKeySignupApprovalRequired, p.fallback)
}

// AdminSettings is the editable admin configuration.
type AdminSettings struct {
	SignupApprovalRequired bool `json:"signup_approval_required"`
}

// AdminService covers signup review, user roles and settings.
type AdminService struct {
	signups  SignupStore
	users    UserStore
	policy   *SignupPolicy
	settings SettingsStore
	notifier Notifier
	audit    AuditLogger
	now      func() time.Time
}

func NewAdminService(signups SignupStore, users UserStore, settings SettingsStore, policy *SignupPolicy,
	notifier Notifier, audit AuditLogger) *AdminService {
	if audit == nil {
		audit = nopAudit{}
	}
	return &AdminService{
		signups:  signups,
		users:    users,
		policy:   policy,
		settings: settings,
		notifier: notifier,
		audit:    audit,
		now:      time.Now,
	}
}

// Signups lists requests with a status, pending by default.
func (s *AdminService) Signups(status entities.RequestStatus) ([]entities.SignupApprovalRequest, error) {
	if status == "" {
		status = entities.RequestStatusPending
	}
	if !status.Valid() {
		return nil, invalid("status must be pending, approved or denied")
	}
	list, err := s.signups.List(status)
	if err != nil {
		return nil, fmt.Errorf("list signups: %w", err)
	}
	return list, nil
}

func (s *AdminService) ApproveSignup(adminID, requestID uint, note string) (*entities.SignupApprovalRequest, error) {
	return s.decide(adminID, requestID, entities.RequestStatusApproved, note)
}

func (s *AdminService) DenySignup(adminID, requestID uint, note string) (*entities.SignupApprovalRequest, error) {
	return s.decide(adminID, requestID, entities.RequestStatusDenied, note)
}

func (s *AdminService) decide(adminID, requestID uint, status entities.RequestStatus, note string) (*entities.SignupApprovalRequest, error) {
	note, err := limitText("note", note, maxReasonLength)
	if err != nil {
		return nil, err
	}
	if err := s.signups.Decide(requestID, status, adminID, note, s.now()); err != nil {
		return nil, translate(stateConflict(err, "signup request has already been decided"), "signup request")
	}

	request, err := s.signups.GetByID(requestID)
	if err != nil {
		return nil, translate(err, "signup request")
	}
	s.audit.LogSignupDecision(adminID, request.UserID, status, note)

	if s.notifier != nil && request.User != nil {
		if err := s.notifier.SignupDecided(request.User, status, note); err != nil {
			logrus.WithError(err).WithField("user_id", request.UserID).Warn("failed to queue signup decision email")
		}
	}
	return request, nil
}

func (s *AdminService) Users(status entities.UserStatus) ([]entities.User, error) {
	switch status {
	case "", entities.UserStatusPending, entities.UserStatusApproved, entities.UserStatusDenied:
	default:
		return nil, invalid("unknown user status")
	}
	list, err := s.users.List(status)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return list, nil
}

// SetRole promotes or demotes a user. The last approved admin cannot be demoted.
func (s *AdminService) SetRole(adminID, userID uint, role entities.UserRole) (*entities.User, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, translate(err, "user")
	}

	switch role {
	case entities.RoleAdmin:
		if !user.IsApproved() {
			return nil, invalid("only approved users can become admins")
		}
		if err := s.users.SetRole(userID, role); err != nil && !errors.Is(err, database.ErrNoRowsChanged) {
			return nil, fmt.Errorf("set role: %w", err)
		}
	case entities.RoleUser:
		if !user.IsAdmin() {
			return user, nil
		}
		if err := s.users.Demote(userID); err != nil {
			return nil, stateConflict(err, "cannot demote the last admin")
		}
	default:
		return nil, invalid("role must be admin or user")
	}

	s.audit.LogSettings(adminID, "role_change", fmt.Sprintf("user %d set to %s", userID, role))
	user.Role = role
	return user, nil
}

func (s *AdminService) Settings() (*AdminSettings, error) {
	required, err := s.policy.RequireApproval()
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return &AdminSettings{SignupApprovalRequired: required}, nil
}

func (s *AdminService) UpdateSettings(adminID uint, settings AdminSettings) (*AdminSettings, error) {
	if err := s.settings.SetBool(entities.SettingKeySignupApprovalRequired, settings.SignupApprovalRequired); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	s.audit.LogSettings(adminID, "settings_update",
		fmt.Sprintf("signup_approval_required=%t", settings.SignupApprovalRequired))
	return s.Settings()
}
