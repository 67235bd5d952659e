package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mrlokans/shelfshare/internal/config"
	"github.com/mrlokans/shelfshare/internal/entities"
	"github.com/mrlokans/shelfshare/internal/services"
)

const maxNameLength = 100

// Errors wrap the service sentinels so the HTTP layer maps them like any other
// domain error.
var (
	ErrUserNotFound       = fmt.Errorf("user %w", services.ErrNotFound)
	ErrUserExists         = fmt.Errorf("%w: email already registered", services.ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", services.ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: invalid token", services.ErrUnauthorized)
	ErrTokenExpired       = fmt.Errorf("%w: token expired", services.ErrUnauthorized)
	ErrAccountLocked      = fmt.Errorf("%w: account is locked due to too many failed login attempts", services.ErrForbidden)
	ErrSignupPending      = fmt.Errorf("%w: signup is waiting for admin approval", services.ErrForbidden)
	ErrSignupDenied       = fmt.Errorf("%w: signup was denied", services.ErrForbidden)
	ErrNameRequired       = fmt.Errorf("%w: name is required", services.ErrInvalidInput)
	ErrNameTooLong        = fmt.Errorf("%w: name must be at most 100 characters", services.ErrInvalidInput)
)

// ApprovalPolicy reports whether new signups wait for an admin.
type ApprovalPolicy interface {
	RequireApproval() (bool, error)
}

// SignupNotifier is told about accounts that need review.
type SignupNotifier interface {
	SignupPending(user *entities.User) error
}

// Service handles registration, credentials and API tokens.
type Service struct {
	db       *gorm.DB
	config   config.Auth
	policy   ApprovalPolicy
	notifier SignupNotifier
	now      func() time.Time
}

// NewService creates a new authentication service. A nil policy never
// requires approval.
func NewService(db *gorm.DB, cfg config.Auth, policy ApprovalPolicy, notifier SignupNotifier) *Service {
	return &Service{
		db:       db,
		config:   cfg,
		policy:   policy,
		notifier: notifier,
		now:      time.Now,
	}
}

// Register creates an account. The very first account becomes an approved
// admin; later ones are pending when approval is required, with a signup
// request created in the same transaction.
func (s *Service) Register(email, name, password string) (*entities.User, error) {
	email, err := services.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	name, err = validName(name)
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	requireApproval := false
	if s.policy != nil {
		if requireApproval, err = s.policy.RequireApproval(); err != nil {
			return nil, fmt.Errorf("read signup policy: %w", err)
		}
	}

	user := &entities.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         entities.RoleUser,
		Status:       entities.UserStatusApproved,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.User{}).Count(&count).Error; err != nil {
			return err
		}
		switch {
		case count == 0:
			user.Role = entities.RoleAdmin
		case requireApproval:
			user.Status = entities.UserStatusPending
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if user.Status == entities.UserStatusPending {
			return tx.Create(&entities.SignupApprovalRequest{
				UserID: user.ID,
				Status: entities.RequestStatusPending,
			}).Error
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if user.Status == entities.UserStatusPending && s.notifier != nil {
		if err := s.notifier.SignupPending(user); err != nil {
			logrus.WithError(err).WithField("user_id", user.ID).Warn("failed to queue signup review email")
		}
	}
	return user, nil
}

// CreateAdmin creates an approved administrator regardless of signup policy.
func (s *Service) CreateAdmin(email, name, password string) (*entities.User, error) {
	email, err := services.NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	name, err = validName(name)
	if err != nil {
		return nil, err
	}
	hash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}
	user := &entities.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         entities.RoleAdmin,
		Status:       entities.UserStatusApproved,
	}
	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return user, nil
}

// Authenticate validates credentials and returns the user.
// Implements account lockout after too many failed attempts. Pending and
// denied accounts are reported only after the password matched.
func (s *Service) Authenticate(email, password string) (*entities.User, error) {
	var user entities.User
	err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(&user)
		if errors.Is(err, ErrInvalidPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	switch user.Status {
	case entities.UserStatusPending:
		return nil, ErrSignupPending
	case entities.UserStatusDenied:
		return nil, ErrSignupDenied
	}

	if err := s.db.Model(&user).Updates(map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	}).Error; err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("failed to record successful login")
	}
	user.LastLoginAt = &now
	user.FailedLoginCount = 0
	user.LockedUntil = nil
	return &user, nil
}

// recordFailedLogin increments the failed login counter and locks the account if threshold reached.
func (s *Service) recordFailedLogin(user *entities.User) {
	user.FailedLoginCount++
	updates := map[string]any{
		"failed_login_count": user.FailedLoginCount,
	}

	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if user.FailedLoginCount >= maxAttempts {
		lockout := s.config.LockoutDuration
		if lockout == 0 {
			lockout = 30 * time.Minute
		}
		updates["locked_until"] = s.now().Add(lockout)
		updates["failed_login_count"] = 0
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("failed to record login failure")
	}
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ValidateToken checks a plaintext API token and returns the associated user.
func (s *Service) ValidateToken(token string) (*entities.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	var user entities.User
	err := s.db.Where("token_hash = ?", HashToken(token)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if s.config.TokenExpiry > 0 && user.TokenCreatedAt != nil {
		if s.now().Sub(*user.TokenCreatedAt) > s.config.TokenExpiry {
			return nil, ErrTokenExpired
		}
	}
	return &user, nil
}

// GenerateToken replaces the user's API token. The plaintext is returned once;
// only its hash is stored.
func (s *Service) GenerateToken(userID uint) (string, error) {
	plaintext, hash, err := GenerateAPIToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	result := s.db.Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"token_hash":       hash,
		"token_created_at": s.now(),
	})
	if result.Error != nil {
		return "", fmt.Errorf("failed to save token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return "", ErrUserNotFound
	}
	return plaintext, nil
}

// RevokeToken removes a user's API token.
func (s *Service) RevokeToken(userID uint) error {
	err := s.db.Model(&entities.User{}).Where("id = ?", userID).Updates(map[string]any{
		"token_hash":       nil,
		"token_created_at": nil,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// ChangePassword updates a user's password after verifying the current one.
func (s *Service) ChangePassword(userID uint, current, next string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if err := CheckPassword(current, user.PasswordHash); err != nil {
		if errors.Is(err, ErrInvalidPassword) {
			return fmt.Errorf("%w: current password is incorrect", services.ErrInvalidInput)
		}
		return err
	}
	hash, err := HashPassword(next, s.config.BcryptCost)
	if err != nil {
		return err
	}
	return s.db.Model(user).Update("password_hash", hash).Error
}

// UpdateProfile changes the display name.
func (s *Service) UpdateProfile(userID uint, name string) (*entities.User, error) {
	name, err := validName(name)
	if err != nil {
		return nil, err
	}
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(user).Update("name", name).Error; err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// HasUsers returns true if any users exist in the database.
func (s *Service) HasUsers() (bool, error) {
	var count int64
	if err := s.db.Model(&entities.User{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	if len([]rune(name)) > maxNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}
