package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/entities"
)

// access answers membership questions for every location-scoped service.
// Non-members get ErrNotFound so a location's existence is not revealed.
type access struct {
	members MembershipStore
}

func (a access) member(locationID, userID uint) (*entities.LocationMember, error) {
	m, err := a.members.GetMembership(locationID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("location %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("membership: %w", err)
	}
	return m, nil
}

func (a access) owner(locationID, userID uint) (*entities.LocationMember, error) {
	m, err := a.member(locationID, userID)
	if err != nil {
		return nil, err
	}
	if m.Role != entities.MemberRoleOwner {
		return nil, forbidden("only the location owner can do this")
	}
	return m, nil
}

// stateConflict turns a failed conditional update into ErrConflict.
func stateConflict(err error, msg string) error {
	if errors.Is(err, database.ErrNoRowsChanged) {
		return conflict(msg)
	}
	return err
}

// requireName trims and validates a 1..max character name.
func requireName(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", invalid(field + " is required")
	}
	if utf8.RuneCountInString(value) > max {
		return "", invalid(fmt.Sprintf("%s must be at most %d characters", field, max))
	}
	return value, nil
}

func limitText(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if utf8.RuneCountInString(value) > max {
		return "", invalid(fmt.Sprintf("%s must be at most %d characters", field, max))
	}
	return value, nil
}
