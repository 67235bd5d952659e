package services

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/database/locations"
	"github.com/mrlokans/shelfshare/internal/entities"
)

const (
	maxNameLength        = 100
	maxDescriptionLength = 1000
)

// LocationService manages locations and their memberships.
type LocationService struct {
	access
	locations LocationStore
	audit     AuditLogger
}

func NewLocationService(store LocationStore, audit AuditLogger) *LocationService {
	if audit == nil {
		audit = nopAudit{}
	}
	return &LocationService{
		access:    access{members: store},
		locations: store,
		audit:     audit,
	}
}

// LocationUpdate carries optional changes; nil fields are left alone.
type LocationUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Create makes userID the owner and first member of a new location.
func (s *LocationService) Create(userID uint, name, description string) (*entities.Location, error) {
	name, err := requireName("name", name, maxNameLength)
	if err != nil {
		return nil, err
	}
	description, err = limitText("description", description, maxDescriptionLength)
	if err != nil {
		return nil, err
	}

	location := &entities.Location{OwnerID: userID, Name: name, Description: description}
	if err := s.locations.Create(location); err != nil {
		return nil, translate(err, "location")
	}

	s.audit.LogAction(userID, entities.AuditEventLocation, "location_create", "location", location.ID, name)
	return location, nil
}

func (s *LocationService) List(userID uint) ([]entities.Location, error) {
	list, err := s.locations.ListForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return list, nil
}

func (s *LocationService) Get(userID, locationID uint) (*entities.Location, error) {
	if _, err := s.member(locationID, userID); err != nil {
		return nil, err
	}
	location, err := s.locations.GetByID(locationID)
	if err != nil {
		return nil, translate(err, "location")
	}
	return location, nil
}

func (s *LocationService) Update(userID, locationID uint, update LocationUpdate) (*entities.Location, error) {
	if _, err := s.owner(locationID, userID); err != nil {
		return nil, err
	}
	location, err := s.locations.GetByID(locationID)
	if err != nil {
		return nil, translate(err, "location")
	}

	if update.Name != nil {
		if location.Name, err = requireName("name", *update.Name, maxNameLength); err != nil {
			return nil, err
		}
	}
	if update.Description != nil {
		if location.Description, err = limitText("description", *update.Description, maxDescriptionLength); err != nil {
			return nil, err
		}
	}

	if err := s.locations.Update(location); err != nil {
		return nil, translate(stateConflict(err, "location changed concurrently"), "location")
	}
	return location, nil
}

// Delete removes the location and everything in it. Refused while any book is lent out.
func (s *LocationService) Delete(userID, locationID uint) error {
	if _, err := s.owner(locationID, userID); err != nil {
		return err
	}
	err := s.locations.Delete(locationID)
	switch {
	case errors.Is(err, locations.ErrBooksCheckedOut):
		return conflict("return all checked out books before deleting the location")
	case errors.Is(err, database.ErrNoRowsChanged):
		return fmt.Errorf("location %w", ErrNotFound)
	case err != nil:
		return fmt.Errorf("delete location: %w", err)
	}

	logrus.WithFields(logrus.Fields{"location_id": locationID, "user_id": userID}).Info("location deleted")
	s.audit.LogAction(userID, entities.AuditEventLocation, "location_delete", "location", locationID, "")
	return nil
}

func (s *LocationService) Members(userID, locationID uint) ([]entities.LocationMember, error) {
	if _, err := s.member(locationID, userID); err != nil {
		return nil, err
	}
	members, err := s.locations.ListMembers(locationID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// RemoveMember lets the owner drop another member.
func (s *LocationService) RemoveMember(userID, locationID, memberID uint) error {
	if _, err := s.owner(locationID, userID); err != nil {
		return err
	}
	if memberID == userID {
		return invalid("the owner cannot remove themselves; transfer ownership first")
	}
	if err := s.locations.RemoveMember(locationID, memberID); err != nil {
		if errors.Is(err, database.ErrNoRowsChanged) {
			return fmt.Errorf("member %w", ErrNotFound)
		}
		return fmt.Errorf("remove member: %w", err)
	}
	s.audit.LogAction(userID, entities.AuditEventMembership, "member_remove", "location", locationID,
		fmt.Sprintf("removed user %d", memberID))
	return nil
}

// Leave removes the caller's own membership. Owners must transfer first.
func (s *LocationService) Leave(userID, locationID uint) error {
	m, err := s.member(locationID, userID)
	if err != nil {
		return err
	}
	if m.Role == entities.MemberRoleOwner {
		return conflict("the owner cannot leave; transfer ownership first")
	}
	if err := s.locations.RemoveMember(locationID, userID); err != nil {
		return translate(stateConflict(err, "membership changed concurrently"), "membership")
	}
	s.audit.LogAction(userID, entities.AuditEventMembership, "member_leave", "location", locationID, "")
	return nil
}

// Transfer hands ownership to an existing member; the caller stays as a member.
func (s *LocationService) Transfer(userID, locationID, toUserID uint) error {
	if _, err := s.owner(locationID, userID); err != nil {
		return err
	}
	if toUserID == userID {
		return invalid("you already own this location")
	}
	if err := s.locations.TransferOwnership(locationID, userID, toUserID); err != nil {
		if errors.Is(err, database.ErrNoRowsChanged) {
			return invalid("new owner must be a member of the location")
		}
		return fmt.Errorf("transfer ownership: %w", err)
	}
	s.audit.LogAction(userID, entities.AuditEventMembership, "ownership_transfer", "location", locationID,
		fmt.Sprintf("transferred to user %d", toUserID))
	return nil
}
