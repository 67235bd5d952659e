package services

import (
	"errors"
	"fmt"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/entities"
)

type ShelfService struct {
	access
	shelves ShelfStore
}

func NewShelfService(shelves ShelfStore, members MembershipStore) *ShelfService {
	return &ShelfService{access: access{members: members}, shelves: shelves}
}

func (s *ShelfService) Create(userID, locationID uint, name string) (*entities.Shelf, error) {
	if _, err := s.owner(locationID, userID); err != nil {
		return nil, err
	}
	name, err := requireName("name", name, maxNameLength)
	if err != nil {
		return nil, err
	}
	shelf := &entities.Shelf{LocationID: locationID, Name: name}
	if err := s.shelves.Create(shelf); err != nil {
		return nil, translate(err, "shelf")
	}
	return shelf, nil
}

func (s *ShelfService) List(userID, locationID uint) ([]entities.Shelf, error) {
	if _, err := s.member(locationID, userID); err != nil {
		return nil, err
	}
	list, err := s.shelves.ListByLocation(locationID)
	if err != nil {
		return nil, fmt.Errorf("list shelves: %w", err)
	}
	return list, nil
}

// Get returns a shelf if the caller belongs to its location.
func (s *ShelfService) Get(userID, shelfID uint) (*entities.Shelf, error) {
	shelf, err := s.shelves.GetByID(shelfID)
	if err != nil {
		return nil, translate(err, "shelf")
	}
	if _, err := s.member(shelf.LocationID, userID); err != nil {
		return nil, fmt.Errorf("shelf %w", ErrNotFound)
	}
	return shelf, nil
}

func (s *ShelfService) Rename(userID, shelfID uint, name string) (*entities.Shelf, error) {
	shelf, err := s.Get(userID, shelfID)
	if err != nil {
		return nil, err
	}
	if _, err := s.owner(shelf.LocationID, userID); err != nil {
		return nil, err
	}
	if shelf.Name, err = requireName("name", name, maxNameLength); err != nil {
		return nil, err
	}
	if err := s.shelves.Rename(shelfID, shelf.Name); err != nil {
		if errors.Is(err, database.ErrNoRowsChanged) {
			return nil, fmt.Errorf("shelf %w", ErrNotFound)
		}
		return nil, translate(err, "shelf")
	}
	return shelf, nil
}

// Delete removes an empty shelf.
func (s *ShelfService) Delete(userID, shelfID uint) error {
	shelf, err := s.Get(userID, shelfID)
	if err != nil {
		return err
	}
	if _, err := s.owner(shelf.LocationID, userID); err != nil {
		return err
	}
	if err := s.shelves.DeleteIfEmpty(shelfID); err != nil {
		return stateConflict(err, "shelf is not empty; move or remove its books first")
	}
	return nil
}
