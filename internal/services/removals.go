package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/mrlokans/shelfshare/internal/database"
	"github.com/mrlokans/shelfshare/internal/entities"
)

const maxReasonLength = 500

// RemovalService handles members asking the owner to remove a book.
type RemovalService struct {
	access
	removals RemovalStore
	books    BookStore
	audit    AuditLogger
	now      func() time.Time
}

func NewRemovalService(removals RemovalStore, books BookStore, members MembershipStore, audit AuditLogger) *RemovalService {
	if audit == nil {
		audit = nopAudit{}
	}
	return &RemovalService{
		access:   access{members: members},
		removals: removals,
		books:    books,
		audit:    audit,
		now:      time.Now,
	}
}

func (s *RemovalService) Request(userID, bookID uint, reason string) (*entities.BookRemovalRequest, error) {
	book, err := s.books.GetByID(bookID)
	if err != nil {
		return nil, translate(err, "book")
	}
	m, err := s.member(book.LocationID, userID)
	if err != nil {
		return nil, fmt.Errorf("book %w", ErrNotFound)
	}
	if m.Role == entities.MemberRoleOwner {
		return nil, invalid("owners can delete books directly")
	}
	if reason, err = limitText("reason", reason, maxReasonLength); err != nil {
		return nil, err
	}

	pending, err := s.removals.HasPending(bookID, userID)
	if err != nil {
		return nil, fmt.Errorf("check pending requests: %w", err)
	}
	if pending {
		return nil, conflict("you already have a pending removal request for this book")
	}

	request := &entities.BookRemovalRequest{
		BookID:      bookID,
		BookTitle:   book.Title,
		LocationID:  book.LocationID,
		RequesterID: userID,
		Reason:      reason,
		Status:      entities.RequestStatusPending,
	}
	if err := s.removals.Create(request); err != nil {
		return nil, translate(err, "removal request")
	}
	return request, nil
}

// ListForLocation returns the location's requests, pending ones by default.
func (s *RemovalService) ListForLocation(userID, locationID uint, status entities.RequestStatus) ([]entities.BookRemovalRequest, error) {
	if _, err := s.owner(locationID, userID); err != nil {
		return nil, err
	}
	if status == "" {
		status = entities.RequestStatusPending
	}
	if !status.Valid() {
		return nil, invalid("status must be pending, approved or denied")
	}
	list, err := s.removals.ListByLocation(locationID, status)
	if err != nil {
		return nil, fmt.Errorf("list removal requests: %w", err)
	}
	return list, nil
}

func (s *RemovalService) ListForBook(userID, bookID uint) ([]entities.BookRemovalRequest, error) {
	book, err := s.books.GetByID(bookID)
	if err != nil {
		return nil, translate(err, "book")
	}
	if _, err := s.member(book.LocationID, userID); err != nil {
		return nil, fmt.Errorf("book %w", ErrNotFound)
	}
	list, err := s.removals.ListByBook(bookID)
	if err != nil {
		return nil, fmt.Errorf("list removal requests: %w", err)
	}
	return list, nil
}

// decidable loads a request the caller owns the location of.
func (s *RemovalService) decidable(userID, requestID uint) (*entities.BookRemovalRequest, error) {
	request, err := s.removals.GetByID(requestID)
	if err != nil {
		return nil, translate(err, "removal request")
	}
	if _, err := s.owner(request.LocationID, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("removal request %w", ErrNotFound)
		}
		return nil, err
	}
	if request.Status != entities.RequestStatusPending {
		return nil, conflict("removal request has already been decided")
	}
	return request, nil
}

// Approve deletes the book and closes every pending request for it.
func (s *RemovalService) Approve(userID, requestID uint) error {
	request, err := s.decidable(userID, requestID)
	if err != nil {
		return err
	}
	book, err := s.books.GetByID(request.BookID)
	if err == nil && !book.IsAvailable() {
		return conflict("book is checked out; it must be returned before removal")
	}

	if err := s.removals.Approve(requestID, userID, s.now()); err != nil {
		return translate(stateConflict(err, "removal request or book changed; reload and retry"), "removal request")
	}
	s.audit.LogAction(userID, entities.AuditEventRemoval, "removal_approve", "book", request.BookID, request.BookTitle)
	return nil
}

func (s *RemovalService) Deny(userID, requestID uint) error {
	request, err := s.decidable(userID, requestID)
	if err != nil {
		return err
	}
	if err := s.removals.Deny(requestID, userID, s.now()); err != nil {
		return stateConflict(err, "removal request has already been decided")
	}
	s.audit.LogAction(userID, entities.AuditEventRemoval, "removal_deny", "book", request.BookID, request.BookTitle)
	return nil
}

// Cancel withdraws the caller's own pending request.
func (s *RemovalService) Cancel(userID, requestID uint) error {
	request, err := s.removals.GetByID(requestID)
	if err != nil {
		return translate(err, "removal request")
	}
	if request.RequesterID != userID {
		return forbidden("only the requester can cancel a removal request")
	}
	if err := s.removals.Cancel(requestID, userID); err != nil {
		if errors.Is(err, database.ErrNoRowsChanged) {
			return conflict("removal request has already been decided")
		}
		return fmt.Errorf("cancel removal request: %w", err)
	}
	return nil
}
