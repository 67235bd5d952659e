package services

import (
	"context"
	"time"

	"github.com/mrlokans/shelfshare/internal/entities"
	"github.com/mrlokans/shelfshare/internal/metadata"
)

// MembershipStore answers "is this user part of that location".
type MembershipStore interface {
	GetMembership(locationID, userID uint) (*entities.LocationMember, error)
}

type LocationStore interface {
	MembershipStore
	Create(location *entities.Location) error
	GetByID(id uint) (*entities.Location, error)
	ListForUser(userID uint) ([]entities.Location, error)
	Update(location *entities.Location) error
	Delete(id uint) error
	ListMembers(locationID uint) ([]entities.LocationMember, error)
	HasMemberWithEmail(locationID uint, email string) (bool, error)
	RemoveMember(locationID, userID uint) error
	TransferOwnership(locationID, fromUserID, toUserID uint) error
}

type ShelfStore interface {
	Create(shelf *entities.Shelf) error
	GetByID(id uint) (*entities.Shelf, error)
	ListByLocation(locationID uint) ([]entities.Shelf, error)
	Rename(id uint, name string) error
	DeleteIfEmpty(id uint) error
}

type BookStore interface {
	Create(book *entities.Book) error
	GetByID(id uint) (*entities.Book, error)
	ListByShelf(shelfID uint) ([]entities.Book, error)
	ListByLocation(locationID uint) ([]entities.Book, error)
	Search(userID uint, query string, limit int) ([]entities.Book, error)
	Update(id uint, fields map[string]any) error
	Move(id, shelfID, locationID uint) error
	Delete(id, deciderID uint) error
	Checkout(id, userID uint, dueAt *time.Time) (*entities.BookLoan, error)
	Checkin(id, byUserID uint, borrowerID *uint) error
	ListLoans(bookID uint) ([]entities.BookLoan, error)
	ListCheckedOutBy(userID uint) ([]entities.Book, error)
}

type RatingStore interface {
	Upsert(rating *entities.BookRating) error
	Get(bookID, userID uint) (*entities.BookRating, error)
	Delete(bookID, userID uint) error
	Summary(bookID uint) (*entities.RatingSummary, error)
}

type InvitationStore interface {
	Create(invitation *entities.LocationInvitation) error
	GetByID(id uint) (*entities.LocationInvitation, error)
	GetByToken(token string) (*entities.LocationInvitation, error)
	ListByLocation(locationID uint) ([]entities.LocationInvitation, error)
	HasOpen(locationID uint, email string, now time.Time) (bool, error)
	Revoke(id, locationID uint) error
	Accept(invitation *entities.LocationInvitation, userID uint, now time.Time) (*entities.LocationMember, error)
	Purge(cutoff time.Time) (int64, error)
}

type RemovalStore interface {
	Create(request *entities.BookRemovalRequest) error
	GetByID(id uint) (*entities.BookRemovalRequest, error)
	ListByLocation(locationID uint, status entities.RequestStatus) ([]entities.BookRemovalRequest, error)
	ListByBook(bookID uint) ([]entities.BookRemovalRequest, error)
	HasPending(bookID, requesterID uint) (bool, error)
	Approve(id, deciderID uint, now time.Time) error
	Deny(id, deciderID uint, now time.Time) error
	Cancel(id, requesterID uint) error
}

type SignupStore interface {
	GetByID(id uint) (*entities.SignupApprovalRequest, error)
	List(status entities.RequestStatus) ([]entities.SignupApprovalRequest, error)
	Decide(id uint, status entities.RequestStatus, reviewerID uint, note string, now time.Time) error
}

type UserStore interface {
	GetByID(id uint) (*entities.User, error)
	List(status entities.UserStatus) ([]entities.User, error)
	SetRole(id uint, role entities.UserRole) error
	Demote(id uint) error
}

type SettingsStore interface {
	GetBool(key string, fallback bool) (bool, error)
	SetBool(key string, value bool) error
}

// AuditLogger records domain actions. Implementations must not block.
type AuditLogger interface {
	LogAction(userID uint, eventType entities.AuditEventType, action, entityType string, entityID uint, description string)
	LogSignupDecision(adminID, userID uint, decision entities.RequestStatus, note string)
	LogSettings(userID uint, action, description string)
}

// Notifier delivers user-facing notifications, usually by queueing email.
type Notifier interface {
	InvitationCreated(invitation *entities.LocationInvitation, location *entities.Location, inviter *entities.User) error
	SignupPending(user *entities.User) error
	SignupDecided(user *entities.User, decision entities.RequestStatus, note string) error
}

// EnrichmentQueue schedules a background metadata lookup for a book.
type EnrichmentQueue interface {
	EnqueueEnrichment(bookID, userID uint) error
}

// MetadataLookup resolves an ISBN to bibliographic data.
type MetadataLookup interface {
	LookupISBN(ctx context.Context, isbn string) (*metadata.BookMetadata, error)
}

type nopAudit struct{}

func (nopAudit) LogAction(uint, entities.AuditEventType, string, string, uint, string) {}
func (nopAudit) LogSignupDecision(uint, uint, entities.RequestStatus, string)          {}
func (nopAudit) LogSettings(uint, string, string)                                      {}
