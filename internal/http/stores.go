package http

import (
	"context"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/shelfshare/internal/database/audit"
	"github.com/mrlokans/shelfshare/internal/entities"
	"github.com/mrlokans/shelfshare/internal/metadata"
	"github.com/mrlokans/shelfshare/internal/ocr"
	"github.com/mrlokans/shelfshare/internal/services"
)

// This file collects the interfaces controllers depend on. The services
// package provides the production implementations; tests substitute fakes.

// AccountService is the slice of auth.Service used by AuthController.
type AccountService interface {
	Register(email, name, password string) (*entities.User, error)
	Authenticate(email, password string) (*entities.User, error)
	GetUserByID(id uint) (*entities.User, error)
	ChangePassword(userID uint, current, next string) error
	UpdateProfile(userID uint, name string) (*entities.User, error)
	GenerateToken(userID uint) (string, error)
	RevokeToken(userID uint) error
}

// AuthAuditor records authentication events.
type AuthAuditor interface {
	LogAuth(userID uint, action string, ipAddr, userAgent string, success bool)
}

type LocationManager interface {
	Create(userID uint, name, description string) (*entities.Location, error)
	List(userID uint) ([]entities.Location, error)
	Get(userID, locationID uint) (*entities.Location, error)
	Update(userID, locationID uint, update services.LocationUpdate) (*entities.Location, error)
	Delete(userID, locationID uint) error
	Members(userID, locationID uint) ([]entities.LocationMember, error)
	RemoveMember(userID, locationID, memberID uint) error
	Leave(userID, locationID uint) error
	Transfer(userID, locationID, toUserID uint) error
}

type ShelfManager interface {
	Create(userID, locationID uint, name string) (*entities.Shelf, error)
	List(userID, locationID uint) ([]entities.Shelf, error)
	Rename(userID, shelfID uint, name string) (*entities.Shelf, error)
	Delete(userID, shelfID uint) error
}

type BookManager interface {
	Add(ctx context.Context, userID, shelfID uint, in services.BookInput) (*entities.Book, error)
	Get(userID, bookID uint) (*entities.Book, error)
	ListByShelf(userID, shelfID uint) ([]entities.Book, error)
	ListByLocation(userID, locationID uint) ([]entities.Book, error)
	Search(userID uint, query string) ([]entities.Book, error)
	Update(userID, bookID uint, update services.BookUpdate) (*entities.Book, error)
	Move(userID, bookID, shelfID uint) (*entities.Book, error)
	Delete(userID, bookID uint) error
	Checkout(userID, bookID uint, dueAt *time.Time) (*entities.Book, error)
	Checkin(userID, bookID uint) (*entities.Book, error)
	History(userID, bookID uint) ([]entities.BookLoan, error)
	MyCheckouts(userID uint) ([]entities.Book, error)
	Enrich(ctx context.Context, userID, bookID uint) (*metadata.EnrichmentResult, error)
}

// BookGetter provides read access to books the caller can see.
type BookGetter interface {
	Get(userID, bookID uint) (*entities.Book, error)
}

type RatingManager interface {
	Rate(userID, bookID uint, rating int, review string) (*entities.BookRating, error)
	Delete(userID, bookID uint) error
	List(userID, bookID uint) (*entities.RatingSummary, error)
}

type InvitationManager interface {
	Create(userID, locationID uint, email string) (*entities.LocationInvitation, error)
	List(userID, locationID uint) ([]entities.LocationInvitation, error)
	Revoke(userID, locationID, invitationID uint) error
	Inspect(token string) (*services.InvitationView, error)
	Accept(userID uint, token string) (*entities.LocationMember, error)
}

type RemovalManager interface {
	Request(userID, bookID uint, reason string) (*entities.BookRemovalRequest, error)
	ListForLocation(userID, locationID uint, status entities.RequestStatus) ([]entities.BookRemovalRequest, error)
	ListForBook(userID, bookID uint) ([]entities.BookRemovalRequest, error)
	Approve(userID, requestID uint) error
	Deny(userID, requestID uint) error
	Cancel(userID, requestID uint) error
}

// MetadataLookup answers the /api/lookup routes.
type MetadataLookup interface {
	LookupISBN(ctx context.Context, raw string) (*metadata.BookMetadata, error)
	Search(ctx context.Context, query string, limit int) ([]metadata.BookMetadata, error)
}

// ImageScanner reads ISBNs from photos of books.
type ImageScanner interface {
	MaxBytes() int64
	Scan(ctx context.Context, image []byte) (*ocr.Result, error)
}

// CoverSource serves cached cover images from disk.
type CoverSource interface {
	Get(ctx context.Context, bookID uint, coverURL string) (string, error)
}

type AdminManager interface {
	Signups(status entities.RequestStatus) ([]entities.SignupApprovalRequest, error)
	ApproveSignup(adminID, requestID uint, note string) (*entities.SignupApprovalRequest, error)
	DenySignup(adminID, requestID uint, note string) (*entities.SignupApprovalRequest, error)
	Users(status entities.UserStatus) ([]entities.User, error)
	SetRole(adminID, userID uint, role entities.UserRole) (*entities.User, error)
	Settings() (*services.AdminSettings, error)
	UpdateSettings(adminID uint, settings services.AdminSettings) (*services.AdminSettings, error)
}

// AuditReader lists stored audit events.
type AuditReader interface {
	GetEvents(filter audit.EventFilter) ([]entities.AuditEvent, int64, error)
}

// TaskStatusReader reports background task progress.
type TaskStatusReader interface {
	Status(ctx context.Context, id string) (backlite.TaskStatus, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping() error
}
