package entities

import "time"

// RequestStatus is shared by removal and signup approval requests.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusDenied   RequestStatus = "denied"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusDenied:
		return true
	}
	return false
}

// BookRemovalRequest asks the location owner to remove a book. The title is
// copied so the request stays readable after the book is deleted.
type BookRemovalRequest struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	BookID      uint          `gorm:"index" json:"book_id"`
	BookTitle   string        `gorm:"size:512" json:"book_title"`
	LocationID  uint          `gorm:"index" json:"location_id"`
	RequesterID uint          `gorm:"index" json:"requester_id"`
	Requester   *User         `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Reason      string        `gorm:"size:500" json:"reason,omitempty"`
	Status      RequestStatus `gorm:"index;size:20;default:pending" json:"status"`
	DecidedByID *uint         `json:"decided_by_id,omitempty"`
	DecidedAt   *time.Time    `json:"decided_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (BookRemovalRequest) TableName() string {
	return "book_removal_requests"
}

type SignupApprovalRequest struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	UserID       uint          `gorm:"uniqueIndex" json:"user_id"`
	User         *User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Status       RequestStatus `gorm:"index;size:20;default:pending" json:"status"`
	ReviewedByID *uint         `json:"reviewed_by_id,omitempty"`
	ReviewedAt   *time.Time    `json:"reviewed_at,omitempty"`
	Note         string        `gorm:"size:500" json:"note,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (SignupApprovalRequest) TableName() string {
	return "signup_approval_requests"
}
