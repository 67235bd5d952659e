package entities

import "time"

type BookStatus string

const (
	BookStatusAvailable  BookStatus = "available"
	BookStatusCheckedOut BookStatus = "checked_out"
)

type Book struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	ShelfID       uint       `gorm:"index" json:"shelf_id"`
	LocationID    uint       `gorm:"index" json:"location_id"`
	Title         string     `gorm:"index;size:512" json:"title"`
	Authors       string     `gorm:"size:512" json:"authors,omitempty"`
	ISBN          string     `gorm:"index;size:20" json:"isbn,omitempty"`
	Description   string     `gorm:"type:text" json:"description,omitempty"`
	CoverURL      string     `gorm:"size:2048" json:"cover_url,omitempty"`
	Publisher     string     `gorm:"size:256" json:"publisher,omitempty"`
	PublishedYear int        `json:"published_year,omitempty"`
	PageCount     int        `json:"page_count,omitempty"`
	Language      string     `gorm:"size:16" json:"language,omitempty"`
	AddedByID     uint       `gorm:"index" json:"added_by_id"`
	Status        BookStatus `gorm:"index;size:20;default:available" json:"status"`

	CheckedOutByID *uint      `gorm:"index" json:"checked_out_by_id,omitempty"`
	CheckedOutBy   *User      `gorm:"foreignKey:CheckedOutByID" json:"checked_out_by,omitempty"`
	CheckedOutAt   *time.Time `json:"checked_out_at,omitempty"`
	DueAt          *time.Time `json:"due_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

func (b *Book) IsAvailable() bool {
	return b.Status == BookStatusAvailable
}

// NeedsMetadata reports whether an ISBN lookup could fill in missing fields.
func (b *Book) NeedsMetadata() bool {
	if b.ISBN == "" {
		return false
	}
	return b.Authors == "" || b.CoverURL == "" || b.Description == "" || b.Publisher == "" || b.PublishedYear == 0
}

// BookLoan records a single checkout. ReturnedAt is nil while the book is out.
type BookLoan struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	BookID       uint       `gorm:"index" json:"book_id"`
	UserID       uint       `gorm:"index" json:"user_id"`
	User         *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CheckedOutAt time.Time  `json:"checked_out_at"`
	DueAt        *time.Time `json:"due_at,omitempty"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`
	ReturnedByID *uint      `json:"returned_by_id,omitempty"`
}

func (BookLoan) TableName() string {
	return "book_loans"
}

type BookRating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BookID    uint      `gorm:"uniqueIndex:idx_rating_book_user" json:"book_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_rating_book_user;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Rating    int       `json:"rating"`
	Review    string    `gorm:"type:text" json:"review,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BookRating) TableName() string {
	return "book_ratings"
}

// RatingSummary aggregates all ratings of one book.
type RatingSummary struct {
	BookID  uint         `json:"book_id"`
	Average float64      `json:"average"`
	Count   int64        `json:"count"`
	Ratings []BookRating `json:"ratings"`
}
