package entities

import "time"

// Location is a physical library owned by one user and shared with its members.
type Location struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OwnerID     uint      `gorm:"index" json:"owner_id"`
	Owner       *User     `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Name        string    `gorm:"size:100" json:"name"`
	Description string    `gorm:"size:1000" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Location) TableName() string {
	return "locations"
}

type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleMember MemberRole = "member"
)

type LocationMember struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	LocationID uint       `gorm:"uniqueIndex:idx_location_member" json:"location_id"`
	UserID     uint       `gorm:"uniqueIndex:idx_location_member;index" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role       MemberRole `gorm:"size:20" json:"role"`
	CreatedAt  time.Time  `json:"joined_at"`
}

func (LocationMember) TableName() string {
	return "location_members"
}

type Shelf struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	LocationID uint      `gorm:"uniqueIndex:idx_shelf_location_name" json:"location_id"`
	Name       string    `gorm:"uniqueIndex:idx_shelf_location_name;size:100" json:"name"`
	BookCount  int64     `gorm:"-" json:"book_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Shelf) TableName() string {
	return "shelves"
}
