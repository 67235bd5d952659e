package entities

import "time"

type InvitationState string

const (
	InvitationStateOpen    InvitationState = "open"
	InvitationStateUsed    InvitationState = "used"
	InvitationStateExpired InvitationState = "expired"
)

// LocationInvitation is a single-use, expiring invite to join a location.
type LocationInvitation struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	LocationID uint            `gorm:"index" json:"location_id"`
	Location   *Location       `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	InviterID  uint            `gorm:"index" json:"inviter_id"`
	Inviter    *User           `gorm:"foreignKey:InviterID" json:"inviter,omitempty"`
	Email      string          `gorm:"index;size:255" json:"email"`
	Token      string          `gorm:"uniqueIndex;size:36" json:"token"`
	ExpiresAt  time.Time       `gorm:"index" json:"expires_at"`
	State      InvitationState `gorm:"-" json:"state,omitempty"`
	UsedAt     *time.Time      `json:"used_at,omitempty"`
	UsedByID   *uint           `json:"used_by_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (LocationInvitation) TableName() string {
	return "location_invitations"
}

// StateAt derives the lifecycle state at the given time. Used wins over expired.
func (i *LocationInvitation) StateAt(now time.Time) InvitationState {
	switch {
	case i.UsedAt != nil:
		return InvitationStateUsed
	case !now.Before(i.ExpiresAt):
		return InvitationStateExpired
	default:
		return InvitationStateOpen
	}
}
