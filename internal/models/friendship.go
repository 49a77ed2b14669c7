package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "PENDING"
	FriendshipAccepted FriendshipStatus = "ACCEPTED"
)

// Friendship is consumed here only as an authorization gate for challenge
// invites. Relationship management itself lives in the social/identity service.
type Friendship struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	UserID   string           `gorm:"type:text;not null;uniqueIndex:idx_user_friend" json:"userId"`
	FriendID string           `gorm:"type:text;not null;uniqueIndex:idx_user_friend" json:"friendId"`
	Status   FriendshipStatus `gorm:"type:text;default:'ACCEPTED'" json:"status"`
}

func (f *Friendship) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return
}
