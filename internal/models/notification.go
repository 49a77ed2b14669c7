package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationTypeAchievement     NotificationType = "ACHIEVEMENT"
	NotificationTypeChallengeInvite NotificationType = "CHALLENGE_INVITE"
	NotificationTypeRankChange      NotificationType = "RANK_CHANGE"
	NotificationTypeSystem          NotificationType = "SYSTEM"
)

// Notification rows are written fire-and-forget by the notifier; delivery to
// push/email channels is the external dispatch collaborator's job.
type Notification struct {
	ID          string           `gorm:"primaryKey;type:text" json:"id"`
	UserID      string           `gorm:"index;type:text;not null" json:"userId"` // Recipient
	ActorID     string           `gorm:"index;type:text" json:"actorId"`         // Who performed action
	Type        NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	ChallengeID *string          `gorm:"index;type:text" json:"challengeId,omitempty"`
	Message     string           `gorm:"type:text" json:"message"`
	IsRead      bool             `gorm:"default:false" json:"isRead"`
	CreatedAt   time.Time        `json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return
}
