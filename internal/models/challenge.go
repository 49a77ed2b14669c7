package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChallengeType string

const (
	ChallengeStreak           ChallengeType = "streak"
	ChallengeTotalCompletions ChallengeType = "total_completions"
	ChallengePoints           ChallengeType = "points"
	ChallengeCustom           ChallengeType = "custom"
)

func (t ChallengeType) Valid() bool {
	switch t {
	case ChallengeStreak, ChallengeTotalCompletions, ChallengePoints, ChallengeCustom:
		return true
	}
	return false
}

type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

type ChallengeStatus string

const (
	ChallengeScheduled ChallengeStatus = "scheduled"
	ChallengeActive    ChallengeStatus = "active"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeCancelled ChallengeStatus = "cancelled"
)

// Challenge is a time-bounded multi-participant competition over habit-derived
// scores. Status is derived from the wall clock rather than mutated by a job;
// the only stored transition is creator cancellation while still scheduled.
type Challenge struct {
	ID        string         `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CreatorID string `gorm:"index;type:text;not null" json:"creatorId"`
	Creator   User   `gorm:"foreignKey:CreatorID" json:"-"`

	// Optional linked habit: completions of this habit drive participant scores.
	HabitID *string `gorm:"index;type:text" json:"habitId,omitempty"`

	Name        string        `gorm:"not null" json:"name"`
	Description string        `json:"description"`
	Type        ChallengeType `gorm:"type:text;not null" json:"type"`
	TargetValue float64       `gorm:"not null" json:"targetValue"`
	StartDate   time.Time     `gorm:"not null" json:"startDate"`
	EndDate     time.Time     `gorm:"not null" json:"endDate"`
	Visibility  Visibility    `gorm:"type:text;default:'PUBLIC'" json:"visibility"`

	// Nil means unlimited participants.
	Capacity *int `json:"capacity,omitempty"`

	CancelledAt *time.Time `json:"cancelledAt,omitempty"`

	Participants []ChallengeParticipant `gorm:"foreignKey:ChallengeID" json:"participants,omitempty"`
}

func (c *Challenge) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// Status derives the lifecycle state at the given instant.
func (c *Challenge) Status(now time.Time) ChallengeStatus {
	if c.CancelledAt != nil {
		return ChallengeCancelled
	}
	if now.Before(c.StartDate) {
		return ChallengeScheduled
	}
	if now.After(c.EndDate) {
		return ChallengeCompleted
	}
	return ChallengeActive
}

// ChallengeParticipant is the only frequently contended row in the system.
// Score is mutated solely through atomic SQL increments. Leaving marks the row
// instead of deleting it so historical leaderboard attribution survives.
type ChallengeParticipant struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ChallengeID string    `gorm:"type:text;not null;uniqueIndex:idx_challenge_user" json:"challengeId"`
	Challenge   Challenge `gorm:"foreignKey:ChallengeID;constraint:OnDelete:CASCADE" json:"-"`

	UserID string `gorm:"type:text;not null;uniqueIndex:idx_challenge_user" json:"userId"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	JoinedAt time.Time  `gorm:"not null" json:"joinedAt"`
	Score    float64    `gorm:"default:0" json:"score"`
	LastRank int        `gorm:"default:0" json:"lastRank"`
	LeftAt   *time.Time `json:"leftAt,omitempty"`
}

func (p *ChallengeParticipant) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now()
	}
	return
}

type InviteStatus string

const (
	InvitePending  InviteStatus = "PENDING"
	InviteAccepted InviteStatus = "ACCEPTED"
	InviteDeclined InviteStatus = "DECLINED"
)

// ChallengeInvite gates private challenges: only friends of a participant can
// be invited, and accepting goes through the same capacity-safe join path.
type ChallengeInvite struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ChallengeID string    `gorm:"index;type:text;not null" json:"challengeId"`
	Challenge   Challenge `gorm:"foreignKey:ChallengeID;constraint:OnDelete:CASCADE" json:"challenge,omitempty"`

	InviterID string `gorm:"type:text;not null" json:"inviterId"`
	Inviter   User   `gorm:"foreignKey:InviterID" json:"inviter,omitempty"`

	InviteeID string `gorm:"index;type:text;not null" json:"inviteeId"`

	Status InviteStatus `gorm:"type:text;default:'PENDING'" json:"status"`
}

func (i *ChallengeInvite) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return
}
