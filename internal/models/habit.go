package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HabitFrequency string

const (
	FrequencyDaily   HabitFrequency = "daily"
	FrequencyWeekly  HabitFrequency = "weekly"
	FrequencyMonthly HabitFrequency = "monthly"
)

func (f HabitFrequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

type TargetType string

const (
	TargetCount    TargetType = "count"
	TargetDuration TargetType = "duration"
	TargetBoolean  TargetType = "boolean"
)

func (t TargetType) Valid() bool {
	switch t {
	case TargetCount, TargetDuration, TargetBoolean:
		return true
	}
	return false
}

// Habit is owned exclusively by one user and soft-deleted (paused) rather than
// destroyed while completion history exists.
type Habit struct {
	ID        string         `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	UserID string `gorm:"index;type:text;not null" json:"userId"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`

	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	Frequency   HabitFrequency `gorm:"type:text;default:'daily'" json:"frequency"`
	TargetValue float64        `gorm:"default:1" json:"targetValue"`
	TargetType  TargetType     `gorm:"type:text;default:'boolean'" json:"targetType"`
	IsActive    bool           `gorm:"default:true" json:"isActive"`
}

func (h *Habit) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	return
}

// ProgressRecord is the idempotency unit of the whole system: one row per
// (habit, user, calendar date). Retried client requests and redelivered events
// update the same row instead of creating duplicates.
type ProgressRecord struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	HabitID string `gorm:"type:text;not null;uniqueIndex:idx_progress_natural_key" json:"habitId"`
	Habit   Habit  `gorm:"foreignKey:HabitID;constraint:OnDelete:CASCADE" json:"-"`

	UserID string `gorm:"type:text;not null;uniqueIndex:idx_progress_natural_key" json:"userId"`

	// Calendar date normalized to midnight UTC of the user-local day.
	Date time.Time `gorm:"not null;uniqueIndex:idx_progress_natural_key" json:"date"`

	Value float64 `gorm:"not null" json:"value"`
	Notes string  `json:"notes,omitempty"`
}

func (p *ProgressRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return
}
