package models

import "time"

type AchievementCriteria string

const (
	CriteriaCurrentStreak    AchievementCriteria = "current_streak"
	CriteriaLongestStreak    AchievementCriteria = "longest_streak"
	CriteriaTotalCompletions AchievementCriteria = "total_completions"
	CriteriaChallengesJoined AchievementCriteria = "challenges_joined"
	CriteriaChallengesWon    AchievementCriteria = "challenges_won"
)

// Achievement definitions are static and seeded at startup.
type Achievement struct {
	ID          string              `gorm:"primaryKey;type:text" json:"id"`
	Code        string              `gorm:"uniqueIndex;not null" json:"code"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Icon        string              `json:"icon"`
	Criteria    AchievementCriteria `gorm:"type:text" json:"criteria"`
	Threshold   int                 `json:"threshold"`
}

// UserAchievement is a unique (user, achievement) unlock record, created exactly
// once. The composite primary key is what makes re-evaluation safe to retry.
type UserAchievement struct {
	UserID        string    `gorm:"primaryKey;type:text" json:"userId"`
	AchievementID string    `gorm:"primaryKey;type:text" json:"achievementId"`
	UnlockedAt    time.Time `json:"unlockedAt"`

	Achievement Achievement `gorm:"foreignKey:AchievementID" json:"achievement"`
	User        User        `gorm:"foreignKey:UserID" json:"-"`
}
