package seeds

import (
	"log"

	"github.com/clduab11/vibestack-backend/internal/database"
	"github.com/clduab11/vibestack-backend/internal/models"
	"github.com/google/uuid"
)

// SeedAchievements installs the static achievement definitions. Idempotent:
// existing codes are left untouched.
func SeedAchievements() {
	log.Println("Seeding achievement definitions...")

	achievements := []models.Achievement{
		{
			Code:        "first_completion",
			Name:        "First Step",
			Description: "Logged your first habit completion.",
			Icon:        "footprints",
			Criteria:    models.CriteriaTotalCompletions,
			Threshold:   1,
		},
		{
			Code:        "50_completions",
			Name:        "Habit Builder",
			Description: "Logged 50 completions across all habits.",
			Icon:        "hammer",
			Criteria:    models.CriteriaTotalCompletions,
			Threshold:   50,
		},
		{
			Code:        "365_completions",
			Name:        "Year of Work",
			Description: "Logged 365 completions across all habits.",
			Icon:        "calendar",
			Criteria:    models.CriteriaTotalCompletions,
			Threshold:   365,
		},
		{
			Code:        "streak_7",
			Name:        "One Week Strong",
			Description: "Kept a streak alive for 7 periods.",
			Icon:        "flame",
			Criteria:    models.CriteriaCurrentStreak,
			Threshold:   7,
		},
		{
			Code:        "streak_30",
			Name:        "Monthly Momentum",
			Description: "Kept a streak alive for 30 periods.",
			Icon:        "zap",
			Criteria:    models.CriteriaCurrentStreak,
			Threshold:   30,
		},
		{
			Code:        "longest_streak_100",
			Name:        "Century Club",
			Description: "Reached a best streak of 100 periods.",
			Icon:        "trophy",
			Criteria:    models.CriteriaLongestStreak,
			Threshold:   100,
		},
		{
			Code:        "first_challenge",
			Name:        "Challenger",
			Description: "Joined your first challenge.",
			Icon:        "swords",
			Criteria:    models.CriteriaChallengesJoined,
			Threshold:   1,
		},
		{
			Code:        "5_challenges",
			Name:        "Competitor",
			Description: "Joined 5 challenges.",
			Icon:        "medal",
			Criteria:    models.CriteriaChallengesJoined,
			Threshold:   5,
		},
		{
			Code:        "first_win",
			Name:        "Champion",
			Description: "Hit the target in a completed challenge.",
			Icon:        "crown",
			Criteria:    models.CriteriaChallengesWon,
			Threshold:   1,
		},
	}

	for _, a := range achievements {
		var existing models.Achievement
		if err := database.DB.Where("code = ?", a.Code).First(&existing).Error; err == nil {
			continue
		}

		a.ID = uuid.New().String()
		if err := database.DB.Create(&a).Error; err != nil {
			log.Printf("Failed to seed achievement %s: %v", a.Code, err)
		} else {
			log.Printf("Achievement defined: %s", a.Name)
		}
	}
}
