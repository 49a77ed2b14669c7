package services

import (
	"fmt"
	"time"

	"github.com/clduab11/vibestack-backend/internal/database"
	"github.com/clduab11/vibestack-backend/internal/models"
	"gorm.io/gorm/clause"
)

// CheckAchievements evaluates every seeded achievement against a freshly
// computed statistics snapshot and unlocks the ones that newly qualify.
//
// The insert is guarded by the (user, achievement) composite primary key, so
// evaluating twice for the same trigger yields no duplicate unlock — the call
// is safe to retry from the side-effect queue.
func CheckAchievements(userID string) ([]models.Achievement, error) {
	var newAchievements []models.Achievement

	// 1. Achievements already unlocked
	var unlockedIDs []string
	database.DB.Model(&models.UserAchievement{}).
		Where("user_id = ?", userID).
		Pluck("achievement_id", &unlockedIDs)

	unlockedSet := make(map[string]bool, len(unlockedIDs))
	for _, id := range unlockedIDs {
		unlockedSet[id] = true
	}

	// 2. Statistics snapshot
	stats, err := computeUserStats(userID)
	if err != nil {
		return nil, err
	}

	// 3. Definitions
	var definitions []models.Achievement
	if err := database.DB.Find(&definitions).Error; err != nil {
		return nil, err
	}

	// 4. Evaluate
	for _, def := range definitions {
		if unlockedSet[def.ID] {
			continue
		}

		progress, ok := stats[def.Criteria]
		if !ok || progress < int64(def.Threshold) {
			continue
		}

		unlock := models.UserAchievement{
			UserID:        userID,
			AchievementID: def.ID,
			UnlockedAt:    time.Now(),
		}
		res := database.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&unlock)
		if res.Error != nil {
			return newAchievements, res.Error
		}
		if res.RowsAffected == 0 {
			// A concurrent evaluation already unlocked it.
			continue
		}

		newAchievements = append(newAchievements, def)

		Notify(models.Notification{
			UserID:  userID,
			Type:    models.NotificationTypeAchievement,
			Message: fmt.Sprintf("You unlocked %q", def.Name),
		})
		PublishToUser(userID, EventAchievementUnlocked, map[string]interface{}{
			"achievementId": def.ID,
			"code":          def.Code,
			"name":          def.Name,
		})
	}

	return newAchievements, nil
}

// computeUserStats aggregates the values achievement criteria are judged
// against. Streak numbers are the best across all of the user's habits,
// derived from the ledger rather than read from a mutable counter.
func computeUserStats(userID string) (map[models.AchievementCriteria]int64, error) {
	var totalCompletions int64
	if err := database.DB.Model(&models.ProgressRecord{}).
		Where("user_id = ?", userID).
		Count(&totalCompletions).Error; err != nil {
		return nil, err
	}

	var habits []models.Habit
	if err := database.DB.Where("user_id = ?", userID).Find(&habits).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	var bestCurrent, bestLongest int64
	for _, habit := range habits {
		snap, err := ComputeHabitStreak(habit, userID, now)
		if err != nil {
			return nil, err
		}
		if int64(snap.CurrentStreak) > bestCurrent {
			bestCurrent = int64(snap.CurrentStreak)
		}
		if int64(snap.LongestStreak) > bestLongest {
			bestLongest = int64(snap.LongestStreak)
		}
	}

	var challengesJoined int64
	if err := database.DB.Model(&models.ChallengeParticipant{}).
		Where("user_id = ?", userID).
		Count(&challengesJoined).Error; err != nil {
		return nil, err
	}

	// Won = completed challenge where the participant hit the target.
	var challengesWon int64
	if err := database.DB.Model(&models.ChallengeParticipant{}).
		Joins("JOIN challenges ON challenges.id = challenge_participants.challenge_id").
		Where("challenge_participants.user_id = ?", userID).
		Where("challenges.end_date < ? AND challenges.cancelled_at IS NULL", now).
		Where("challenge_participants.score >= challenges.target_value").
		Count(&challengesWon).Error; err != nil {
		return nil, err
	}

	return map[models.AchievementCriteria]int64{
		models.CriteriaCurrentStreak:    bestCurrent,
		models.CriteriaLongestStreak:    bestLongest,
		models.CriteriaTotalCompletions: totalCompletions,
		models.CriteriaChallengesJoined: challengesJoined,
		models.CriteriaChallengesWon:    challengesWon,
	}, nil
}
