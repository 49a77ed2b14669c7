package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/clduab11/vibestack-backend/internal/database"
	"github.com/clduab11/vibestack-backend/internal/models"
	"github.com/clduab11/vibestack-backend/internal/services"
	"github.com/stretchr/testify/assert"
)

// TestHabitChallengeFullFlow walks the whole pipeline end to end: habit
// creation, a week of daily completions, challenge scoring driven by those
// completions, leaderboard ranking and achievement unlocks.
func TestHabitChallengeFullFlow(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()

	alice, aliceToken := createTestUser(t, "alice")
	bob, bobToken := createTestUser(t, "bob")

	// 1. Alice creates a daily habit.
	w := performRequest(r, "POST", "/api/habits", map[string]interface{}{
		"name":      "Exercise",
		"frequency": "daily",
	}, aliceToken)
	assert.Equal(t, http.StatusCreated, w.Code)
	habitID := decodeBody(t, w)["habit"].(map[string]interface{})["id"].(string)

	// 2. Alice creates a completion-count challenge linked to the habit.
	w = performRequest(r, "POST", "/api/social/challenges", map[string]interface{}{
		"name":         "7 days of sweat",
		"type":         "total_completions",
		"habit_id":     habitID,
		"target_value": 10,
		"start_date":   time.Now().AddDate(0, 0, -8).Format(time.RFC3339),
		"end_date":     time.Now().AddDate(0, 0, 2).Format(time.RFC3339),
	}, aliceToken)
	assert.Equal(t, http.StatusCreated, w.Code)
	challengeID := decodeBody(t, w)["challenge"].(map[string]interface{})["id"].(string)

	// 3. Bob joins.
	w = performRequest(r, "POST", "/api/social/challenges/"+challengeID+"/join", nil, bobToken)
	assert.Equal(t, http.StatusCreated, w.Code)

	// 4. Alice logs seven consecutive days ending today.
	for off := -6; off <= 0; off++ {
		day := time.Now().UTC().AddDate(0, 0, off).Format("2006-01-02")
		w = performRequest(r, "POST", "/api/habits/"+habitID+"/progress", map[string]interface{}{
			"value": 1,
			"date":  day,
		}, aliceToken)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, true, decodeBody(t, w)["created"])
	}
	services.DrainProgressEvents()

	// 5. The streak reflects the unbroken week.
	w = performRequest(r, "GET", "/api/habits/"+habitID+"/streak", nil, aliceToken)
	assert.Equal(t, http.StatusOK, w.Code)
	streak := decodeBody(t, w)["streak"].(map[string]interface{})
	assert.EqualValues(t, 7, streak["currentStreak"])
	assert.EqualValues(t, 7, streak["longestStreak"])
	assert.EqualValues(t, 7, streak["totalCompletions"])

	// 6. Every completion counted exactly once on the leaderboard.
	w = performRequest(r, "GET", "/api/social/challenges/"+challengeID+"/leaderboard", nil, bobToken)
	assert.Equal(t, http.StatusOK, w.Code)
	board := decodeBody(t, w)["leaderboard"].([]interface{})
	if assert.Len(t, board, 2) {
		top := board[0].(map[string]interface{})
		assert.Equal(t, alice.ID, top["userId"])
		assert.EqualValues(t, 7, top["score"])
		assert.EqualValues(t, 1, top["rank"])

		second := board[1].(map[string]interface{})
		assert.Equal(t, bob.ID, second["userId"])
		assert.EqualValues(t, 0, second["score"])
	}

	// 7. Replaying today's completion changes nothing downstream.
	today := time.Now().UTC().Format("2006-01-02")
	w = performRequest(r, "POST", "/api/habits/"+habitID+"/progress", map[string]interface{}{
		"value": 1,
		"date":  today,
	}, aliceToken)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["created"])
	services.DrainProgressEvents()

	var aliceScore models.ChallengeParticipant
	assert.NoError(t, database.DB.Where("challenge_id = ? AND user_id = ?", challengeID, alice.ID).
		First(&aliceScore).Error)
	assert.Equal(t, 7.0, aliceScore.Score)

	var recordCount int64
	database.DB.Model(&models.ProgressRecord{}).Where("habit_id = ?", habitID).Count(&recordCount)
	assert.EqualValues(t, 7, recordCount)

	// 8. The week earned Alice her seeded achievements.
	var codes []string
	database.DB.Model(&models.UserAchievement{}).
		Joins("JOIN achievements ON achievements.id = user_achievements.achievement_id").
		Where("user_achievements.user_id = ?", alice.ID).
		Pluck("achievements.code", &codes)
	assert.Contains(t, codes, "first_completion")
	assert.Contains(t, codes, "streak_7")
	assert.Contains(t, codes, "first_challenge")

	// And the unlocks landed in her notification feed.
	w = performRequest(r, "GET", "/api/notifications", nil, aliceToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["notifications"])
}
