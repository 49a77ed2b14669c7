package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/clduab11/vibestack-backend/internal/database"
	"github.com/clduab11/vibestack-backend/internal/models"
	"github.com/clduab11/vibestack-backend/internal/services"
	"github.com/stretchr/testify/assert"
)

func TestChallengeFlow(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	_, hostToken := createTestUser(t, "flow_host")
	rival, rivalToken := createTestUser(t, "flow_rival")

	// Host creates a running public challenge.
	w := performRequest(r, "POST", "/api/social/challenges", map[string]interface{}{
		"name":         "Spring sprint",
		"type":         "points",
		"target_value": 100,
		"start_date":   time.Now().Add(-time.Hour).Format(time.RFC3339),
		"end_date":     time.Now().Add(7 * 24 * time.Hour).Format(time.RFC3339),
	}, hostToken)
	assert.Equal(t, http.StatusCreated, w.Code)
	challengeID := decodeBody(t, w)["challenge"].(map[string]interface{})["id"].(string)

	// Anyone can read a public challenge; status is derived.
	w = performRequest(r, "GET", "/api/social/challenges/"+challengeID, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "active", decodeBody(t, w)["status"])

	// Rival joins once, then hits the duplicate guard.
	w = performRequest(r, "POST", "/api/social/challenges/"+challengeID+"/join", nil, rivalToken)
	assert.Equal(t, http.StatusCreated, w.Code)
	participant := decodeBody(t, w)["participant"].(map[string]interface{})
	assert.Equal(t, rival.ID, participant["userId"])

	w = performRequest(r, "POST", "/api/social/challenges/"+challengeID+"/join", nil, rivalToken)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Manual progress moves the rival up the board.
	w = performRequest(r, "PUT", "/api/social/challenges/"+challengeID+"/progress", map[string]interface{}{
		"progress": 5,
	}, rivalToken)
	assert.Equal(t, http.StatusOK, w.Code)
	rank := decodeBody(t, w)["rank"].(map[string]interface{})
	assert.EqualValues(t, 1, rank["rank"])
	assert.EqualValues(t, 5, rank["score"])

	w = performRequest(r, "GET", "/api/social/challenges/"+challengeID+"/leaderboard", nil, rivalToken)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	board := body["leaderboard"].([]interface{})
	if assert.Len(t, board, 2) {
		top := board[0].(map[string]interface{})
		assert.Equal(t, rival.ID, top["userId"])
		assert.EqualValues(t, 5, top["score"])
	}
	// Broadcast sequence advanced with the join and the score update.
	assert.GreaterOrEqual(t, body["seq"].(float64), 2.0)

	// A running challenge cannot be cancelled.
	w = performRequest(r, "DELETE", "/api/social/challenges/"+challengeID, nil, hostToken)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Rival bows out.
	w = performRequest(r, "POST", "/api/social/challenges/"+challengeID+"/leave", nil, rivalToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, "GET", "/api/social/challenges/"+challengeID+"/leaderboard", nil, hostToken)
	assert.Equal(t, http.StatusOK, w.Code)
	board = decodeBody(t, w)["leaderboard"].([]interface{})
	assert.Len(t, board, 1)
}

func TestChallengeValidationAtTheEdge(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	_, token := createTestUser(t, "edge_host")

	// Missing required fields fail binding.
	w := performRequest(r, "POST", "/api/social/challenges", map[string]interface{}{
		"name": "No dates",
		"type": "points",
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Progress requires a payload.
	w = performRequest(r, "PUT", "/api/social/challenges/some-id/progress", map[string]interface{}{}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPrivateChallengeVisibility(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	creator, creatorToken := createTestUser(t, "private_host")
	_, strangerToken := createTestUser(t, "private_stranger")

	challenge, err := services.CreateChallenge(creator.ID, services.CreateChallengeInput{
		Name:        "Secret society",
		Type:        models.ChallengePoints,
		TargetValue: 10,
		StartDate:   time.Now().Add(-time.Hour),
		EndDate:     time.Now().Add(24 * time.Hour),
		Visibility:  models.VisibilityPrivate,
	})
	assert.NoError(t, err)

	// Private challenges 404 for outsiders rather than admitting they exist.
	w := performRequest(r, "GET", "/api/social/challenges/"+challenge.ID, nil, strangerToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = performRequest(r, "GET", "/api/social/challenges/"+challenge.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(r, "GET", "/api/social/challenges/"+challenge.ID, nil, creatorToken)
	assert.Equal(t, http.StatusOK, w.Code)

	// The leaderboard and progress routes hide private challenges the same way.
	w = performRequest(r, "GET", "/api/social/challenges/"+challenge.ID+"/leaderboard", nil, strangerToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = performRequest(r, "PUT", "/api/social/challenges/"+challenge.ID+"/progress", map[string]interface{}{
		"progress": 5,
	}, strangerToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(r, "GET", "/api/social/challenges/"+challenge.ID+"/leaderboard", nil, creatorToken)
	assert.Equal(t, http.StatusOK, w.Code)

	// Listings follow the same rule.
	w = performRequest(r, "GET", "/api/social/challenges", nil, strangerToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeBody(t, w)["challenges"])

	w = performRequest(r, "GET", "/api/social/challenges", nil, creatorToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["challenges"].([]interface{}), 1)
}

func TestInviteEndpoints(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	host, hostToken := createTestUser(t, "invite_api_host")
	friend, friendToken := createTestUser(t, "invite_api_friend")

	assert.NoError(t, setupFriendship(host.ID, friend.ID))

	challenge, err := services.CreateChallenge(host.ID, services.CreateChallengeInput{
		Name:        "Friends only",
		Type:        models.ChallengePoints,
		TargetValue: 10,
		StartDate:   time.Now().Add(-time.Hour),
		EndDate:     time.Now().Add(24 * time.Hour),
		Visibility:  models.VisibilityPrivate,
	})
	assert.NoError(t, err)

	w := performRequest(r, "POST", "/api/social/challenges/"+challenge.ID+"/invite", map[string]interface{}{
		"user_id": friend.ID,
	}, hostToken)
	assert.Equal(t, http.StatusCreated, w.Code)
	inviteID := decodeBody(t, w)["invite"].(map[string]interface{})["id"].(string)

	// The invitee sees the notification.
	w = performRequest(r, "GET", "/api/notifications", nil, friendToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["notifications"])

	// Accepting lands the friend in the challenge.
	w = performRequest(r, "POST", "/api/social/invites/"+inviteID+"/respond", map[string]interface{}{
		"accept": true,
	}, friendToken)
	assert.Equal(t, http.StatusOK, w.Code)
	participant := decodeBody(t, w)["participant"].(map[string]interface{})
	assert.Equal(t, friend.ID, participant["userId"])
}

func setupFriendship(userID, friendID string) error {
	return database.DB.Create(&models.Friendship{
		UserID:   userID,
		FriendID: friendID,
		Status:   models.FriendshipAccepted,
	}).Error
}
