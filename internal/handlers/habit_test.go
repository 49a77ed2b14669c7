package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHabitLifecycle(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	_, token := createTestUser(t, "habit_owner")

	// Unauthenticated requests are rejected outright.
	w := performRequest(r, "GET", "/api/habits", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Create
	w = performRequest(r, "POST", "/api/habits", map[string]interface{}{
		"name":        "Read",
		"description": "20 pages a day",
		"frequency":   "daily",
		"target_type": "count",
	}, token)
	assert.Equal(t, http.StatusCreated, w.Code)
	habit := decodeBody(t, w)["habit"].(map[string]interface{})
	habitID := habit["id"].(string)
	assert.NotEmpty(t, habitID)
	assert.Equal(t, "daily", habit["frequency"])

	// Invalid frequency is a 400.
	w = performRequest(r, "POST", "/api/habits", map[string]interface{}{
		"name":      "Bad",
		"frequency": "hourly",
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// List
	w = performRequest(r, "GET", "/api/habits", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)
	habits := decodeBody(t, w)["habits"].([]interface{})
	assert.Len(t, habits, 1)

	// Update
	w = performRequest(r, "PUT", "/api/habits/"+habitID, map[string]interface{}{
		"name": "Read more",
	}, token)
	assert.Equal(t, http.StatusOK, w.Code)

	// Soft delete hides the habit from later reads.
	w = performRequest(r, "DELETE", "/api/habits/"+habitID, nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, "GET", "/api/habits/"+habitID, nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordProgressEndpoint(t *testing.T) {
	setupTestDB(t)
	r := setupRouter()
	_, token := createTestUser(t, "progress_owner")
	_, otherToken := createTestUser(t, "progress_other")

	w := performRequest(r, "POST", "/api/habits", map[string]interface{}{
		"name": "Meditate",
	}, token)
	assert.Equal(t, http.StatusCreated, w.Code)
	habitID := decodeBody(t, w)["habit"].(map[string]interface{})["id"].(string)

	today := time.Now().UTC().Format("2006-01-02")

	// First write creates the record.
	w = performRequest(r, "POST", "/api/habits/"+habitID+"/progress", map[string]interface{}{
		"value": 1,
		"date":  today,
	}, token)
	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["created"])
	recordID := body["record"].(map[string]interface{})["id"].(string)

	// The retry lands on the same row.
	w = performRequest(r, "POST", "/api/habits/"+habitID+"/progress", map[string]interface{}{
		"value": 1,
		"date":  today,
	}, token)
	assert.Equal(t, http.StatusCreated, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, false, body["created"])
	assert.Equal(t, recordID, body["record"].(map[string]interface{})["id"])

	// Someone else's token cannot write to this habit.
	w = performRequest(r, "POST", "/api/habits/"+habitID+"/progress", map[string]interface{}{
		"value": 1,
	}, otherToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Garbage dates are rejected before touching the ledger.
	w = performRequest(r, "POST", "/api/habits/"+habitID+"/progress", map[string]interface{}{
		"value": 1,
		"date":  "not-a-date",
	}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Streak reflects the single completed day.
	w = performRequest(r, "GET", "/api/habits/"+habitID+"/streak", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)
	streak := decodeBody(t, w)["streak"].(map[string]interface{})
	assert.EqualValues(t, 1, streak["currentStreak"])
	assert.EqualValues(t, 1, streak["totalCompletions"])

	// And the history endpoint returns the one record.
	w = performRequest(r, "GET", "/api/habits/"+habitID+"/progress", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)
	records := decodeBody(t, w)["records"].([]interface{})
	assert.Len(t, records, 1)
}
