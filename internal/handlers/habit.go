package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/clduab11/vibestack-backend/internal/database"
	"github.com/clduab11/vibestack-backend/internal/models"
	"github.com/clduab11/vibestack-backend/internal/services"
	apperrors "github.com/clduab11/vibestack-backend/pkg/errors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type habitRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Frequency   string  `json:"frequency"`
	TargetValue float64 `json:"target_value"`
	TargetType  string  `json:"target_type"`
}

// CreateHabit handles POST /habits
func CreateHabit(c *gin.Context) {
	userID := c.GetString("userId")

	var req habitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	frequency := models.HabitFrequency(req.Frequency)
	if frequency == "" {
		frequency = models.FrequencyDaily
	}
	if !frequency.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Frequency must be daily, weekly or monthly"})
		return
	}

	targetType := models.TargetType(req.TargetType)
	if targetType == "" {
		targetType = models.TargetBoolean
	}
	if !targetType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Target type must be count, duration or boolean"})
		return
	}

	targetValue := req.TargetValue
	if targetValue == 0 {
		targetValue = 1
	}
	if targetValue < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Target value must be positive"})
		return
	}

	habit := models.Habit{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Frequency:   frequency,
		TargetValue: targetValue,
		TargetType:  targetType,
		IsActive:    true,
	}
	if err := database.DB.Create(&habit).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create habit"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"habit": habit})
}

// ListHabits handles GET /habits
func ListHabits(c *gin.Context) {
	userID := c.GetString("userId")

	var habits []models.Habit
	if err := database.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&habits).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list habits"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"habits": habits})
}

// GetHabit handles GET /habits/:id
func GetHabit(c *gin.Context) {
	habit, ok := ownedHabit(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"habit": habit})
}

// UpdateHabit handles PUT /habits/:id (owner only)
func UpdateHabit(c *gin.Context) {
	habit, ok := ownedHabit(c)
	if !ok {
		return
	}

	var req struct {
		Name        *string  `json:"name"`
		Description *string  `json:"description"`
		TargetValue *float64 `json:"target_value"`
		IsActive    *bool    `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.TargetValue != nil {
		if *req.TargetValue <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Target value must be positive"})
			return
		}
		updates["target_value"] = *req.TargetValue
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := database.DB.Model(habit).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update habit"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"habit": habit})
}

// DeleteHabit handles DELETE /habits/:id. Soft-deletes so completion history
// and streak attribution survive.
func DeleteHabit(c *gin.Context) {
	habit, ok := ownedHabit(c)
	if !ok {
		return
	}

	if err := database.DB.Delete(habit).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete habit"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Habit deleted"})
}

type progressRequest struct {
	Value float64 `json:"value"`
	Date  string  `json:"date"`
	Notes string  `json:"notes"`
}

// RecordProgress handles POST /habits/:id/progress
func RecordProgress(c *gin.Context) {
	userID := c.GetString("userId")
	habitID := c.Param("id")

	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var date time.Time
	if req.Date != "" {
		parsed, err := parseDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Date must be YYYY-MM-DD or RFC3339"})
			return
		}
		date = parsed
	}

	result, err := services.RecordProgress(services.RecordProgressInput{
		HabitID: habitID,
		UserID:  userID,
		Date:    date,
		Value:   req.Value,
		Notes:   req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"record":  result.Record,
		"streak":  result.Streak,
		"created": result.Created,
	})
}

// GetStreak handles GET /habits/:id/streak
func GetStreak(c *gin.Context) {
	userID := c.GetString("userId")
	habitID := c.Param("id")

	snap, err := services.GetHabitStreak(habitID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"streak": snap})
}

// ListProgress handles GET /habits/:id/progress?from&to
func ListProgress(c *gin.Context) {
	habit, ok := ownedHabit(c)
	if !ok {
		return
	}

	query := database.DB.Where("habit_id = ?", habit.ID)
	if from := c.Query("from"); from != "" {
		if t, err := parseDate(from); err == nil {
			query = query.Where("date >= ?", t)
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := parseDate(to); err == nil {
			query = query.Where("date <= ?", t)
		}
	}

	var records []models.ProgressRecord
	if err := query.Order("date ASC").Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list progress"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records})
}

func ownedHabit(c *gin.Context) (*models.Habit, bool) {
	userID := c.GetString("userId")

	var habit models.Habit
	if err := database.DB.First(&habit, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Habit not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load habit"})
		}
		return nil, false
	}
	if habit.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not own this habit"})
		return nil, false
	}
	return &habit, true
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// respondError maps AppError to its status; everything else is a 500.
func respondError(c *gin.Context, err error) {
	if appErr, ok := err.(*apperrors.AppError); ok {
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
