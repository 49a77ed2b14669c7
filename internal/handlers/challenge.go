package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/clduab11/vibestack-backend/internal/database"
	"github.com/clduab11/vibestack-backend/internal/models"
	"github.com/clduab11/vibestack-backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type challengeRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	HabitID     *string `json:"habit_id"`
	Type        string  `json:"type" binding:"required"`
	TargetValue float64 `json:"target_value"`
	StartDate   string  `json:"start_date" binding:"required"`
	EndDate     string  `json:"end_date" binding:"required"`
	Visibility  string  `json:"visibility"`
	Capacity    *int    `json:"capacity"`
}

// CreateChallenge handles POST /social/challenges
func CreateChallenge(c *gin.Context) {
	userID := c.GetString("userId")

	var req challengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD or RFC3339"})
		return
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD or RFC3339"})
		return
	}

	challenge, err := services.CreateChallenge(userID, services.CreateChallengeInput{
		Name:        req.Name,
		Description: req.Description,
		HabitID:     req.HabitID,
		Type:        models.ChallengeType(req.Type),
		TargetValue: req.TargetValue,
		StartDate:   startDate,
		EndDate:     endDate,
		Visibility:  models.Visibility(req.Visibility),
		Capacity:    req.Capacity,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"challenge": challenge})
}

// ListChallenges handles GET /social/challenges: public challenges plus, for
// authenticated callers, everything they created, joined or were invited to.
func ListChallenges(c *gin.Context) {
	userID := c.GetString("userId")

	query := database.DB.Model(&models.Challenge{}).Where("cancelled_at IS NULL")
	if userID == "" {
		query = query.Where("visibility = ?", models.VisibilityPublic)
	} else {
		query = query.Where(
			"visibility = ? OR creator_id = ?"+
				" OR id IN (SELECT challenge_id FROM challenge_participants WHERE user_id = ?)"+
				" OR id IN (SELECT challenge_id FROM challenge_invites WHERE invitee_id = ?)",
			models.VisibilityPublic, userID, userID, userID,
		)
	}

	var challenges []models.Challenge
	if err := query.Order("start_date ASC").Find(&challenges).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list challenges"})
		return
	}

	now := time.Now()
	type challengeView struct {
		models.Challenge
		Status models.ChallengeStatus `json:"status"`
	}
	views := make([]challengeView, 0, len(challenges))
	for _, ch := range challenges {
		views = append(views, challengeView{Challenge: ch, Status: ch.Status(now)})
	}

	c.JSON(http.StatusOK, gin.H{"challenges": views})
}

// GetChallenge handles GET /social/challenges/:id
func GetChallenge(c *gin.Context) {
	userID := c.GetString("userId")

	var challenge models.Challenge
	if err := database.DB.First(&challenge, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Challenge not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load challenge"})
		}
		return
	}

	if challenge.Visibility == models.VisibilityPrivate && !canViewPrivate(challenge, userID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Challenge not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenge": challenge,
		"status":    challenge.Status(time.Now()),
		"seq":       services.ChannelSequence(challenge.ID),
	})
}

// JoinChallenge handles POST /social/challenges/:id/join
func JoinChallenge(c *gin.Context) {
	userID := c.GetString("userId")

	participant, err := services.JoinChallenge(c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"participant": participant})
}

// LeaveChallenge handles POST /social/challenges/:id/leave
func LeaveChallenge(c *gin.Context) {
	userID := c.GetString("userId")

	if err := services.LeaveChallenge(c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Left challenge"})
}

// CancelChallenge handles DELETE /social/challenges/:id
func CancelChallenge(c *gin.Context) {
	userID := c.GetString("userId")

	if err := services.CancelChallenge(c.Param("id"), userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Challenge cancelled"})
}

// UpdateChallengeProgress handles PUT /social/challenges/:id/progress.
// Applies a manual score delta for the caller (custom challenges) and returns
// the caller's fragment of the refreshed rank snapshot.
func UpdateChallengeProgress(c *gin.Context) {
	userID := c.GetString("userId")
	challengeID := c.Param("id")

	var req struct {
		Progress float64 `json:"progress" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "progress is required"})
		return
	}
	if req.Progress < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "progress must be non-negative"})
		return
	}

	var challenge models.Challenge
	if err := database.DB.First(&challenge, "id = ?", challengeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Challenge not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load challenge"})
		}
		return
	}
	if challenge.Visibility == models.VisibilityPrivate && !canViewPrivate(challenge, userID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Challenge not found"})
		return
	}
	if challenge.Status(time.Now()) != models.ChallengeActive {
		c.JSON(http.StatusConflict, gin.H{"error": "Challenge is not active"})
		return
	}

	snap, err := services.ApplyProgressDelta(challengeID, userID, req.Progress)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rank": snap})
}

// GetChallengeLeaderboard handles GET /social/challenges/:id/leaderboard?limit&offset.
// Private boards are invisible to outsiders, same as the challenge itself.
func GetChallengeLeaderboard(c *gin.Context) {
	userID := c.GetString("userId")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var challenge models.Challenge
	if err := database.DB.First(&challenge, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Challenge not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load challenge"})
		}
		return
	}
	if challenge.Visibility == models.VisibilityPrivate && !canViewPrivate(challenge, userID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Challenge not found"})
		return
	}

	entries, err := services.GetLeaderboard(c.Param("id"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard": entries,
		"limit":       limit,
		"offset":      offset,
		"seq":         services.ChannelSequence(c.Param("id")),
	})
}

// InviteToChallenge handles POST /social/challenges/:id/invite
func InviteToChallenge(c *gin.Context) {
	userID := c.GetString("userId")

	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	invite, err := services.InviteToChallenge(c.Param("id"), userID, req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"invite": invite})
}

// RespondToInvite handles POST /social/invites/:id/respond
func RespondToInvite(c *gin.Context) {
	userID := c.GetString("userId")

	var req struct {
		Accept bool `json:"accept"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	participant, err := services.RespondToInvite(c.Param("id"), userID, req.Accept)
	if err != nil {
		respondError(c, err)
		return
	}

	if participant == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Invite declined"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"participant": participant})
}

func canViewPrivate(challenge models.Challenge, userID string) bool {
	if userID == "" {
		return false
	}
	if challenge.CreatorID == userID {
		return true
	}

	var count int64
	database.DB.Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ? AND user_id = ?", challenge.ID, userID).
		Count(&count)
	if count > 0 {
		return true
	}

	database.DB.Model(&models.ChallengeInvite{}).
		Where("challenge_id = ? AND invitee_id = ?", challenge.ID, userID).
		Count(&count)
	return count > 0
}
