package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clduab11/vibestack-backend/internal/database"
	"github.com/clduab11/vibestack-backend/internal/models"
	apperrors "github.com/clduab11/vibestack-backend/pkg/errors"
	"github.com/clduab11/vibestack-backend/pkg/logger"
	"gorm.io/gorm"
)

type CreateChallengeInput struct {
	Name        string
	Description string
	HabitID     *string
	Type        models.ChallengeType
	TargetValue float64
	StartDate   time.Time
	EndDate     time.Time
	Visibility  models.Visibility
	Capacity    *int
}

// CreateChallenge validates the input and creates the challenge with its
// creator as participant #0, atomically.
func CreateChallenge(creatorID string, in CreateChallengeInput) (*models.Challenge, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperrors.BadRequest("Challenge name is required")
	}
	if !in.Type.Valid() {
		return nil, apperrors.BadRequest(fmt.Sprintf("Unknown challenge type: %s", in.Type))
	}
	if in.TargetValue <= 0 {
		return nil, apperrors.BadRequest("Target value must be positive")
	}
	if !in.StartDate.Before(in.EndDate) {
		return nil, apperrors.BadRequest("Start date must be before end date")
	}
	if in.EndDate.Before(time.Now()) {
		return nil, apperrors.BadRequest("End date must be in the future")
	}
	if in.Capacity != nil && *in.Capacity < 1 {
		return nil, apperrors.BadRequest("Capacity must be at least 1")
	}
	if in.HabitID != nil {
		var habit models.Habit
		if err := database.DB.First(&habit, "id = ?", *in.HabitID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("Linked habit not found")
			}
			return nil, err
		}
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}

	challenge := models.Challenge{
		CreatorID:   creatorID,
		HabitID:     in.HabitID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Type:        in.Type,
		TargetValue: in.TargetValue,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Visibility:  visibility,
		Capacity:    in.Capacity,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&challenge).Error; err != nil {
			return err
		}
		creator := models.ChallengeParticipant{
			ChallengeID: challenge.ID,
			UserID:      creatorID,
			JoinedAt:    time.Now(),
		}
		return tx.Create(&creator).Error
	})
	if err != nil {
		return nil, err
	}

	return &challenge, nil
}

// JoinChallenge admits a user into a challenge. The capacity check and the
// participant insert run inside one transaction holding the challenge row
// lock, so concurrent joins against the last open slot cannot over-admit;
// the (challenge, user) unique index backstops duplicate joins.
func JoinChallenge(challengeID, userID string) (*models.ChallengeParticipant, error) {
	var participant models.ChallengeParticipant

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var challenge models.Challenge
		if err := lockForUpdate(tx).First(&challenge, "id = ?", challengeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("Challenge not found")
			}
			return err
		}

		switch challenge.Status(time.Now()) {
		case models.ChallengeCancelled:
			return apperrors.Conflict("Challenge has been cancelled")
		case models.ChallengeCompleted:
			return apperrors.Conflict("Challenge has already ended")
		}

		var existing models.ChallengeParticipant
		err := tx.Where("challenge_id = ? AND user_id = ?", challengeID, userID).
			First(&existing).Error
		switch {
		case err == nil:
			if existing.LeftAt == nil {
				return apperrors.Conflict("Already joined this challenge")
			}
			// Rejoin: reactivate the old row, keeping earned score.
			if err := tx.Model(&existing).Update("left_at", nil).Error; err != nil {
				return err
			}
			existing.LeftAt = nil
			participant = existing
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			// fall through to admission
		default:
			return err
		}

		if challenge.Capacity != nil {
			var active int64
			if err := tx.Model(&models.ChallengeParticipant{}).
				Where("challenge_id = ? AND left_at IS NULL", challengeID).
				Count(&active).Error; err != nil {
				return err
			}
			if active >= int64(*challenge.Capacity) {
				return apperrors.Conflict("Challenge is full")
			}
		}

		participant = models.ChallengeParticipant{
			ChallengeID: challengeID,
			UserID:      userID,
			JoinedAt:    time.Now(),
		}
		if err := tx.Create(&participant).Error; err != nil {
			if isDuplicateKey(err) {
				return apperrors.Conflict("Already joined this challenge")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	Publish(challengeID, EventParticipantJoined, map[string]interface{}{
		"challengeId": challengeID,
		"userId":      userID,
	})

	return &participant, nil
}

// LeaveChallenge marks the participant as left. The row and its score stay so
// leaderboard snapshots already broadcast keep their historical attribution,
// and ranks of remaining participants stay well-ordered.
func LeaveChallenge(challengeID, userID string) error {
	now := time.Now()
	res := database.DB.Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ? AND user_id = ? AND left_at IS NULL", challengeID, userID).
		Update("left_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("Not a participant of this challenge")
	}

	invalidateLeaderboardCache(challengeID)
	Publish(challengeID, EventParticipantLeft, map[string]interface{}{
		"challengeId": challengeID,
		"userId":      userID,
	})
	return nil
}

// CancelChallenge is the only manual lifecycle transition: creator-initiated,
// and only while the challenge is still scheduled.
func CancelChallenge(challengeID, userID string) error {
	var challenge models.Challenge
	if err := database.DB.First(&challenge, "id = ?", challengeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("Challenge not found")
		}
		return err
	}
	if challenge.CreatorID != userID {
		return apperrors.Forbidden("Only the creator can cancel a challenge")
	}
	if challenge.Status(time.Now()) != models.ChallengeScheduled {
		return apperrors.Conflict("Only scheduled challenges can be cancelled")
	}

	now := time.Now()
	return database.DB.Model(&challenge).Update("cancelled_at", now).Error
}

// InviteToChallenge creates a pending invite, gated by participation and the
// friendship check (the narrow interface onto the external relationship service).
func InviteToChallenge(challengeID, inviterID, inviteeID string) (*models.ChallengeInvite, error) {
	if inviterID == inviteeID {
		return nil, apperrors.BadRequest("Cannot invite yourself")
	}

	var challenge models.Challenge
	if err := database.DB.First(&challenge, "id = ?", challengeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Challenge not found")
		}
		return nil, err
	}
	switch challenge.Status(time.Now()) {
	case models.ChallengeCancelled, models.ChallengeCompleted:
		return nil, apperrors.Conflict("Challenge is no longer joinable")
	}

	var membership models.ChallengeParticipant
	if err := database.DB.Where("challenge_id = ? AND user_id = ? AND left_at IS NULL", challengeID, inviterID).
		First(&membership).Error; err != nil {
		return nil, apperrors.Forbidden("Only participants can invite others")
	}

	if !AreFriends(inviterID, inviteeID) {
		return nil, apperrors.Forbidden("You can only invite friends")
	}

	var existingMember models.ChallengeParticipant
	if err := database.DB.Where("challenge_id = ? AND user_id = ? AND left_at IS NULL", challengeID, inviteeID).
		First(&existingMember).Error; err == nil {
		return nil, apperrors.Conflict("User is already a participant")
	}

	var pending models.ChallengeInvite
	if err := database.DB.Where("challenge_id = ? AND invitee_id = ? AND status = ?",
		challengeID, inviteeID, models.InvitePending).First(&pending).Error; err == nil {
		return nil, apperrors.Conflict("Invite already pending")
	}

	invite := models.ChallengeInvite{
		ChallengeID: challengeID,
		InviterID:   inviterID,
		InviteeID:   inviteeID,
		Status:      models.InvitePending,
	}
	if err := database.DB.Create(&invite).Error; err != nil {
		return nil, err
	}

	Notify(models.Notification{
		UserID:      inviteeID,
		ActorID:     inviterID,
		Type:        models.NotificationTypeChallengeInvite,
		ChallengeID: &challengeID,
		Message:     fmt.Sprintf("invited you to the challenge %q", challenge.Name),
	})

	return &invite, nil
}

// RespondToInvite resolves a pending invite. Accepting goes through
// JoinChallenge so capacity rules hold on this path too.
func RespondToInvite(inviteID, userID string, accept bool) (*models.ChallengeParticipant, error) {
	var invite models.ChallengeInvite
	if err := database.DB.First(&invite, "id = ?", inviteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Invite not found")
		}
		return nil, err
	}
	if invite.InviteeID != userID {
		return nil, apperrors.Forbidden("This invite is not addressed to you")
	}
	if invite.Status != models.InvitePending {
		return nil, apperrors.Conflict("Invite has already been resolved")
	}

	if !accept {
		if err := database.DB.Model(&invite).Update("status", models.InviteDeclined).Error; err != nil {
			return nil, err
		}
		return nil, nil
	}

	participant, err := JoinChallenge(invite.ChallengeID, userID)
	if err != nil {
		return nil, err
	}
	if err := database.DB.Model(&invite).Update("status", models.InviteAccepted).Error; err != nil {
		return nil, err
	}
	return participant, nil
}

// AreFriends is the boolean gate consumed from the relationship collaborator.
// Friendships are stored directionally; either direction qualifies.
func AreFriends(userID, otherID string) bool {
	var count int64
	database.DB.Model(&models.Friendship{}).
		Where("status = ?", models.FriendshipAccepted).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
			userID, otherID, otherID, userID).
		Count(&count)
	return count > 0
}

// ApplyChallengeProgress fans one progress event out to every active challenge
// the habit is linked to. The recorder emits exactly one event per ledger
// write, with deltas computed inside the recording transaction; each
// challenge's increment is applied independently so a failure on one never
// re-applies another.
func ApplyChallengeProgress(ev ProgressEvent) error {
	type linkedRow struct {
		ChallengeID string
		Type        models.ChallengeType
	}

	// ev.Date is a normalized midnight while challenge bounds are instants, so
	// the window is compared at calendar-day granularity: a challenge starting
	// mid-day still counts completions recorded for that day.
	dayStart := ev.Date
	dayEnd := ev.Date.AddDate(0, 0, 1)

	var rows []linkedRow
	err := database.DB.Model(&models.ChallengeParticipant{}).
		Select("challenge_participants.challenge_id as challenge_id, challenges.type as type").
		Joins("JOIN challenges ON challenges.id = challenge_participants.challenge_id").
		Where("challenge_participants.user_id = ? AND challenge_participants.left_at IS NULL", ev.UserID).
		Where("challenges.habit_id = ?", ev.HabitID).
		Where("challenges.cancelled_at IS NULL AND challenges.deleted_at IS NULL").
		Where("challenges.start_date < ? AND challenges.end_date >= ?", dayEnd, dayStart).
		Scan(&rows).Error
	if err != nil {
		return err
	}

	for _, row := range rows {
		var delta float64
		switch row.Type {
		case models.ChallengeTotalCompletions:
			if ev.NewCompletion {
				delta = 1
			}
		case models.ChallengeStreak:
			// Score tracks the best contiguous run; gaps never claw points back.
			delta = float64(ev.CurrentStreak - ev.PrevStreak)
			if delta < 0 {
				delta = 0
			}
		default: // points, custom
			delta = ev.ValueDelta
		}

		if delta == 0 {
			continue
		}
		if _, err := ApplyProgressDelta(row.ChallengeID, ev.UserID, delta); err != nil {
			logger.Error().Err(err).
				Str("challenge_id", row.ChallengeID).
				Str("user_id", ev.UserID).
				Msg("Failed to apply challenge delta")
		}
	}
	return nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
