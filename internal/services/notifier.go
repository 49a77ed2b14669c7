package services

import (
	"github.com/clduab11/vibestack-backend/internal/database"
	"github.com/clduab11/vibestack-backend/internal/models"
	"github.com/clduab11/vibestack-backend/pkg/logger"
)

// Notify persists a notification row and pushes it to the recipient's personal
// channel. Push/email fan-out beyond that is the external dispatch
// collaborator's responsibility, keyed off the same rows.
//
// Failures are logged and swallowed: notification delivery must never fail the
// operation that triggered it.
func Notify(n models.Notification) {
	if err := database.DB.Create(&n).Error; err != nil {
		logger.Error().Err(err).
			Str("user_id", n.UserID).
			Str("type", string(n.Type)).
			Msg("Failed to persist notification")
		return
	}

	PublishToUser(n.UserID, EventNotification, n)
}
