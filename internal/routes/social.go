package routes

import (
	"time"

	"github.com/clduab11/vibestack-backend/internal/handlers"
	"github.com/clduab11/vibestack-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

func RegisterSocialRoutes(r gin.IRouter) {
	social := r.Group("/social")
	{
		challenges := social.Group("/challenges")
		{
			// Listing is public; auth enriches it with private/joined challenges
			challenges.GET("", middleware.OptionalAuthMiddleware(), handlers.ListChallenges)
			challenges.GET("/:id", middleware.OptionalAuthMiddleware(), handlers.GetChallenge)

			protected := challenges.Group("")
			protected.Use(middleware.AuthMiddleware())
			{
				protected.POST("",
					middleware.ChallengeRateLimit(),
					middleware.UserQuota("challenge_create", 10, time.Hour),
					handlers.CreateChallenge)
				protected.POST("/:id/join",
					middleware.ChallengeRateLimit(),
					handlers.JoinChallenge)
				protected.POST("/:id/leave", handlers.LeaveChallenge)
				protected.DELETE("/:id", handlers.CancelChallenge)
				protected.PUT("/:id/progress", handlers.UpdateChallengeProgress)
				protected.GET("/:id/leaderboard", handlers.GetChallengeLeaderboard)
				protected.POST("/:id/invite", handlers.InviteToChallenge)
			}
		}

		invites := social.Group("/invites")
		invites.Use(middleware.AuthMiddleware())
		{
			invites.POST("/:id/respond", handlers.RespondToInvite)
		}
	}

	notifications := r.Group("/notifications")
	notifications.Use(middleware.AuthMiddleware())
	{
		notifications.GET("", handlers.ListNotifications)
		notifications.POST("/read", handlers.MarkNotificationsRead)
	}
}
