package routes

import (
	"time"

	"github.com/clduab11/vibestack-backend/internal/handlers"
	"github.com/clduab11/vibestack-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

func RegisterHabitRoutes(r gin.IRouter) {
	habits := r.Group("/habits")
	habits.Use(middleware.AuthMiddleware())
	{
		habits.POST("", handlers.CreateHabit)
		habits.GET("", handlers.ListHabits)
		habits.GET("/:id", handlers.GetHabit)
		habits.PUT("/:id", handlers.UpdateHabit)
		habits.DELETE("/:id", handlers.DeleteHabit)

		// Progress writes get both the per-IP limiter and a per-user Redis quota
		habits.POST("/:id/progress",
			middleware.ProgressRateLimit(),
			middleware.UserQuota("progress", 60, time.Minute),
			handlers.RecordProgress)
		habits.GET("/:id/progress", handlers.ListProgress)
		habits.GET("/:id/streak", handlers.GetStreak)
	}
}
