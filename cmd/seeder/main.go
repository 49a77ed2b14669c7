package main

import (
	"log"

	"github.com/clduab11/vibestack-backend/internal/config"
	"github.com/clduab11/vibestack-backend/internal/database"
	"github.com/clduab11/vibestack-backend/internal/models"
	"github.com/clduab11/vibestack-backend/internal/seeds"
)

// Standalone seeder: runs migrations and installs achievement definitions.
// Safe to re-run against a live database.
func main() {
	config.LoadConfig()
	database.Connect()

	log.Println("Running migrations...")
	if err := database.DB.AutoMigrate(
		&models.User{},
		&models.Habit{},
		&models.ProgressRecord{},
		&models.Challenge{},
		&models.ChallengeParticipant{},
		&models.ChallengeInvite{},
		&models.Friendship{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	seeds.SeedAchievements()
	log.Println("Seeding complete")
}
