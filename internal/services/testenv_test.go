package services

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clduab11/vibestack-backend/internal/config"
	"github.com/clduab11/vibestack-backend/internal/database"
	"github.com/clduab11/vibestack-backend/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBSeq int64

// setupTestDB gives each test a fresh in-memory database behind the package
// globals, the same way the production wiring reaches it.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	config.AppConfig = &config.Config{JWTSecret: "test_secret_key_12345"}
	database.Redis = nil

	dsn := fmt.Sprintf("file:services_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to access sql.DB: %v", err)
	}
	// A single connection serializes concurrent test writers the way SQLite
	// requires, without "database is locked" errors.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
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
		t.Fatalf("Failed to migrate test DB: %v", err)
	}

	database.DB = db

	// Drop anything an earlier test left queued; those events reference rows
	// in a database that no longer exists.
	DiscardProgressEvents()

	return db
}

func createTestUser(t *testing.T, username string) models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@test.com",
		Name:     username,
		Timezone: "UTC",
	}
	if err := database.DB.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return user
}

func createTestHabit(t *testing.T, userID string, freq models.HabitFrequency) models.Habit {
	t.Helper()
	habit := models.Habit{
		UserID:      userID,
		Name:        "Morning run",
		Frequency:   freq,
		TargetValue: 1,
		TargetType:  models.TargetBoolean,
		IsActive:    true,
	}
	if err := database.DB.Create(&habit).Error; err != nil {
		t.Fatalf("Failed to create habit: %v", err)
	}
	return habit
}

func createTestChallenge(t *testing.T, creatorID string, typ models.ChallengeType, habitID *string, capacity *int) models.Challenge {
	t.Helper()
	challenge, err := CreateChallenge(creatorID, CreateChallengeInput{
		Name:        "Test challenge",
		Type:        typ,
		HabitID:     habitID,
		TargetValue: 100,
		StartDate:   time.Now().Add(-24 * time.Hour),
		EndDate:     time.Now().Add(7 * 24 * time.Hour),
		Capacity:    capacity,
	})
	if err != nil {
		t.Fatalf("Failed to create challenge: %v", err)
	}
	return *challenge
}
