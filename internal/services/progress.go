package services

import (
	"errors"
	"time"

	"github.com/clduab11/vibestack-backend/internal/database"
	"github.com/clduab11/vibestack-backend/internal/models"
	apperrors "github.com/clduab11/vibestack-backend/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RecordProgressInput struct {
	HabitID string
	UserID  string
	Date    time.Time
	Value   float64
	Notes   string
}

type RecordProgressResult struct {
	Record  *models.ProgressRecord `json:"record"`
	Streak  StreakSnapshot         `json:"streak"`
	Created bool                   `json:"created"`
}

// RecordProgress writes a completion for one (habit, user, date) key.
//
// The write is an upsert against the natural unique key, so retried client
// requests and redelivered events are idempotent by construction: the first
// call creates the row, every later call for the same date updates value/notes
// in place. The upsert and the reads feeding the challenge-score delta run in
// one transaction; concurrent submissions for the same key serialize on the
// row lock / unique index rather than interleaving.
func RecordProgress(in RecordProgressInput) (*RecordProgressResult, error) {
	if in.Value < 0 {
		return nil, apperrors.BadRequest("Progress value must be non-negative")
	}

	var habit models.Habit
	if err := database.DB.First(&habit, "id = ?", in.HabitID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Habit not found")
		}
		return nil, err
	}
	if habit.UserID != in.UserID {
		return nil, apperrors.Forbidden("You do not own this habit")
	}
	if !habit.IsActive {
		return nil, apperrors.Conflict("Habit is paused")
	}

	loc := userLocation(in.UserID)
	now := time.Now()
	date := in.Date
	if date.IsZero() {
		date = now
	}
	day := NormalizeDate(date, loc)
	today := NormalizeDate(now, loc)
	if day.After(today) {
		return nil, apperrors.BadRequest("Progress date cannot be in the future")
	}

	var (
		record        models.ProgressRecord
		prevStreak    StreakSnapshot
		newCompletion bool
		valueDelta    float64
	)

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockNaturalKey(tx, habit.ID, in.UserID, day); err != nil {
			return err
		}

		var dates []time.Time
		if err := tx.Model(&models.ProgressRecord{}).
			Where("habit_id = ? AND user_id = ?", habit.ID, in.UserID).
			Order("date ASC").
			Pluck("date", &dates).Error; err != nil {
			return err
		}
		prevStreak = ComputeStreaks(dates, habit.Frequency, now, loc)

		var existing models.ProgressRecord
		err := tx.Where("habit_id = ? AND user_id = ? AND date = ?", habit.ID, in.UserID, day).
			First(&existing).Error
		switch {
		case err == nil:
			valueDelta = in.Value - existing.Value
		case errors.Is(err, gorm.ErrRecordNotFound):
			newCompletion = true
			valueDelta = in.Value
		default:
			return err
		}

		record = models.ProgressRecord{
			HabitID: habit.ID,
			UserID:  in.UserID,
			Date:    day,
			Value:   in.Value,
			Notes:   in.Notes,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "habit_id"}, {Name: "user_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "notes", "updated_at"}),
		}).Create(&record).Error; err != nil {
			return err
		}

		// Reload so the caller sees the surviving row, not the insert attempt.
		// The conflicting insert stamped a fresh ID into record via BeforeCreate;
		// fetch by the natural key alone or the reload matches nothing.
		record = models.ProgressRecord{}
		return tx.Where("habit_id = ? AND user_id = ? AND date = ?", habit.ID, in.UserID, day).
			First(&record).Error
	})
	if err != nil {
		return nil, err
	}

	streak, err := ComputeHabitStreak(habit, in.UserID, now)
	if err != nil {
		return nil, err
	}

	// Challenge scoring and achievement checks run out-of-band; both consumers
	// are idempotent against redelivery, so the primary write never waits on them.
	EnqueueProgressEvent(ProgressEvent{
		UserID:        in.UserID,
		HabitID:       habit.ID,
		Date:          day,
		NewCompletion: newCompletion,
		ValueDelta:    valueDelta,
		PrevStreak:    prevStreak.CurrentStreak,
		CurrentStreak: streak.CurrentStreak,
	})

	return &RecordProgressResult{Record: &record, Streak: streak, Created: newCompletion}, nil
}

// ComputeHabitStreak derives the streak snapshot for one habit from its full
// completion history.
func ComputeHabitStreak(habit models.Habit, userID string, now time.Time) (StreakSnapshot, error) {
	loc := userLocation(userID)

	var dates []time.Time
	if err := database.DB.Model(&models.ProgressRecord{}).
		Where("habit_id = ? AND user_id = ?", habit.ID, userID).
		Order("date ASC").
		Pluck("date", &dates).Error; err != nil {
		return StreakSnapshot{}, err
	}

	return ComputeStreaks(dates, habit.Frequency, now, loc), nil
}

// GetHabitStreak enforces ownership, then derives the snapshot.
func GetHabitStreak(habitID, userID string) (StreakSnapshot, error) {
	var habit models.Habit
	if err := database.DB.First(&habit, "id = ?", habitID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return StreakSnapshot{}, apperrors.NotFound("Habit not found")
		}
		return StreakSnapshot{}, err
	}
	if habit.UserID != userID {
		return StreakSnapshot{}, apperrors.Forbidden("You do not own this habit")
	}
	return ComputeHabitStreak(habit, userID, time.Now())
}

// lockForUpdate adds a row lock on dialects that support it. SQLite (used in
// tests) serializes writers at the database level, so the clause is skipped
// there rather than generating invalid SQL.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// lockNaturalKey serializes writers of one (habit, user, date) key for the
// duration of the transaction. FOR UPDATE cannot lock a row that does not
// exist yet, so two first submissions for the same day could both read
// not-found and both report a new completion; the advisory lock closes that
// window. SQLite serializes writers at the database level, so no lock is
// needed there.
func lockNaturalKey(tx *gorm.DB, habitID, userID string, day time.Time) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	key := habitID + "|" + userID + "|" + day.Format("2006-01-02")
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error
}

func userLocation(userID string) *time.Location {
	var user models.User
	if err := database.DB.Select("id", "timezone").First(&user, "id = ?", userID).Error; err != nil {
		return time.UTC
	}
	return user.Location()
}
