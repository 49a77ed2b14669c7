package services

import (
	"time"

	"github.com/clduab11/vibestack-backend/pkg/logger"
)

// ProgressEvent is the message handed from the synchronous write path to the
// asynchronous consumers (challenge scoring, achievement checks). The recorder
// emits exactly one event per ledger write, with deltas computed inside the
// recording transaction; a client resubmitting the same day produces a fresh
// event whose deltas are zero, so nothing double counts.
type ProgressEvent struct {
	UserID        string
	HabitID       string
	Date          time.Time
	NewCompletion bool
	ValueDelta    float64
	PrevStreak    int
	CurrentStreak int
}

var progressEvents = make(chan ProgressEvent, 256)

// EnqueueProgressEvent hands an event to the worker pool without ever blocking
// the write path. When the queue is saturated the event is processed on a
// fresh goroutine instead of being dropped, preserving at-least-once handling.
func EnqueueProgressEvent(ev ProgressEvent) {
	select {
	case progressEvents <- ev:
	default:
		logger.Warn().
			Str("user_id", ev.UserID).
			Str("habit_id", ev.HabitID).
			Msg("Progress event queue saturated, processing out of band")
		go ProcessProgressEvent(ev)
	}
}

// StartEffectWorkers launches the consumer pool. Called once from main.
func StartEffectWorkers(n int) {
	for i := 0; i < n; i++ {
		go func() {
			for ev := range progressEvents {
				ProcessProgressEvent(ev)
			}
		}()
	}
}

// ProcessProgressEvent runs both side-effect consumers with bounded retries.
// Failures are logged and never propagate back to the originating write.
func ProcessProgressEvent(ev ProgressEvent) {
	if err := withRetry(3, 100*time.Millisecond, func() error {
		return ApplyChallengeProgress(ev)
	}); err != nil {
		logger.Error().Err(err).
			Str("user_id", ev.UserID).
			Str("habit_id", ev.HabitID).
			Msg("Challenge progress update failed after retries")
	}

	if err := withRetry(3, 100*time.Millisecond, func() error {
		_, err := CheckAchievements(ev.UserID)
		return err
	}); err != nil {
		logger.Error().Err(err).
			Str("user_id", ev.UserID).
			Msg("Achievement check failed after retries")
	}
}

// DrainProgressEvents synchronously processes everything queued. Used on
// graceful shutdown so buffered events are not lost with the process.
func DrainProgressEvents() {
	for {
		select {
		case ev := <-progressEvents:
			ProcessProgressEvent(ev)
		default:
			return
		}
	}
}

// DiscardProgressEvents empties the queue without running the consumers. Use
// this when the backing store is being torn down or swapped out and the queued
// events no longer reference live rows; graceful shutdown wants
// DrainProgressEvents instead.
func DiscardProgressEvents() {
	for {
		select {
		case <-progressEvents:
		default:
			return
		}
	}
}

func withRetry(attempts int, backoff time.Duration, op func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil {
			return nil
		}
		time.Sleep(backoff << i)
	}
	return err
}
