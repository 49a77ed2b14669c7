package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/clduab11/vibestack-backend/internal/database"
	"github.com/clduab11/vibestack-backend/internal/models"
	apperrors "github.com/clduab11/vibestack-backend/pkg/errors"
	"github.com/clduab11/vibestack-backend/pkg/logger"
	"gorm.io/gorm"
)

type LeaderboardEntry struct {
	Rank     int       `json:"rank"`
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar"`
	Score    float64   `json:"score"`
	JoinedAt time.Time `json:"joinedAt"`
}

// RankSnapshot is one participant's position from a consistent point-in-time view.
type RankSnapshot struct {
	ChallengeID string  `json:"challengeId"`
	UserID      string  `json:"userId"`
	Score       float64 `json:"score"`
	Rank        int     `json:"rank"`
	Total       int     `json:"total"`
}

const (
	leaderboardCacheTTL  = 5 * time.Second
	leaderboardPageLimit = 100
)

func leaderboardCacheKey(challengeID string) string {
	return fmt.Sprintf("leaderboard:%s:first_page", challengeID)
}

func invalidateLeaderboardCache(challengeID string) {
	if database.Redis == nil {
		return
	}
	if err := database.CacheInvalidate(leaderboardCacheKey(challengeID)); err != nil {
		logger.Warn().Err(err).Str("challenge_id", challengeID).Msg("Leaderboard cache invalidation failed")
	}
}

// ApplyProgressDelta adds delta to one participant's score via a single atomic
// SQL increment. There is never a read-modify-write on the score from
// application code, so M concurrent deltas always sum exactly — across
// goroutines and across service instances.
func ApplyProgressDelta(challengeID, userID string, delta float64) (*RankSnapshot, error) {
	res := database.DB.Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ? AND user_id = ? AND left_at IS NULL", challengeID, userID).
		Update("score", gorm.Expr("score + ?", delta))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("Not an active participant of this challenge")
	}

	invalidateLeaderboardCache(challengeID)

	snap, err := ParticipantRank(challengeID, userID)
	if err != nil {
		return nil, err
	}

	// last_rank is advisory display state, not part of the ordering contract.
	database.DB.Model(&models.ChallengeParticipant{}).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		Update("last_rank", snap.Rank)

	Publish(challengeID, EventLeaderboardUpdate, snap)

	return snap, nil
}

// ParticipantRank computes one participant's rank under the ordering contract:
// score descending, then earlier joined_at, then participant id. Score, rank
// and total come from a single statement so the snapshot is internally
// consistent even while concurrent deltas land.
func ParticipantRank(challengeID, userID string) (*RankSnapshot, error) {
	var row struct {
		Score float64
		Ahead int64
		Total int64
	}
	res := database.DB.Raw(`
		SELECT p.score AS score,
		       (SELECT COUNT(*) FROM challenge_participants b
		         WHERE b.challenge_id = p.challenge_id AND b.left_at IS NULL
		           AND (b.score > p.score
		                OR (b.score = p.score AND b.joined_at < p.joined_at)
		                OR (b.score = p.score AND b.joined_at = p.joined_at AND b.id < p.id))) AS ahead,
		       (SELECT COUNT(*) FROM challenge_participants t
		         WHERE t.challenge_id = p.challenge_id AND t.left_at IS NULL) AS total
		  FROM challenge_participants p
		 WHERE p.challenge_id = ? AND p.user_id = ?`,
		challengeID, userID).Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NotFound("Not a participant of this challenge")
	}

	return &RankSnapshot{
		ChallengeID: challengeID,
		UserID:      userID,
		Score:       row.Score,
		Rank:        int(row.Ahead) + 1,
		Total:       int(row.Total),
	}, nil
}

// GetLeaderboard returns a stable paginated ordering consistent with the last
// applied delta at call time. The first page is served from a short-TTL Redis
// cache that every delta invalidates, bounding staleness instead of hiding it.
func GetLeaderboard(challengeID string, limit, offset int) ([]LeaderboardEntry, error) {
	var challenge models.Challenge
	if err := database.DB.First(&challenge, "id = ?", challengeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Challenge not found")
		}
		return nil, err
	}

	if limit <= 0 {
		limit = 20
	}
	if limit > leaderboardPageLimit {
		limit = leaderboardPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	cacheable := offset == 0 && limit == 20 && database.Redis != nil
	if cacheable {
		var cached []LeaderboardEntry
		if err := database.CacheGet(leaderboardCacheKey(challengeID), &cached); err == nil {
			return cached, nil
		}
	}

	var rows []struct {
		UserID   string
		Score    float64
		JoinedAt time.Time
		Username string
		Name     string
		Image    string
	}
	if err := database.DB.Model(&models.ChallengeParticipant{}).
		Select("challenge_participants.user_id as user_id, challenge_participants.score as score, challenge_participants.joined_at as joined_at, users.username as username, users.name as name, users.image as image").
		Joins("LEFT JOIN users ON users.id = challenge_participants.user_id").
		Where("challenge_participants.challenge_id = ? AND challenge_participants.left_at IS NULL", challengeID).
		Order("challenge_participants.score DESC, challenge_participants.joined_at ASC, challenge_participants.id ASC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, LeaderboardEntry{
			Rank:     offset + i + 1,
			UserID:   row.UserID,
			Username: row.Username,
			Name:     row.Name,
			Avatar:   row.Image,
			Score:    row.Score,
			JoinedAt: row.JoinedAt,
		})
	}

	if cacheable {
		if err := database.CacheSet(leaderboardCacheKey(challengeID), entries, leaderboardCacheTTL); err != nil {
			logger.Warn().Err(err).Str("challenge_id", challengeID).Msg("Leaderboard cache write failed")
		}
	}

	return entries, nil
}
