package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/storyverse/internal/models"
)

type StatsStore struct {
	pool *pgxpool.Pool
}

func NewStatsStore(pool *pgxpool.Pool) *StatsStore {
	return &StatsStore{pool: pool}
}

// UserStats computes everything in one round trip. A thread counts when the
// user created it or participates in it. CurrentStreak is left at 0.
func (s *StatsStore) UserStats(ctx context.Context, userID uuid.UUID) (models.UserStats, error) {
	query := `
		SELECT
			(SELECT count(*) FROM segments WHERE author_id = $1),
			(SELECT COALESCE(sum(likes), 0) FROM segments WHERE author_id = $1),
			(SELECT count(*) FROM threads t
			  WHERE t.created_by = $1
			     OR EXISTS (SELECT 1 FROM thread_participants p WHERE p.thread_id = t.id AND p.user_id = $1)),
			COALESCE((SELECT xp FROM users WHERE id = $1), 0),
			COALESCE((SELECT level FROM users WHERE id = $1), 1)`

	var stats models.UserStats
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&stats.TotalSegments,
		&stats.TotalLikes,
		&stats.TotalThreads,
		&stats.TotalXP,
		&stats.Level,
	)
	if err != nil {
		return models.UserStats{}, fmt.Errorf("user stats: %w", err)
	}
	return stats, nil
}
