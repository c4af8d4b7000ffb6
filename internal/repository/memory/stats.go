package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/lalith-99/storyverse/internal/models"
)

type statsRepo struct {
	s *Store
}

func (r statsRepo) UserStats(_ context.Context, userID uuid.UUID) (models.UserStats, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats models.UserStats
	for _, seg := range s.segments {
		if seg.AuthorID != userID {
			continue
		}
		stats.TotalSegments++
		stats.TotalLikes += seg.Likes
	}
	for _, t := range s.threads {
		if t.CreatedBy == userID || t.HasParticipant(userID) {
			stats.TotalThreads++
		}
	}

	stats.Level = 1
	if u, ok := s.users[userID]; ok {
		stats.TotalXP = u.XP
		stats.Level = u.Level
	}
	// CurrentStreak stays 0 until there is an activity log to derive it from.
	return stats, nil
}
