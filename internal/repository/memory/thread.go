package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/storyverse/internal/catalog"
	"github.com/lalith-99/storyverse/internal/models"
)

const defaultThreadTitle = "Nouvelle Histoire"

type threadRepo struct {
	s *Store
}

// uniqueIDs drops duplicates, keeping first occurrences in order.
func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (r threadRepo) Create(_ context.Context, t models.Thread) (*models.Thread, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = uuid.New()
	now := s.stamp()
	t.CreatedAt = now
	t.UpdatedAt = now
	if strings.TrimSpace(t.Title) == "" {
		t.Title = defaultThreadTitle
	}
	if t.Genre.ID == "" {
		t.Genre = catalog.Default()
	}
	if t.Status == "" {
		t.Status = models.ThreadOngoing
	}
	t.Participants = uniqueIDs(t.Participants)
	// Segments only ever enter a thread through SegmentRepository.Create.
	t.Segments = nil

	s.threads[t.ID] = t
	s.threadOrder = append(s.threadOrder, t.ID)
	out := s.hydrateThread(t)
	return &out, nil
}

func (r threadRepo) List(_ context.Context, filter models.ThreadFilter) ([]models.Thread, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	threads := make([]models.Thread, 0, len(s.threadOrder))
	for _, id := range s.threadOrder {
		t := s.threads[id]
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.GenreID != "" && t.Genre.ID != filter.GenreID {
			continue
		}
		threads = append(threads, s.hydrateThread(t))
	}

	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].UpdatedAt.After(threads[j].UpdatedAt)
	})
	return threads, nil
}

func (r threadRepo) GetByID(_ context.Context, threadID uuid.UUID) (*models.Thread, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.threads[threadID]
	if !ok {
		return nil, nil
	}
	out := s.hydrateThread(t)
	return &out, nil
}

func (r threadRepo) Update(_ context.Context, threadID uuid.UUID, patch models.ThreadPatch) (*models.Thread, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[threadID]
	if !ok {
		return nil, nil
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Genre != nil {
		t.Genre = *patch.Genre
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Trending != nil {
		t.Trending = *patch.Trending
	}
	t.UpdatedAt = s.stamp()
	s.threads[threadID] = t

	out := s.hydrateThread(t)
	return &out, nil
}

func (r threadRepo) SetStatus(_ context.Context, threadID uuid.UUID, status models.ThreadStatus) (*models.Thread, models.ThreadStatus, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[threadID]
	if !ok {
		return nil, "", nil
	}
	previous := t.Status
	t.Status = status
	t.UpdatedAt = s.stamp()
	s.threads[threadID] = t

	out := s.hydrateThread(t)
	return &out, previous, nil
}
