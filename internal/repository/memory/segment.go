package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/lalith-99/storyverse/internal/models"
	"github.com/lalith-99/storyverse/internal/repository"
)

type segmentRepo struct {
	s *Store
}

// Create checks the thread before touching anything, then writes the
// segment, the thread's segment list and its participants under one lock.
func (r segmentRepo) Create(_ context.Context, seg models.Segment) (*models.Segment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[seg.ThreadID]
	if !ok {
		return nil, repository.ErrThreadNotFound
	}

	seg.ID = uuid.New()
	seg.Order = len(s.segmentIDsByThread[t.ID]) + 1
	seg.CreatedAt = s.stamp()
	seg.Likes = 0
	seg.Comments = []models.Comment{}

	s.segments[seg.ID] = seg
	s.segmentIDsByThread[t.ID] = append(s.segmentIDsByThread[t.ID], seg.ID)

	if !t.HasParticipant(seg.AuthorID) {
		t.Participants = append(t.Participants, seg.AuthorID)
	}
	t.UpdatedAt = s.stamp()
	s.threads[t.ID] = t

	out := cloneSegment(seg)
	return &out, nil
}

func (r segmentRepo) GetByID(_ context.Context, segmentID uuid.UUID) (*models.Segment, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	seg, ok := s.segments[segmentID]
	if !ok {
		return nil, nil
	}
	out := cloneSegment(seg)
	return &out, nil
}

// ListByThread relies on segmentIDsByThread being kept in Order.
func (r segmentRepo) ListByThread(_ context.Context, threadID uuid.UUID) ([]models.Segment, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.segmentIDsByThread[threadID]
	segments := make([]models.Segment, 0, len(ids))
	for _, id := range ids {
		segments = append(segments, cloneSegment(s.segments[id]))
	}
	return segments, nil
}

func (r segmentRepo) Update(_ context.Context, segmentID uuid.UUID, patch models.SegmentPatch) (*models.Segment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	seg, ok := s.segments[segmentID]
	if !ok {
		return nil, nil
	}
	if patch.Content != nil {
		seg.Content = *patch.Content
	}
	if patch.MediaURL != nil {
		seg.MediaURL = *patch.MediaURL
	}
	if patch.MediaType != nil {
		seg.MediaType = *patch.MediaType
	}
	if patch.Likes != nil && *patch.Likes >= 0 {
		seg.Likes = *patch.Likes
	}
	s.segments[segmentID] = seg

	out := cloneSegment(seg)
	return &out, nil
}

func (r segmentRepo) IncrementLikes(_ context.Context, segmentID uuid.UUID) (*models.Segment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	seg, ok := s.segments[segmentID]
	if !ok {
		return nil, nil
	}
	seg.Likes++
	s.segments[segmentID] = seg

	out := cloneSegment(seg)
	return &out, nil
}

func (r segmentRepo) AddComment(_ context.Context, segmentID uuid.UUID, c models.Comment) (*models.Comment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	seg, ok := s.segments[segmentID]
	if !ok {
		return nil, nil
	}
	c.ID = uuid.New()
	c.SegmentID = segmentID
	c.Likes = 0
	c.CreatedAt = s.stamp()

	seg.Comments = append(seg.Comments, c)
	s.segments[segmentID] = seg

	out := c
	return &out, nil
}
