// Package memory is the in-process content store. It keeps users, threads
// and segments in maps behind a single RWMutex, so every operation,
// including the multi-collection segment insert, is atomic.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/storyverse/internal/models"
	"github.com/lalith-99/storyverse/internal/repository"
)

// Store holds all state. Construct one per process (or per test) with New
// and hand it to whatever needs it.
type Store struct {
	mu sync.RWMutex

	now       func() time.Time
	lastStamp time.Time

	users          map[uuid.UUID]models.User
	userIDsByEmail map[string]uuid.UUID

	threads     map[uuid.UUID]models.Thread
	threadOrder []uuid.UUID

	// segments holds every segment once. A thread refers to its segments by
	// id, in Order, so likes and media attached later show up everywhere.
	segments           map[uuid.UUID]models.Segment
	segmentIDsByThread map[uuid.UUID][]uuid.UUID
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now. Timestamps handed out by the store are still
// forced to be strictly increasing.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		now:                func() time.Time { return time.Now().UTC() },
		users:              make(map[uuid.UUID]models.User),
		userIDsByEmail:     make(map[string]uuid.UUID),
		threads:            make(map[uuid.UUID]models.Thread),
		segments:           make(map[uuid.UUID]models.Segment),
		segmentIDsByThread: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repository.ContentStore = (*Store)(nil)

func (s *Store) Users() repository.UserRepository       { return userRepo{s} }
func (s *Store) Threads() repository.ThreadRepository   { return threadRepo{s} }
func (s *Store) Segments() repository.SegmentRepository { return segmentRepo{s} }
func (s *Store) Stats() repository.StatsRepository      { return statsRepo{s} }

// stamp returns the current time, nudged past the previous stamp when the
// clock hasn't moved. Caller holds the write lock.
func (s *Store) stamp() time.Time {
	t := s.now()
	if !t.After(s.lastStamp) {
		t = s.lastStamp.Add(time.Nanosecond)
	}
	s.lastStamp = t
	return t
}

func cloneUser(u models.User) *models.User {
	out := u
	out.Badges = append(make([]models.Badge, 0, len(u.Badges)), u.Badges...)
	return &out
}

func cloneSegment(seg models.Segment) models.Segment {
	out := seg
	out.Comments = append(make([]models.Comment, 0, len(seg.Comments)), seg.Comments...)
	return out
}

// hydrateThread copies a stored thread and fills in its segments.
// Caller holds at least the read lock.
func (s *Store) hydrateThread(t models.Thread) models.Thread {
	out := t
	out.Participants = append(make([]uuid.UUID, 0, len(t.Participants)), t.Participants...)
	ids := s.segmentIDsByThread[t.ID]
	out.Segments = make([]models.Segment, 0, len(ids))
	for _, id := range ids {
		out.Segments = append(out.Segments, cloneSegment(s.segments[id]))
	}
	return out
}
