package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lalith-99/storyverse/internal/models"
)

// Lookups and updates on a missing id return nil, nil, never an error:
// callers check for nil. The exceptions are the sentinels below, which
// guard invariants a silent nil would break.
var (
	// ErrThreadNotFound is returned by SegmentRepository.Create when the
	// segment would reference a thread that doesn't exist. Nothing is
	// written in that case.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrEmailTaken is returned by UserRepository.Create for a duplicate
	// email address.
	ErrEmailTaken = errors.New("email already registered")
)

// UserRepository owns users.
type UserRepository interface {
	// Create stores a new user. ID and CreatedAt are assigned; Level
	// defaults to 1, XP to 0 and Badges to empty when unset.
	Create(ctx context.Context, u models.User) (*models.User, error)

	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// GetByEmail is used by login. Email matching is case-insensitive.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Update applies the non-nil fields of patch and returns the result.
	Update(ctx context.Context, userID uuid.UUID, patch models.UserPatch) (*models.User, error)
}

// ThreadRepository owns threads.
type ThreadRepository interface {
	// Create stores a new thread with status ongoing, no segments and
	// trending off unless the caller set them.
	Create(ctx context.Context, t models.Thread) (*models.Thread, error)

	// List returns threads matching every non-zero filter field, most
	// recently updated first. Ties keep creation order.
	List(ctx context.Context, filter models.ThreadFilter) ([]models.Thread, error)

	// GetByID returns the thread with its segments in order.
	GetByID(ctx context.Context, threadID uuid.UUID) (*models.Thread, error)

	// Update applies patch and always refreshes UpdatedAt.
	Update(ctx context.Context, threadID uuid.UUID, patch models.ThreadPatch) (*models.Thread, error)

	// SetStatus moves a thread to status and returns the status it had
	// before. The read and the write are one step: of two concurrent
	// callers setting the same status, only one sees a different
	// previous value.
	SetStatus(ctx context.Context, threadID uuid.UUID, status models.ThreadStatus) (*models.Thread, models.ThreadStatus, error)
}

// SegmentRepository owns segments and their comments.
type SegmentRepository interface {
	// Create appends a segment to its thread: Order is the thread's segment
	// count plus one, the author joins the thread's participants if needed
	// and the thread's UpdatedAt moves. Fails with ErrThreadNotFound.
	Create(ctx context.Context, s models.Segment) (*models.Segment, error)

	GetByID(ctx context.Context, segmentID uuid.UUID) (*models.Segment, error)

	// ListByThread returns a thread's segments ordered by Order ascending.
	// An unknown thread yields an empty slice.
	ListByThread(ctx context.Context, threadID uuid.UUID) ([]models.Segment, error)

	Update(ctx context.Context, segmentID uuid.UUID, patch models.SegmentPatch) (*models.Segment, error)

	// IncrementLikes adds one like atomically.
	IncrementLikes(ctx context.Context, segmentID uuid.UUID) (*models.Segment, error)

	// AddComment attaches a comment to a segment. ID and CreatedAt are
	// assigned.
	AddComment(ctx context.Context, segmentID uuid.UUID, c models.Comment) (*models.Comment, error)
}

// StatsRepository derives user statistics from stored content.
type StatsRepository interface {
	// UserStats scans the user's segments and threads. CurrentStreak is
	// always 0: there is no activity log to compute it from yet.
	UserStats(ctx context.Context, userID uuid.UUID) (models.UserStats, error)
}

// ContentStore is the full store a server needs.
type ContentStore interface {
	Users() UserRepository
	Threads() ThreadRepository
	Segments() SegmentRepository
	Stats() StatsRepository
}
