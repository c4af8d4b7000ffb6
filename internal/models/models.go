package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxSegmentLength is the longest segment a user may contribute, in
// characters (runes, not bytes).
const MaxSegmentLength = 500

// User is a storyteller.
//
// XP only ever grows. Level is derived from XP by the progression package;
// it is stored so that lookups don't need the level table, but the service
// layer recomputes it every time XP changes.
//
// Badges holds earned badges in earn order, unique by ID.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Avatar       string    `json:"avatar,omitempty"`
	XP           int       `json:"xp"`
	Level        int       `json:"level"`
	Badges       []Badge   `json:"badges"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasBadge reports whether the user already earned the badge with this id.
func (u User) HasBadge(id string) bool {
	for _, b := range u.Badges {
		if b.ID == id {
			return true
		}
	}
	return false
}

// UserPatch is a partial update. Nil fields are left unchanged.
type UserPatch struct {
	Username *string
	Avatar   *string
	XP       *int
	Level    *int
	Badges   []Badge
}

// Genre is a static story category. See the catalog package.
type Genre struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

type ThreadStatus string

const (
	ThreadOngoing   ThreadStatus = "ongoing"
	ThreadCompleted ThreadStatus = "completed"
	ThreadPaused    ThreadStatus = "paused"
)

func (s ThreadStatus) Valid() bool {
	switch s {
	case ThreadOngoing, ThreadCompleted, ThreadPaused:
		return true
	}
	return false
}

// Thread is a collaborative story.
//
// Invariants kept by every store implementation:
//   - Participants contains the author of every segment in Segments, once.
//   - Segments is ordered by Order, starting at 1, with no gaps.
//   - UpdatedAt moves forward on every mutation.
type Thread struct {
	ID           uuid.UUID    `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Genre        Genre        `json:"genre"`
	Status       ThreadStatus `json:"status"`
	CreatedBy    uuid.UUID    `json:"created_by"`
	Participants []uuid.UUID  `json:"participants"`
	Segments     []Segment    `json:"segments"`
	Trending     bool         `json:"trending"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// HasParticipant reports whether userID takes part in the thread.
func (t Thread) HasParticipant(userID uuid.UUID) bool {
	for _, p := range t.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// ThreadPatch is a partial update. Nil fields are left unchanged;
// UpdatedAt is refreshed regardless.
type ThreadPatch struct {
	Title       *string
	Description *string
	Genre       *Genre
	Status      *ThreadStatus
	Trending    *bool
}

// ThreadFilter narrows a thread listing. Zero-valued fields match everything.
type ThreadFilter struct {
	Status  ThreadStatus
	GenreID string
}

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

func (m MediaType) Valid() bool {
	return m == MediaImage || m == MediaVideo
}

// Segment is one contribution to a thread. Order is its 1-based position in
// the thread and is never reassigned.
type Segment struct {
	ID        uuid.UUID `json:"id"`
	ThreadID  uuid.UUID `json:"thread_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Content   string    `json:"content"`
	MediaURL  string    `json:"media_url,omitempty"`
	MediaType MediaType `json:"media_type,omitempty"`
	Likes     int       `json:"likes"`
	Comments  []Comment `json:"comments"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// SegmentPatch is a partial update. Nil fields are left unchanged.
type SegmentPatch struct {
	Content   *string
	MediaURL  *string
	MediaType *MediaType
	Likes     *int
}

// Comment is attached to exactly one segment. Only Likes changes after
// creation.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	SegmentID uuid.UUID `json:"segment_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Content   string    `json:"content"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"created_at"`
}

type BadgeRarity string

const (
	RarityCommon    BadgeRarity = "common"
	RarityRare      BadgeRarity = "rare"
	RarityEpic      BadgeRarity = "epic"
	RarityLegendary BadgeRarity = "legendary"
)

// Badge is an achievement. The same struct describes a catalog entry and an
// earned instance; they share the ID.
type Badge struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	Icon         string      `json:"icon"`
	Rarity       BadgeRarity `json:"rarity"`
	Requirements string      `json:"requirements"`
}

// UserStats is derived from store contents on demand and never persisted.
type UserStats struct {
	TotalSegments int `json:"total_segments"`
	TotalLikes    int `json:"total_likes"`
	TotalThreads  int `json:"total_threads"`
	CurrentStreak int `json:"current_streak"`
	TotalXP       int `json:"total_xp"`
	Level         int `json:"level"`
}

// MediaRequest asks the media collaborator for an illustration of a segment.
// Duration is in seconds and only meaningful for videos.
type MediaRequest struct {
	SegmentID uuid.UUID `json:"segment_id"`
	Prompt    string    `json:"prompt"`
	Type      MediaType `json:"type"`
	Style     string    `json:"style,omitempty"`
	Duration  int       `json:"duration,omitempty"`
}
