// Package service applies the progression rules to stored users while
// threads, segments and comments change.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lalith-99/storyverse/internal/activity"
	"github.com/lalith-99/storyverse/internal/catalog"
	"github.com/lalith-99/storyverse/internal/live"
	"github.com/lalith-99/storyverse/internal/models"
	"github.com/lalith-99/storyverse/internal/observ"
	"github.com/lalith-99/storyverse/internal/progression"
	"github.com/lalith-99/storyverse/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrInvalidContent  = errors.New("content must be between 1 and 500 characters")
	ErrUnknownGenre    = errors.New("unknown genre")
	ErrInvalidStatus   = errors.New("invalid thread status")
	ErrInvalidUsername = errors.New("username must not be blank")
	ErrUserNotFound    = errors.New("user not found")
	ErrSegmentNotFound = errors.New("segment not found")
)

// StoryService is the only writer of XP, levels and badges.
type StoryService struct {
	users    repository.UserRepository
	threads  repository.ThreadRepository
	segments repository.SegmentRepository
	stats    repository.StatsRepository
	tracker  activity.Tracker
	events   live.Publisher
	logger   *zap.Logger
	now      func() time.Time

	// awardMu serializes the read-modify-write of a user's progression.
	awardMu sync.Mutex
}

func NewStoryService(
	store repository.ContentStore,
	tracker activity.Tracker,
	events live.Publisher,
	logger *zap.Logger,
) *StoryService {
	if events == nil {
		events = live.Discard
	}
	return &StoryService{
		users:    store.Users(),
		threads:  store.Threads(),
		segments: store.Segments(),
		stats:    store.Stats(),
		tracker:  tracker,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// Award is the outcome of one AwardXP call. XPGained includes the bonus
// for any badge earned along the way.
type Award struct {
	User      *models.User   `json:"user"`
	XPGained  int            `json:"xp_gained"`
	NewBadges []models.Badge `json:"new_badges"`
	LeveledUp bool           `json:"leveled_up"`
}

// AwardXP grants the reward of action to a user, recomputes the level and
// hands out every badge the user now qualifies for. Each new badge is worth
// badge-earned XP, which can in turn unlock more badges; the loop stops
// once a pass finds nothing new.
func (s *StoryService) AwardXP(ctx context.Context, userID uuid.UUID, action progression.Action, multiplier float64) (*Award, error) {
	s.awardMu.Lock()
	defer s.awardMu.Unlock()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	stats, err := s.stats.UserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user stats: %w", err)
	}

	startXP, startLevel := user.XP, user.Level
	next := *user
	next.Badges = append([]models.Badge(nil), user.Badges...)
	base := progression.CalculateXPGain(action, multiplier)
	next.XP += base
	next.Level = progression.CalculateLevel(next.XP)

	var earned []models.Badge
	for range progression.BadgeRules {
		stats.TotalXP, stats.Level = next.XP, next.Level
		fresh := progression.CheckBadgeEligibility(next, stats)
		if len(fresh) == 0 {
			break
		}
		next.Badges = append(next.Badges, fresh...)
		earned = append(earned, fresh...)
		next.XP += len(fresh) * progression.XPGain(progression.ActionBadgeEarned)
		next.Level = progression.CalculateLevel(next.XP)
	}

	award := &Award{
		User:      user,
		XPGained:  next.XP - startXP,
		NewBadges: earned,
		LeveledUp: next.Level > startLevel,
	}
	if award.NewBadges == nil {
		award.NewBadges = []models.Badge{}
	}
	if award.XPGained == 0 && next.Level == startLevel {
		return award, nil
	}

	updated, err := s.users.Update(ctx, userID, models.UserPatch{
		XP:     &next.XP,
		Level:  &next.Level,
		Badges: next.Badges,
	})
	if err != nil {
		return nil, fmt.Errorf("update user progression: %w", err)
	}
	if updated == nil {
		return nil, ErrUserNotFound
	}
	award.User = updated

	observ.XPAwarded.WithLabelValues(string(action)).Add(float64(base))
	for _, b := range earned {
		observ.BadgesEarned.WithLabelValues(b.ID).Inc()
		observ.XPAwarded.WithLabelValues(string(progression.ActionBadgeEarned)).Add(float64(progression.XPGain(progression.ActionBadgeEarned)))
		s.logger.Info("badge earned",
			zap.String("user_id", userID.String()),
			zap.String("badge", b.ID),
		)
	}
	if award.LeveledUp {
		s.logger.Info("level up",
			zap.String("user_id", userID.String()),
			zap.Int("level", updated.Level),
			zap.String("title", progression.LevelTitle(updated.Level)),
		)
	}
	return award, nil
}

// validContent trims s and checks it fits in a segment or comment.
func validContent(s string) (string, error) {
	s = strings.TrimSpace(s)
	if n := utf8.RuneCountInString(s); n == 0 || n > models.MaxSegmentLength {
		return "", ErrInvalidContent
	}
	return s, nil
}

// Contribution is a new segment plus what its author earned for it.
type Contribution struct {
	Segment *models.Segment `json:"segment"`
	Award   *Award          `json:"award"`
}

// Contribute appends a segment written by authorID to a thread. The
// author's first segment ever is worth first-segment XP, any later one
// new-segment XP.
func (s *StoryService) Contribute(ctx context.Context, threadID, authorID uuid.UUID, content string) (*Contribution, error) {
	content, err := validContent(content)
	if err != nil {
		return nil, err
	}
	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("get author: %w", err)
	}
	if author == nil {
		return nil, ErrUserNotFound
	}

	seg, err := s.segments.Create(ctx, models.Segment{
		ThreadID: threadID,
		AuthorID: authorID,
		Content:  content,
	})
	if err != nil {
		return nil, fmt.Errorf("create segment: %w", err)
	}
	observ.SegmentsCreated.Inc()
	s.events.Publish(live.Event{Type: live.EventSegmentCreated, ThreadID: threadID, Payload: seg})

	stats, err := s.stats.UserStats(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("get author stats: %w", err)
	}
	action := progression.ActionNewSegment
	if stats.TotalSegments == 1 {
		action = progression.ActionFirstSegment
	}
	award, err := s.AwardXP(ctx, authorID, action, 1)
	if err != nil {
		return nil, fmt.Errorf("award contribution: %w", err)
	}
	return &Contribution{Segment: seg, Award: award}, nil
}

// NewThread describes a thread to start. An empty GenreID means the
// default genre; Opening, when set, becomes the first segment.
type NewThread struct {
	Title       string
	Description string
	GenreID     string
	Opening     string
}

// StartedThread is the created thread, segments included, and the
// contribution of its opening segment if there was one.
type StartedThread struct {
	Thread  *models.Thread `json:"thread"`
	Opening *Contribution  `json:"opening,omitempty"`
}

func (s *StoryService) StartThread(ctx context.Context, creatorID uuid.UUID, in NewThread) (*StartedThread, error) {
	genre := catalog.Default()
	if in.GenreID != "" {
		g, ok := catalog.GenreByID(in.GenreID)
		if !ok {
			return nil, ErrUnknownGenre
		}
		genre = g
	}
	if strings.TrimSpace(in.Opening) != "" {
		if _, err := validContent(in.Opening); err != nil {
			return nil, err
		}
	}

	thread, err := s.threads.Create(ctx, models.Thread{
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		Genre:        genre,
		CreatedBy:    creatorID,
		Participants: []uuid.UUID{creatorID},
	})
	if err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	observ.ThreadsCreated.Inc()
	s.logger.Info("thread started",
		zap.String("thread_id", thread.ID.String()),
		zap.String("genre", genre.ID),
		zap.String("created_by", creatorID.String()),
	)

	out := &StartedThread{Thread: thread}
	if strings.TrimSpace(in.Opening) == "" {
		return out, nil
	}

	out.Opening, err = s.Contribute(ctx, thread.ID, creatorID, in.Opening)
	if err != nil {
		return nil, err
	}
	if out.Thread, err = s.threads.GetByID(ctx, thread.ID); err != nil {
		return nil, fmt.Errorf("reload thread: %w", err)
	}
	return out, nil
}

// LikeSegment adds a like and rewards the segment's author.
func (s *StoryService) LikeSegment(ctx context.Context, segmentID uuid.UUID) (*models.Segment, error) {
	seg, err := s.segments.IncrementLikes(ctx, segmentID)
	if err != nil {
		return nil, fmt.Errorf("like segment: %w", err)
	}
	if seg == nil {
		return nil, ErrSegmentNotFound
	}
	s.events.Publish(live.Event{Type: live.EventSegmentLiked, ThreadID: seg.ThreadID, Payload: seg})

	if _, err := s.AwardXP(ctx, seg.AuthorID, progression.ActionSegmentLiked, 1); err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("award like: %w", err)
	}
	return seg, nil
}

// CommentOnSegment stores a comment. The segment's author earns
// comment-received XP unless they are commenting on their own segment.
func (s *StoryService) CommentOnSegment(ctx context.Context, segmentID, authorID uuid.UUID, content string) (*models.Comment, error) {
	content, err := validContent(content)
	if err != nil {
		return nil, err
	}
	seg, err := s.segments.GetByID(ctx, segmentID)
	if err != nil {
		return nil, fmt.Errorf("get segment: %w", err)
	}
	if seg == nil {
		return nil, ErrSegmentNotFound
	}

	comment, err := s.segments.AddComment(ctx, segmentID, models.Comment{AuthorID: authorID, Content: content})
	if err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	if comment == nil {
		return nil, ErrSegmentNotFound
	}
	s.events.Publish(live.Event{Type: live.EventCommentAdded, ThreadID: seg.ThreadID, Payload: comment})

	if authorID != seg.AuthorID {
		if _, err := s.AwardXP(ctx, seg.AuthorID, progression.ActionCommentReceived, 1); err != nil && !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("award comment: %w", err)
		}
	}
	return comment, nil
}

// ThreadChanges are the editable fields of a thread. Nil means unchanged.
type ThreadChanges struct {
	Title       *string
	Description *string
	GenreID     *string
	Trending    *bool
	Status      *models.ThreadStatus
}

// UpdateThread edits a thread. A status change goes through
// SetThreadStatus so completion is rewarded.
func (s *StoryService) UpdateThread(ctx context.Context, threadID uuid.UUID, ch ThreadChanges) (*models.Thread, error) {
	patch := models.ThreadPatch{
		Title:       ch.Title,
		Description: ch.Description,
		Trending:    ch.Trending,
	}
	if ch.GenreID != nil {
		g, ok := catalog.GenreByID(*ch.GenreID)
		if !ok {
			return nil, ErrUnknownGenre
		}
		patch.Genre = &g
	}
	if ch.Status != nil && !ch.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	thread, err := s.threads.Update(ctx, threadID, patch)
	if err != nil {
		return nil, fmt.Errorf("update thread: %w", err)
	}
	if thread == nil {
		return nil, repository.ErrThreadNotFound
	}
	if ch.Status != nil {
		return s.SetThreadStatus(ctx, threadID, *ch.Status)
	}
	return thread, nil
}

// SetThreadStatus changes a thread's status. Moving a thread into
// completed rewards its creator and every participant once each.
func (s *StoryService) SetThreadStatus(ctx context.Context, threadID uuid.UUID, status models.ThreadStatus) (*models.Thread, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	thread, previous, err := s.threads.SetStatus(ctx, threadID, status)
	if err != nil {
		return nil, fmt.Errorf("update thread status: %w", err)
	}
	if thread == nil {
		return nil, repository.ErrThreadNotFound
	}
	s.events.Publish(live.Event{Type: live.EventThreadStatus, ThreadID: threadID, Payload: thread})

	// Only the caller that actually moved the thread into completed pays.
	if status != models.ThreadCompleted || previous == models.ThreadCompleted {
		return thread, nil
	}

	rewarded := make(map[uuid.UUID]struct{}, len(thread.Participants)+1)
	for _, id := range append([]uuid.UUID{thread.CreatedBy}, thread.Participants...) {
		if _, done := rewarded[id]; done {
			continue
		}
		rewarded[id] = struct{}{}
		if _, err := s.AwardXP(ctx, id, progression.ActionThreadCompleted, 1); err != nil && !errors.Is(err, ErrUserNotFound) {
			return nil, fmt.Errorf("award completion: %w", err)
		}
	}
	s.logger.Info("thread completed",
		zap.String("thread_id", threadID.String()),
		zap.Int("rewarded", len(rewarded)),
	)
	return thread, nil
}

// RecordDailyLogin grants daily-login XP on the user's first check-in of
// the UTC day. The bool reports whether anything was granted.
func (s *StoryService) RecordDailyLogin(ctx context.Context, userID uuid.UUID) (*Award, bool, error) {
	first, err := s.tracker.MarkActive(ctx, userID, s.now())
	if err != nil {
		return nil, false, fmt.Errorf("record check-in: %w", err)
	}
	if !first {
		return nil, false, nil
	}
	award, err := s.AwardXP(ctx, userID, progression.ActionDailyLogin, 1)
	if err != nil {
		return nil, false, err
	}
	return award, true, nil
}

// UpdateProfile changes a user's display fields.
func (s *StoryService) UpdateProfile(ctx context.Context, userID uuid.UUID, username, avatar *string) (*models.User, error) {
	if username != nil {
		trimmed := strings.TrimSpace(*username)
		if trimmed == "" {
			return nil, ErrInvalidUsername
		}
		username = &trimmed
	}
	user, err := s.users.Update(ctx, userID, models.UserPatch{Username: username, Avatar: avatar})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Stats returns the derived statistics of an existing user.
func (s *StoryService) Stats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	stats, err := s.stats.UserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user stats: %w", err)
	}
	return &stats, nil
}

// Profile is everything the profile screen shows.
type Profile struct {
	User     *models.User               `json:"user"`
	Stats    models.UserStats           `json:"stats"`
	Progress progression.LevelProgress  `json:"progress"`
	Badges   []progression.CatalogEntry `json:"badges"`
}

func (s *StoryService) Profile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	stats, err := s.stats.UserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user stats: %w", err)
	}
	return &Profile{
		User:     user,
		Stats:    stats,
		Progress: progression.Progress(user.XP),
		Badges:   progression.BadgeCatalog(*user),
	}, nil
}
