package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/storyverse/internal/activity"
	"github.com/lalith-99/storyverse/internal/models"
	"github.com/lalith-99/storyverse/internal/progression"
	"github.com/lalith-99/storyverse/internal/repository"
	"github.com/lalith-99/storyverse/internal/repository/memory"
	"go.uber.org/zap"
)

type fixture struct {
	svc   *StoryService
	store *memory.Store
}

func newFixture() fixture {
	store := memory.New()
	return fixture{
		svc:   NewStoryService(store, activity.NewMemoryTracker(), nil, zap.NewNop()),
		store: store,
	}
}

func (f fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := f.store.Users().Create(context.Background(), models.User{Username: name, Email: name + "@example.com"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f fixture) reload(t *testing.T, id uuid.UUID) *models.User {
	t.Helper()
	u, err := f.store.Users().GetByID(context.Background(), id)
	if err != nil || u == nil {
		t.Fatalf("reload user: %v", err)
	}
	return u
}

func (f fixture) thread(t *testing.T, creator uuid.UUID) *models.Thread {
	t.Helper()
	started, err := f.svc.StartThread(context.Background(), creator, NewThread{Title: "Le phare", GenreID: "fantasy"})
	if err != nil {
		t.Fatalf("start thread: %v", err)
	}
	return started.Thread
}

func TestFirstContributionEarnsBadge(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ana := f.user(t, "ana")
	th := f.thread(t, ana.ID)

	c, err := f.svc.Contribute(ctx, th.ID, ana.ID, "  Il était une fois.  ")
	if err != nil {
		t.Fatalf("Contribute: %v", err)
	}
	if c.Segment.Content != "Il était une fois." || c.Segment.Order != 1 {
		t.Errorf("segment = %+v", c.Segment)
	}

	// 50 for the first segment, 75 for the first_segment badge.
	if c.Award.XPGained != 125 {
		t.Errorf("XPGained = %d, want 125", c.Award.XPGained)
	}
	if !c.Award.LeveledUp || c.Award.User.Level != 2 {
		t.Errorf("level = %d, leveledUp = %v", c.Award.User.Level, c.Award.LeveledUp)
	}
	if len(c.Award.NewBadges) != 1 || c.Award.NewBadges[0].ID != "first_segment" {
		t.Errorf("NewBadges = %+v", c.Award.NewBadges)
	}

	c, err = f.svc.Contribute(ctx, th.ID, ana.ID, "Puis le vent tourna.")
	if err != nil {
		t.Fatalf("second Contribute: %v", err)
	}
	if c.Award.XPGained != 25 || len(c.Award.NewBadges) != 0 {
		t.Errorf("second award = %+v", c.Award)
	}
	if got := f.reload(t, ana.ID); got.XP != 150 || len(got.Badges) != 1 {
		t.Errorf("user xp = %d badges = %d, want 150 and 1", got.XP, len(got.Badges))
	}
}

func TestContributeValidation(t *testing.T) {
	f := newFixture()
	ana := f.user(t, "ana")
	th := f.thread(t, ana.ID)

	tests := []struct {
		name     string
		threadID uuid.UUID
		content  string
		want     error
	}{
		{name: "blank", threadID: th.ID, content: "   ", want: ErrInvalidContent},
		{name: "too long", threadID: th.ID, content: strings.Repeat("é", models.MaxSegmentLength+1), want: ErrInvalidContent},
		{name: "missing thread", threadID: uuid.New(), content: "hello", want: repository.ErrThreadNotFound},
		{name: "at the limit", threadID: th.ID, content: strings.Repeat("é", models.MaxSegmentLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Contribute(context.Background(), tt.threadID, ana.ID, tt.content)
			if tt.want == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	segs, _ := f.store.Segments().ListByThread(context.Background(), th.ID)
	if len(segs) != 1 {
		t.Errorf("stored %d segments, want only the valid one", len(segs))
	}
}

func TestAwardXPCrossesLevelAndChainsBadges(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ana := f.user(t, "ana")

	xp := 9990
	if _, err := f.store.Users().Update(ctx, ana.ID, models.UserPatch{XP: &xp}); err != nil {
		t.Fatal(err)
	}

	award, err := f.svc.AwardXP(ctx, ana.ID, progression.ActionDailyLogin, 1)
	if err != nil {
		t.Fatalf("AwardXP: %v", err)
	}
	// 10 gets to level 10, which earns legendary_creator and its 75.
	if award.XPGained != 85 {
		t.Errorf("XPGained = %d, want 85", award.XPGained)
	}
	if award.User.XP != 10075 || award.User.Level != 10 || !award.LeveledUp {
		t.Errorf("user = xp %d level %d, leveledUp %v", award.User.XP, award.User.Level, award.LeveledUp)
	}
	if !award.User.HasBadge("legendary_creator") {
		t.Errorf("badges = %+v", award.User.Badges)
	}

	again, err := f.svc.AwardXP(ctx, ana.ID, progression.ActionDailyLogin, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(again.NewBadges) != 0 || again.XPGained != 10 {
		t.Errorf("badge granted twice: %+v", again)
	}
}

func TestAwardXPUnknownUser(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.AwardXP(context.Background(), uuid.New(), progression.ActionDailyLogin, 1); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestLikeAndComment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ana, ben := f.user(t, "ana"), f.user(t, "ben")
	th := f.thread(t, ana.ID)
	c, err := f.svc.Contribute(ctx, th.ID, ana.ID, "Un dragon dormait.")
	if err != nil {
		t.Fatal(err)
	}
	base := f.reload(t, ana.ID).XP

	seg, err := f.svc.LikeSegment(ctx, c.Segment.ID)
	if err != nil {
		t.Fatalf("LikeSegment: %v", err)
	}
	if seg.Likes != 1 {
		t.Errorf("likes = %d, want 1", seg.Likes)
	}
	if got := f.reload(t, ana.ID).XP; got != base+5 {
		t.Errorf("xp after like = %d, want %d", got, base+5)
	}

	if _, err := f.svc.CommentOnSegment(ctx, c.Segment.ID, ben.ID, "Superbe !"); err != nil {
		t.Fatalf("CommentOnSegment: %v", err)
	}
	if got := f.reload(t, ana.ID).XP; got != base+8 {
		t.Errorf("xp after comment = %d, want %d", got, base+8)
	}

	if _, err := f.svc.CommentOnSegment(ctx, c.Segment.ID, ana.ID, "Merci"); err != nil {
		t.Fatalf("self comment: %v", err)
	}
	if got := f.reload(t, ana.ID).XP; got != base+8 {
		t.Errorf("self comment changed xp to %d", got)
	}

	stored, _ := f.store.Segments().GetByID(ctx, c.Segment.ID)
	if len(stored.Comments) != 2 {
		t.Errorf("comments = %d, want 2", len(stored.Comments))
	}

	if _, err := f.svc.LikeSegment(ctx, uuid.New()); !errors.Is(err, ErrSegmentNotFound) {
		t.Errorf("like missing segment: err = %v", err)
	}
	if _, err := f.svc.CommentOnSegment(ctx, uuid.New(), ben.ID, "?"); !errors.Is(err, ErrSegmentNotFound) {
		t.Errorf("comment missing segment: err = %v", err)
	}
	if _, err := f.svc.CommentOnSegment(ctx, c.Segment.ID, ben.ID, ""); !errors.Is(err, ErrInvalidContent) {
		t.Errorf("empty comment: err = %v", err)
	}
}

func TestCompletingThreadRewardsEveryoneOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ana, ben, cleo := f.user(t, "ana"), f.user(t, "ben"), f.user(t, "cleo")
	th := f.thread(t, ana.ID)
	for _, id := range []uuid.UUID{ana.ID, ben.ID, ben.ID} {
		if _, err := f.svc.Contribute(ctx, th.ID, id, "Encore un peu."); err != nil {
			t.Fatal(err)
		}
	}
	before := map[uuid.UUID]int{
		ana.ID:  f.reload(t, ana.ID).XP,
		ben.ID:  f.reload(t, ben.ID).XP,
		cleo.ID: f.reload(t, cleo.ID).XP,
	}

	done, err := f.svc.SetThreadStatus(ctx, th.ID, models.ThreadCompleted)
	if err != nil {
		t.Fatalf("SetThreadStatus: %v", err)
	}
	if done.Status != models.ThreadCompleted {
		t.Errorf("status = %s", done.Status)
	}
	// Setting completed again is not a transition.
	if _, err := f.svc.SetThreadStatus(ctx, th.ID, models.ThreadCompleted); err != nil {
		t.Fatal(err)
	}

	want := map[uuid.UUID]int{ana.ID: 100, ben.ID: 100, cleo.ID: 0}
	for id, gain := range want {
		if got := f.reload(t, id).XP - before[id]; got != gain {
			t.Errorf("user %s gained %d, want %d", id, got, gain)
		}
	}

	if _, err := f.svc.SetThreadStatus(ctx, th.ID, "archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("invalid status: err = %v", err)
	}
	if _, err := f.svc.SetThreadStatus(ctx, uuid.New(), models.ThreadPaused); !errors.Is(err, repository.ErrThreadNotFound) {
		t.Errorf("missing thread: err = %v", err)
	}
}

// barrierStore holds every SetStatus caller until n of them have arrived,
// so they reach the store at the same time.
type barrierStore struct {
	*memory.Store
	arrived sync.WaitGroup
}

func (b *barrierStore) Threads() repository.ThreadRepository {
	return barrierThreads{ThreadRepository: b.Store.Threads(), arrived: &b.arrived}
}

type barrierThreads struct {
	repository.ThreadRepository
	arrived *sync.WaitGroup
}

func (b barrierThreads) SetStatus(ctx context.Context, id uuid.UUID, status models.ThreadStatus) (*models.Thread, models.ThreadStatus, error) {
	b.arrived.Done()
	b.arrived.Wait()
	return b.ThreadRepository.SetStatus(ctx, id, status)
}

func TestConcurrentCompletionPaysOnce(t *testing.T) {
	ctx := context.Background()
	store := &barrierStore{Store: memory.New()}
	svc := NewStoryService(store, activity.NewMemoryTracker(), nil, zap.NewNop())

	creator, err := store.Users().Create(ctx, models.User{Username: "ana", Email: "ana@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	th, err := store.Threads().Create(ctx, models.Thread{Title: "Le phare", CreatedBy: creator.ID, Participants: []uuid.UUID{creator.ID}})
	if err != nil {
		t.Fatal(err)
	}

	const callers = 2
	store.arrived.Add(callers)
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SetThreadStatus(ctx, th.ID, models.ThreadCompleted)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("SetThreadStatus: %v", err)
		}
	}

	got, err := store.Users().GetByID(ctx, creator.ID)
	if err != nil || got == nil {
		t.Fatalf("reload creator: %v", err)
	}
	if want := progression.XPGain(progression.ActionThreadCompleted); got.XP != want {
		t.Errorf("creator XP = %d, want %d", got.XP, want)
	}
}

func TestStartThread(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ana := f.user(t, "ana")

	if _, err := f.svc.StartThread(ctx, ana.ID, NewThread{GenreID: "western"}); !errors.Is(err, ErrUnknownGenre) {
		t.Errorf("unknown genre: err = %v", err)
	}

	started, err := f.svc.StartThread(ctx, ana.ID, NewThread{GenreID: "scifi", Opening: "La station s'éteignit."})
	if err != nil {
		t.Fatalf("StartThread: %v", err)
	}
	th := started.Thread
	if th.Title != "Nouvelle Histoire" || th.Genre.ID != "scifi" || th.Status != models.ThreadOngoing {
		t.Errorf("thread = %+v", th)
	}
	if len(th.Segments) != 1 || th.Segments[0].Order != 1 {
		t.Errorf("segments = %+v", th.Segments)
	}
	if !th.HasParticipant(ana.ID) {
		t.Error("creator is not a participant")
	}
	if started.Opening == nil || started.Opening.Award.XPGained != 125 {
		t.Errorf("opening = %+v", started.Opening)
	}

	plain, err := f.svc.StartThread(ctx, ana.ID, NewThread{Title: "Vide"})
	if err != nil {
		t.Fatal(err)
	}
	if plain.Thread.Genre.ID != "fantasy" || plain.Opening != nil {
		t.Errorf("plain thread = %+v", plain)
	}
}

func TestUpdateThread(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ana := f.user(t, "ana")
	th := f.thread(t, ana.ID)

	title, genre, trending := "Le phare oublié", "horror", true
	paused := models.ThreadPaused
	got, err := f.svc.UpdateThread(ctx, th.ID, ThreadChanges{Title: &title, GenreID: &genre, Trending: &trending, Status: &paused})
	if err != nil {
		t.Fatalf("UpdateThread: %v", err)
	}
	if got.Title != title || got.Genre.ID != "horror" || !got.Trending || got.Status != paused {
		t.Errorf("thread = %+v", got)
	}
	if !got.UpdatedAt.After(th.UpdatedAt) {
		t.Error("UpdatedAt did not advance")
	}

	bad := "western"
	if _, err := f.svc.UpdateThread(ctx, th.ID, ThreadChanges{GenreID: &bad}); !errors.Is(err, ErrUnknownGenre) {
		t.Errorf("err = %v, want ErrUnknownGenre", err)
	}
}

func TestRecordDailyLoginOncePerDay(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ana := f.user(t, "ana")

	award, granted, err := f.svc.RecordDailyLogin(ctx, ana.ID)
	if err != nil || !granted {
		t.Fatalf("first check-in: granted=%v err=%v", granted, err)
	}
	if award.XPGained != 10 {
		t.Errorf("XPGained = %d, want 10", award.XPGained)
	}

	_, granted, err = f.svc.RecordDailyLogin(ctx, ana.ID)
	if err != nil || granted {
		t.Errorf("second check-in: granted=%v err=%v", granted, err)
	}
	if got := f.reload(t, ana.ID).XP; got != 10 {
		t.Errorf("xp = %d, want 10", got)
	}
}

func TestProfileAndUpdateProfile(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ana := f.user(t, "ana")
	th := f.thread(t, ana.ID)
	if _, err := f.svc.Contribute(ctx, th.ID, ana.ID, "Premier pas."); err != nil {
		t.Fatal(err)
	}

	p, err := f.svc.Profile(ctx, ana.ID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.Stats.TotalSegments != 1 || p.Stats.TotalThreads != 1 || p.Stats.CurrentStreak != 0 {
		t.Errorf("stats = %+v", p.Stats)
	}
	if p.Progress.Level != 2 || p.Progress.NextLevelXP != 250 {
		t.Errorf("progress = %+v", p.Progress)
	}
	if len(p.Badges) != len(progression.BadgeRules) {
		t.Fatalf("catalog size = %d", len(p.Badges))
	}
	for _, b := range p.Badges {
		if b.Earned != (b.ID == "first_segment") {
			t.Errorf("badge %s earned = %v", b.ID, b.Earned)
		}
	}

	name := "  Ana B.  "
	u, err := f.svc.UpdateProfile(ctx, ana.ID, &name, nil)
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if u.Username != "Ana B." {
		t.Errorf("username = %q", u.Username)
	}
	blank := " "
	if _, err := f.svc.UpdateProfile(ctx, ana.ID, &blank, nil); !errors.Is(err, ErrInvalidUsername) {
		t.Errorf("err = %v, want ErrInvalidUsername", err)
	}
	if _, err := f.svc.Profile(ctx, uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}
