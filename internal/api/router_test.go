package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/storyverse/internal/activity"
	"github.com/lalith-99/storyverse/internal/live"
	"github.com/lalith-99/storyverse/internal/media"
	"github.com/lalith-99/storyverse/internal/models"
	"github.com/lalith-99/storyverse/internal/repository/memory"
	"github.com/lalith-99/storyverse/internal/service"
	"go.uber.org/zap"
)

type testServer struct {
	router     *gin.Engine
	dispatcher *media.Dispatcher
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	store := memory.New()
	hub := live.NewHub(logger)
	svc := service.NewStoryService(store, activity.NewMemoryTracker(), hub, logger)
	dispatcher := media.NewDispatcher(context.Background(), media.NewPlaceholderGenerator(0, 0),
		store.Segments(), hub, logger, media.RetryPolicy{Attempts: 1, Delay: time.Millisecond})

	return testServer{
		router: NewRouter(RouterConfig{
			Store:     store,
			Service:   svc,
			Media:     dispatcher,
			Live:      hub,
			Metrics:   http.NotFoundHandler(),
			JWTSecret: "test-secret",
			TokenTTL:  time.Hour,
			Logger:    logger,
		}),
		dispatcher: dispatcher,
	}
}

// do sends a JSON request and decodes the JSON answer into out when out
// is non-nil.
func (s testServer) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if out != nil && w.Code < 300 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code
}

func (s testServer) signup(t *testing.T, email string) (string, models.User) {
	t.Helper()
	var resp authResponse
	code := s.do(t, http.MethodPost, "/v1/auth/signup", "", gin.H{
		"email":    email,
		"password": "correct-horse",
		"username": "writer",
	}, &resp)
	if code != http.StatusCreated {
		t.Fatalf("signup %s: status %d", email, code)
	}
	return resp.Token, *resp.User
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t)
	if code := s.do(t, http.MethodGet, "/v1/health", "", nil, nil); code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
}

func TestHealthReportsStoreFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(RouterConfig{
		Store:  memory.New(),
		Health: func(context.Context) error { return errors.New("db down") },
		Logger: zap.NewNop(),
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token, user := s.signup(t, "ana@example.com")
	if token == "" || user.Level != 1 || user.XP != 0 {
		t.Fatalf("signup returned token %q user %+v", token, user)
	}

	tests := []struct {
		name string
		path string
		body gin.H
		want int
	}{
		{name: "duplicate email", path: "/v1/auth/signup", body: gin.H{"email": "ANA@example.com", "password": "correct-horse"}, want: http.StatusConflict},
		{name: "short password", path: "/v1/auth/signup", body: gin.H{"email": "ben@example.com", "password": "short"}, want: http.StatusBadRequest},
		{name: "bad email", path: "/v1/auth/signup", body: gin.H{"email": "nope", "password": "correct-horse"}, want: http.StatusBadRequest},
		{name: "login", path: "/v1/auth/login", body: gin.H{"email": "ana@example.com", "password": "correct-horse"}, want: http.StatusOK},
		{name: "wrong password", path: "/v1/auth/login", body: gin.H{"email": "ana@example.com", "password": "wrong-horse"}, want: http.StatusUnauthorized},
		{name: "unknown email", path: "/v1/auth/login", body: gin.H{"email": "zed@example.com", "password": "correct-horse"}, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := s.do(t, http.MethodPost, tt.path, "", tt.body, nil); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
		})
	}

	var me models.User
	if code := s.do(t, http.MethodGet, "/v1/users/me", token, nil, &me); code != http.StatusOK {
		t.Fatalf("GET /users/me: %d", code)
	}
	if me.ID != user.ID || me.Username != "writer" {
		t.Errorf("me = %+v", me)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	s := newTestServer(t)
	paths := []struct{ method, path string }{
		{http.MethodGet, "/v1/users/me"},
		{http.MethodGet, "/v1/threads"},
		{http.MethodPost, "/v1/threads"},
		{http.MethodGet, "/v1/genres"},
		{http.MethodPost, "/v1/segments/" + uuid.NewString() + "/like"},
	}
	for _, p := range paths {
		if code := s.do(t, p.method, p.path, "", nil, nil); code != http.StatusUnauthorized {
			t.Errorf("%s %s = %d, want 401", p.method, p.path, code)
		}
	}
}

func TestStoryFlow(t *testing.T) {
	s := newTestServer(t)
	anaToken, ana := s.signup(t, "ana@example.com")
	benToken, _ := s.signup(t, "ben@example.com")

	var started service.StartedThread
	code := s.do(t, http.MethodPost, "/v1/threads", anaToken, gin.H{
		"title":   "La forêt",
		"genre":   "fantasy",
		"content": "Les arbres chuchotaient.",
	}, &started)
	if code != http.StatusCreated {
		t.Fatalf("create thread: %d", code)
	}
	threadPath := "/v1/threads/" + started.Thread.ID.String()

	var contribution service.Contribution
	if code := s.do(t, http.MethodPost, threadPath+"/segments", benToken, gin.H{"content": "Une lueur apparut."}, &contribution); code != http.StatusCreated {
		t.Fatalf("contribute: %d", code)
	}
	if contribution.Segment.Order != 2 || contribution.Award.XPGained != 125 {
		t.Errorf("contribution = segment %+v award %+v", contribution.Segment, contribution.Award)
	}
	segPath := "/v1/segments/" + contribution.Segment.ID.String()

	errorCases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "contribute to missing thread", method: http.MethodPost, path: "/v1/threads/" + uuid.NewString() + "/segments", body: gin.H{"content": "x"}, want: http.StatusNotFound},
		{name: "blank content", method: http.MethodPost, path: threadPath + "/segments", body: gin.H{"content": "   "}, want: http.StatusBadRequest},
		{name: "bad thread id", method: http.MethodGet, path: "/v1/threads/not-a-uuid", want: http.StatusBadRequest},
		{name: "missing thread", method: http.MethodGet, path: "/v1/threads/" + uuid.NewString(), want: http.StatusNotFound},
		{name: "unknown genre", method: http.MethodPost, path: "/v1/threads", body: gin.H{"genre": "western"}, want: http.StatusBadRequest},
		{name: "bad status filter", method: http.MethodGet, path: "/v1/threads?status=archived", want: http.StatusBadRequest},
		{name: "like missing segment", method: http.MethodPost, path: "/v1/segments/" + uuid.NewString() + "/like", want: http.StatusNotFound},
		{name: "media bad type", method: http.MethodPost, path: segPath + "/media", body: gin.H{"type": "gif"}, want: http.StatusBadRequest},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			if code := s.do(t, tt.method, tt.path, anaToken, tt.body, nil); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
		})
	}

	var liked models.Segment
	if code := s.do(t, http.MethodPost, segPath+"/like", anaToken, nil, &liked); code != http.StatusOK || liked.Likes != 1 {
		t.Errorf("like: %d likes=%d", code, liked.Likes)
	}
	if code := s.do(t, http.MethodPost, segPath+"/comments", anaToken, gin.H{"content": "Joli !"}, nil); code != http.StatusCreated {
		t.Errorf("comment: %d", code)
	}

	if code := s.do(t, http.MethodPost, segPath+"/media", anaToken, gin.H{"type": "video", "style": "anime"}, nil); code != http.StatusAccepted {
		t.Fatalf("media: %d", code)
	}
	s.dispatcher.Wait()

	var thread models.Thread
	if code := s.do(t, http.MethodGet, threadPath, anaToken, nil, &thread); code != http.StatusOK {
		t.Fatalf("get thread: %d", code)
	}
	if len(thread.Segments) != 2 || len(thread.Participants) != 2 {
		t.Fatalf("thread = %d segments, %d participants", len(thread.Segments), len(thread.Participants))
	}
	second := thread.Segments[1]
	if second.MediaType != models.MediaVideo || second.MediaURL == "" || second.Likes != 1 || len(second.Comments) != 1 {
		t.Errorf("second segment = %+v", second)
	}

	var segments []models.Segment
	if code := s.do(t, http.MethodGet, threadPath+"/segments", benToken, nil, &segments); code != http.StatusOK || len(segments) != 2 {
		t.Errorf("list segments: %d, %d items", code, len(segments))
	}

	var updated models.Thread
	if code := s.do(t, http.MethodPatch, threadPath, anaToken, gin.H{"status": "completed"}, &updated); code != http.StatusOK {
		t.Fatalf("complete thread: %d", code)
	}
	if updated.Status != models.ThreadCompleted {
		t.Errorf("status = %s", updated.Status)
	}

	var listed []models.Thread
	if code := s.do(t, http.MethodGet, "/v1/threads?status=completed&genre=fantasy", anaToken, nil, &listed); code != http.StatusOK || len(listed) != 1 {
		t.Errorf("filtered list: %d, %d items", code, len(listed))
	}
	if code := s.do(t, http.MethodGet, "/v1/threads?status=ongoing", anaToken, nil, &listed); code != http.StatusOK || len(listed) != 0 {
		t.Errorf("ongoing list: %d, %d items", code, len(listed))
	}

	// Ana: 125 for the opening segment and its badge, 100 for completion.
	var stats models.UserStats
	if code := s.do(t, http.MethodGet, "/v1/users/"+ana.ID.String()+"/stats", benToken, nil, &stats); code != http.StatusOK {
		t.Fatalf("stats: %d", code)
	}
	if stats.TotalSegments != 1 || stats.TotalThreads != 1 || stats.TotalXP != 225 {
		t.Errorf("ana stats = %+v", stats)
	}

	var profile service.Profile
	if code := s.do(t, http.MethodGet, "/v1/users/me/profile", benToken, nil, &profile); code != http.StatusOK {
		t.Fatalf("profile: %d", code)
	}
	// 125 contribution, 5 like, 3 comment, 100 completion.
	if profile.User.XP != 233 || profile.Progress.Level != 2 {
		t.Errorf("ben profile = xp %d level %d", profile.User.XP, profile.Progress.Level)
	}
}

func TestCheckIn(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup(t, "ana@example.com")

	var first, second checkInResponse
	if code := s.do(t, http.MethodPost, "/v1/users/me/checkin", token, nil, &first); code != http.StatusOK {
		t.Fatalf("checkin: %d", code)
	}
	if !first.Granted || first.Award == nil || first.Award.XPGained != 10 {
		t.Errorf("first checkin = %+v", first)
	}
	s.do(t, http.MethodPost, "/v1/users/me/checkin", token, nil, &second)
	if second.Granted || second.Award != nil {
		t.Errorf("second checkin = %+v", second)
	}
}

func TestUpdateMe(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup(t, "ana@example.com")

	var user models.User
	if code := s.do(t, http.MethodPatch, "/v1/users/me", token, gin.H{"username": "Ana", "avatar": "https://a/1.png"}, &user); code != http.StatusOK {
		t.Fatalf("patch: %d", code)
	}
	if user.Username != "Ana" || user.Avatar != "https://a/1.png" {
		t.Errorf("user = %+v", user)
	}
	if code := s.do(t, http.MethodPatch, "/v1/users/me", token, gin.H{"username": "  "}, nil); code != http.StatusBadRequest {
		t.Errorf("blank username: %d, want 400", code)
	}
}

func TestGenres(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup(t, "ana@example.com")

	var genres []models.Genre
	if code := s.do(t, http.MethodGet, "/v1/genres", token, nil, &genres); code != http.StatusOK || len(genres) != 6 {
		t.Errorf("genres: %d, %d items", code, len(genres))
	}
	if code := s.do(t, http.MethodGet, "/v1/genres/western", token, nil, nil); code != http.StatusNotFound {
		t.Errorf("unknown genre: %d", code)
	}

	var ideas struct {
		Genre string   `json:"genre"`
		Ideas []string `json:"ideas"`
	}
	if code := s.do(t, http.MethodGet, "/v1/genres/horror/ideas?count=2", token, nil, &ideas); code != http.StatusOK {
		t.Fatalf("ideas: %d", code)
	}
	if ideas.Genre != "horror" || len(ideas.Ideas) != 2 {
		t.Errorf("ideas = %+v", ideas)
	}
	if code := s.do(t, http.MethodGet, "/v1/genres/horror/ideas?count=0", token, nil, nil); code != http.StatusBadRequest {
		t.Errorf("count=0: %d, want 400", code)
	}
}
