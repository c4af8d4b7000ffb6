package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/storyverse/internal/middleware"
	"github.com/lalith-99/storyverse/internal/models"
	"github.com/lalith-99/storyverse/internal/repository"
	"github.com/lalith-99/storyverse/internal/service"
	"go.uber.org/zap"
)

// ThreadStreamer takes over a request and streams a thread's live events.
type ThreadStreamer interface {
	ServeThread(w http.ResponseWriter, r *http.Request, threadID uuid.UUID) error
}

// ThreadHandler serves threads and their segments. Reads go straight to
// the repositories; anything that earns XP goes through the service.
type ThreadHandler struct {
	threads  repository.ThreadRepository
	segments repository.SegmentRepository
	svc      *service.StoryService
	live     ThreadStreamer
	logger   *zap.Logger
}

func NewThreadHandler(
	threads repository.ThreadRepository,
	segments repository.SegmentRepository,
	svc *service.StoryService,
	live ThreadStreamer,
	logger *zap.Logger,
) *ThreadHandler {
	return &ThreadHandler{
		threads:  threads,
		segments: segments,
		svc:      svc,
		live:     live,
		logger:   logger,
	}
}

// threadID parses the :id path parameter, answering 400 itself on failure.
func threadID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid thread id"})
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /v1/threads?status=ongoing&genre=fantasy
//
// Most recently updated first. An empty result is [], never null.
func (h *ThreadHandler) List(c *gin.Context) {
	filter := models.ThreadFilter{
		Status:  models.ThreadStatus(c.Query("status")),
		GenreID: c.Query("genre"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'status' parameter"})
		return
	}

	threads, err := h.threads.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list threads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list threads"})
		return
	}
	c.JSON(http.StatusOK, threads)
}

type createThreadRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
	// Content is the optional opening segment.
	Content string `json:"content"`
}

// Create handles POST /v1/threads
func (h *ThreadHandler) Create(c *gin.Context) {
	var req createThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	started, err := h.svc.StartThread(c.Request.Context(), middleware.GetUserID(c), service.NewThread{
		Title:       req.Title,
		Description: req.Description,
		GenreID:     req.Genre,
		Opening:     req.Content,
	})
	if err != nil {
		writeError(c, h.logger, "create thread", err)
		return
	}
	c.JSON(http.StatusCreated, started)
}

// Get handles GET /v1/threads/:id
func (h *ThreadHandler) Get(c *gin.Context) {
	id, ok := threadID(c)
	if !ok {
		return
	}

	thread, err := h.threads.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to get thread", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get thread"})
		return
	}
	if thread == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		return
	}
	c.JSON(http.StatusOK, thread)
}

type updateThreadRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Genre       *string              `json:"genre"`
	Status      *models.ThreadStatus `json:"status"`
	Trending    *bool                `json:"trending"`
}

// Update handles PATCH /v1/threads/:id. Setting status to "completed"
// rewards every participant.
func (h *ThreadHandler) Update(c *gin.Context) {
	id, ok := threadID(c)
	if !ok {
		return
	}
	var req updateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	thread, err := h.svc.UpdateThread(c.Request.Context(), id, service.ThreadChanges{
		Title:       req.Title,
		Description: req.Description,
		GenreID:     req.Genre,
		Trending:    req.Trending,
		Status:      req.Status,
	})
	if err != nil {
		writeError(c, h.logger, "update thread", err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

// ListSegments handles GET /v1/threads/:id/segments
func (h *ThreadHandler) ListSegments(c *gin.Context) {
	id, ok := threadID(c)
	if !ok {
		return
	}

	// ListByThread can't tell an empty thread from a missing one.
	thread, err := h.threads.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to get thread", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list segments"})
		return
	}
	if thread == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		return
	}

	segments, err := h.segments.ListByThread(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to list segments", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list segments"})
		return
	}
	c.JSON(http.StatusOK, segments)
}

type contributeRequest struct {
	Content string `json:"content" binding:"required"`
}

// Contribute handles POST /v1/threads/:id/segments
func (h *ThreadHandler) Contribute(c *gin.Context) {
	id, ok := threadID(c)
	if !ok {
		return
	}
	var req contributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contribution, err := h.svc.Contribute(c.Request.Context(), id, middleware.GetUserID(c), req.Content)
	if err != nil {
		writeError(c, h.logger, "add segment", err)
		return
	}
	c.JSON(http.StatusCreated, contribution)
}

// Live handles GET /v1/threads/:id/live, upgrading to a websocket that
// carries the thread's events.
func (h *ThreadHandler) Live(c *gin.Context) {
	id, ok := threadID(c)
	if !ok {
		return
	}

	thread, err := h.threads.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to get thread", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open stream"})
		return
	}
	if thread == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
		return
	}

	userID := middleware.GetUserID(c)
	h.logger.Debug("live stream opened",
		zap.String("thread_id", id.String()),
		zap.String("user_id", userID.String()),
	)
	if err := h.live.ServeThread(c.Writer, c.Request, id); err != nil {
		h.logger.Warn("live stream ended with error",
			zap.String("thread_id", id.String()),
			zap.Error(err),
		)
	}
}
