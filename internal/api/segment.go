package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/storyverse/internal/middleware"
	"github.com/lalith-99/storyverse/internal/models"
	"github.com/lalith-99/storyverse/internal/service"
	"go.uber.org/zap"
)

// MediaDispatcher queues a media job and returns the request as it will
// be processed.
type MediaDispatcher interface {
	Submit(ctx context.Context, req models.MediaRequest) (models.MediaRequest, error)
}

// SegmentHandler serves reactions on a segment and media requests.
type SegmentHandler struct {
	svc    *service.StoryService
	media  MediaDispatcher
	logger *zap.Logger
}

func NewSegmentHandler(svc *service.StoryService, media MediaDispatcher, logger *zap.Logger) *SegmentHandler {
	return &SegmentHandler{svc: svc, media: media, logger: logger}
}

func segmentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid segment id"})
		return uuid.Nil, false
	}
	return id, true
}

// Like handles POST /v1/segments/:id/like
func (h *SegmentHandler) Like(c *gin.Context) {
	id, ok := segmentID(c)
	if !ok {
		return
	}

	seg, err := h.svc.LikeSegment(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, "like segment", err)
		return
	}
	c.JSON(http.StatusOK, seg)
}

type commentRequest struct {
	Content string `json:"content" binding:"required"`
}

// Comment handles POST /v1/segments/:id/comments
func (h *SegmentHandler) Comment(c *gin.Context) {
	id, ok := segmentID(c)
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := h.svc.CommentOnSegment(c.Request.Context(), id, middleware.GetUserID(c), req.Content)
	if err != nil {
		writeError(c, h.logger, "add comment", err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

type mediaRequest struct {
	Prompt   string           `json:"prompt"`
	Type     models.MediaType `json:"type" binding:"required"`
	Style    string           `json:"style"`
	Duration int              `json:"duration"`
}

// RequestMedia handles POST /v1/segments/:id/media
//
// Generation takes seconds to minutes, so this only queues the job and
// answers 202. The URL shows up on the segment, and a media.ready event
// goes out on the thread's live stream.
func (h *SegmentHandler) RequestMedia(c *gin.Context) {
	id, ok := segmentID(c)
	if !ok {
		return
	}
	var req mediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	queued, err := h.media.Submit(c.Request.Context(), models.MediaRequest{
		SegmentID: id,
		Prompt:    req.Prompt,
		Type:      req.Type,
		Style:     req.Style,
		Duration:  req.Duration,
	})
	if err != nil {
		writeError(c, h.logger, "request media", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "pending", "request": queued})
}
