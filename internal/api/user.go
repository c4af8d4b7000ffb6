package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/storyverse/internal/middleware"
	"github.com/lalith-99/storyverse/internal/repository"
	"github.com/lalith-99/storyverse/internal/service"
	"go.uber.org/zap"
)

// UserHandler serves the caller's own account and other users' stats.
type UserHandler struct {
	repo   repository.UserRepository
	svc    *service.StoryService
	logger *zap.Logger
}

func NewUserHandler(repo repository.UserRepository, svc *service.StoryService, logger *zap.Logger) *UserHandler {
	return &UserHandler{repo: repo, svc: svc, logger: logger}
}

// GetMe handles GET /v1/users/me
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.repo.GetByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.logger.Error("failed to get user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user"})
		return
	}

	// A valid token for a user that no longer exists.
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Profile handles GET /v1/users/me/profile: level progress, stats and the
// badge catalog with earned flags.
func (h *UserHandler) Profile(c *gin.Context) {
	profile, err := h.svc.Profile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.logger, "get profile", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type updateMeRequest struct {
	Username *string `json:"username"`
	Avatar   *string `json:"avatar"`
}

// UpdateMe handles PATCH /v1/users/me. Absent fields are left alone.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req updateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.svc.UpdateProfile(c.Request.Context(), middleware.GetUserID(c), req.Username, req.Avatar)
	if err != nil {
		writeError(c, h.logger, "update user", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Stats handles GET /v1/users/:id/stats
func (h *UserHandler) Stats(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	stats, err := h.svc.Stats(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, "get stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type checkInResponse struct {
	Granted bool           `json:"granted"`
	Award   *service.Award `json:"award,omitempty"`
}

// CheckIn handles POST /v1/users/me/checkin. The daily-login reward is
// granted on the first call of each UTC day; later calls report
// granted=false.
func (h *UserHandler) CheckIn(c *gin.Context) {
	award, granted, err := h.svc.RecordDailyLogin(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.logger, "check in", err)
		return
	}
	c.JSON(http.StatusOK, checkInResponse{Granted: granted, Award: award})
}
