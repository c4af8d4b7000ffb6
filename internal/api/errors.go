package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/storyverse/internal/media"
	"github.com/lalith-99/storyverse/internal/repository"
	"github.com/lalith-99/storyverse/internal/service"
	"go.uber.org/zap"
)

// writeError maps domain errors to a status and a message safe to show.
// Anything unrecognized is logged and reported as "failed to <op>".
func writeError(c *gin.Context, logger *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidContent),
		errors.Is(err, service.ErrUnknownGenre),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidUsername),
		errors.Is(err, media.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrThreadNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "thread not found"})
	case errors.Is(err, service.ErrSegmentNotFound), errors.Is(err, media.ErrSegmentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "segment not found"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, repository.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	default:
		logger.Error("failed to "+op, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + op})
	}
}
