package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/storyverse/internal/catalog"
	"github.com/lalith-99/storyverse/internal/media"
)

// maxIdeas caps ?count= on the ideas endpoint.
const maxIdeas = 10

// GenreHandler serves the static genre catalog. It has no dependencies.
type GenreHandler struct{}

func NewGenreHandler() *GenreHandler {
	return &GenreHandler{}
}

// List handles GET /v1/genres
func (h *GenreHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, catalog.Genres())
}

// Get handles GET /v1/genres/:id
func (h *GenreHandler) Get(c *gin.Context) {
	genre, ok := catalog.GenreByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "genre not found"})
		return
	}
	c.JSON(http.StatusOK, genre)
}

// Ideas handles GET /v1/genres/:id/ideas?count=3
func (h *GenreHandler) Ideas(c *gin.Context) {
	genre, ok := catalog.GenreByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "genre not found"})
		return
	}

	count := 0
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'count' parameter"})
			return
		}
		count = min(n, maxIdeas)
	}

	c.JSON(http.StatusOK, gin.H{
		"genre": genre.ID,
		"ideas": media.StoryIdeas(genre.ID, count),
	})
}
