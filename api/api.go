// Package api exposes the songstore HTTP surface: CRUD plus list over
// songs, a service banner and a storage-backed health probe.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nisimpson/songstore"
)

// Handler routes requests to the song service and maps outcomes to
// transport status codes. It is stateless; any number of requests may
// be in flight concurrently.
type Handler struct {
	songs *songstore.Service
	log   *zap.Logger
}

// New returns a Handler over the given service.
func New(songs *songstore.Service, log *zap.Logger) *Handler {
	return &Handler{songs: songs, log: log}
}

// Router builds the gin engine with all routes registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLog())

	router.GET("/", h.root)
	router.GET("/health", h.health)

	router.GET("/songs", h.listSongs)
	router.POST("/songs", h.createSong)
	router.GET("/songs/:id", h.getSong)
	router.PUT("/songs/:id", h.updateSong)
	router.DELETE("/songs/:id", h.deleteSong)

	return router
}

// createSongRequest binds and validates the create body. Plays is a
// pointer so an omitted counter can default to zero.
type createSongRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=200"`
	Path  string `json:"path" binding:"required"`
	Plays *int   `json:"plays" binding:"omitempty,gte=0"`
}

// updateSongRequest binds the partial-update body. Every field is
// independently optional; nil fields are left untouched.
type updateSongRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=200"`
	Path  *string `json:"path"`
	Plays *int    `json:"plays" binding:"omitempty,gte=0"`
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": songstore.Name,
		"status":  "healthy",
		"version": songstore.Version,
	})
}

// health exercises the list operation end to end as a connectivity
// check. A failing probe reports unhealthy without crashing anything.
func (h *Handler) health(c *gin.Context) {
	if _, err := h.songs.List(c.Request.Context()); err != nil {
		h.log.Error("health probe failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
	})
}

func (h *Handler) listSongs(c *gin.Context) {
	songs, err := h.songs.List(c.Request.Context())
	if err != nil {
		h.internalError(c, "list songs", err)
		return
	}
	if songs == nil {
		songs = []songstore.Song{}
	}
	c.JSON(http.StatusOK, songs)
}

func (h *Handler) createSong(c *gin.Context) {
	var req createSongRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalidInput(c, err)
		return
	}

	song, err := h.songs.Create(c.Request.Context(), songstore.CreateSongInput{
		Name:  req.Name,
		Path:  req.Path,
		Plays: req.Plays,
	})
	if err != nil {
		h.internalError(c, "create song", err)
		return
	}
	c.JSON(http.StatusCreated, song)
}

func (h *Handler) getSong(c *gin.Context) {
	song, err := h.songs.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, songstore.ErrSongNotFound) {
		h.notFound(c)
		return
	}
	if err != nil {
		h.internalError(c, "get song", err)
		return
	}
	c.JSON(http.StatusOK, song)
}

func (h *Handler) updateSong(c *gin.Context) {
	var req updateSongRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalidInput(c, err)
		return
	}

	song, err := h.songs.Update(c.Request.Context(), c.Param("id"), songstore.SongPatch{
		Name:  req.Name,
		Path:  req.Path,
		Plays: req.Plays,
	})
	if errors.Is(err, songstore.ErrSongNotFound) {
		h.notFound(c)
		return
	}
	if err != nil {
		h.internalError(c, "update song", err)
		return
	}
	c.JSON(http.StatusOK, song)
}

func (h *Handler) deleteSong(c *gin.Context) {
	song, err := h.songs.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, songstore.ErrSongNotFound) {
		h.notFound(c)
		return
	}
	if err != nil {
		h.internalError(c, "delete song", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "song deleted successfully",
		"deleted_song": song,
	})
}

func (h *Handler) invalidInput(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"error":  "invalid song payload",
		"detail": err.Error(),
	})
}

func (h *Handler) notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "song not found"})
}

// internalError logs the cause and answers with a generic message so
// backend detail never leaks to callers.
func (h *Handler) internalError(c *gin.Context, op string, err error) {
	h.log.Error("operation failed", zap.String("op", op), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func (h *Handler) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
