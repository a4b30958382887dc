package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xaenox/safeguard/internal/filter"
	"github.com/xaenox/safeguard/internal/ingest"
	"github.com/xaenox/safeguard/internal/models"
	"github.com/xaenox/safeguard/internal/storage"
)

type filterRequest struct {
	Content    string `json:"content"`
	IsUnder13  bool   `json:"is_under_13"`
	StrictMode bool   `json:"strict_mode"`
}

// handleFilter handles POST /api/v1/filter
func (s *Server) handleFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	c.JSON(http.StatusOK, filter.Filter(req.Content, req.IsUnder13, req.StrictMode))
}

type messageRequest struct {
	Room      models.Room `json:"room"`
	AuthorID  string      `json:"author_id" binding:"required"`
	ChatbotID string      `json:"chatbot_id"`
	Role      models.Role `json:"role" binding:"required"`
	Content   string      `json:"content" binding:"required"`
}

// handleMessage handles POST /api/v1/messages
func (s *Server) handleMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Room.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room.id is required"})
		return
	}

	res, err := s.gate.Accept(c.Request.Context(), ingest.Incoming{
		RoomID:    req.Room.ID,
		AuthorID:  req.AuthorID,
		ChatbotID: req.ChatbotID,
		Role:      req.Role,
		Content:   req.Content,
		Room:      req.Room,
	})
	if err != nil {
		if errors.Is(err, ingest.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.logger.Error("Failed to accept message", zap.Error(err), zap.String("room_id", req.Room.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store message"})
		return
	}

	c.JSON(http.StatusCreated, res)
}

// handlePutProfile handles PUT /api/v1/profiles/:id
func (s *Server) handlePutProfile(c *gin.Context) {
	var p models.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	p.ID = c.Param("id")

	if err := s.store.SaveProfile(c.Request.Context(), &p); err != nil {
		s.logger.Error("Failed to save profile", zap.Error(err), zap.String("profile_id", p.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save profile"})
		return
	}

	c.JSON(http.StatusOK, p)
}

// handleListFlags handles GET /api/v1/flags
func (s *Server) handleListFlags(c *gin.Context) {
	f := storage.FlagFilter{
		TeacherID: c.Query("teacher_id"),
		Status:    models.FlagStatus(c.Query("status")),
	}
	if f.Status != "" && !f.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	flags, err := s.store.ListFlags(c.Request.Context(), f)
	if err != nil {
		s.logger.Error("Failed to list flags", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve flags"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"flags": flags})
}

// handleGetFlag handles GET /api/v1/flags/:id
func (s *Server) handleGetFlag(c *gin.Context) {
	id := c.Param("id")

	flag, err := s.store.GetFlag(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Flag not found"})
			return
		}
		s.logger.Error("Failed to get flag", zap.Error(err), zap.String("flag_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve flag"})
		return
	}

	c.JSON(http.StatusOK, flag)
}

type reviewRequest struct {
	Status models.FlagStatus `json:"status" binding:"required"`
	Notes  string            `json:"notes"`
}

// handleReviewFlag handles PATCH /api/v1/flags/:id
func (s *Server) handleReviewFlag(c *gin.Context) {
	id := c.Param("id")

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	flag, err := s.store.ReviewFlag(c.Request.Context(), id, req.Status, req.Notes)
	switch {
	case errors.Is(err, storage.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Flag not found"})
		return
	case err != nil:
		s.logger.Error("Failed to review flag", zap.Error(err), zap.String("flag_id", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update flag"})
		return
	}

	s.logger.Info("Flag reviewed", zap.String("flag_id", id), zap.String("status", string(flag.Status)))
	c.JSON(http.StatusOK, flag)
}
