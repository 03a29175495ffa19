package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/llm-bench/engine/pkg/models"
)

// RegisterModelRequest is the request body for register_model.
type RegisterModelRequest struct {
	Alias    string `json:"alias" binding:"required"`
	ModelID  string `json:"model_id" binding:"required"`
	Endpoint string `json:"endpoint,omitempty"`
}

func (s *Server) handleRegisterModel(c *gin.Context) {
	ctx := c.Request.Context()

	var req RegisterModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: sanitizeValidationError(err), RequestID: c.GetString("request_id")})
		return
	}

	m := &models.Model{
		ID:        uuid.New().String(),
		Alias:     req.Alias,
		ModelID:   req.ModelID,
		Endpoint:  req.Endpoint,
		Status:    models.ModelStopped,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.SaveModel(ctx, m); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, m)
}

func (s *Server) handleDeleteModel(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if err := s.repo.DeleteModel(ctx, id); err != nil {
		s.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) handleLoadModel(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	descriptor, err := s.repo.GetModel(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	target := descriptor.ModelID
	if target == "" {
		target = descriptor.Alias
	}

	info, err := s.orch.Load(ctx, id, target)
	if err != nil {
		_ = s.repo.UpdateModelStatus(ctx, id, models.ModelError, "", err.Error())
		s.respondError(c, err)
		return
	}

	_ = s.repo.UpdateModelStatus(ctx, id, models.ModelRunning, s.orch.Endpoint(), "")
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleUnloadModel(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	descriptor, err := s.repo.GetModel(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	target := descriptor.ModelID
	if target == "" {
		target = descriptor.Alias
	}

	if err := s.orch.Unload(ctx, id, target); err != nil {
		s.respondError(c, err)
		return
	}

	_ = s.repo.UpdateModelStatus(ctx, id, models.ModelStopped, "", "")
	c.Status(http.StatusNoContent)
}

func (s *Server) handleModelHealth(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	info, ok := s.orch.GetLoaded(id)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:     models.ErrNotFound.Error() + ": model " + id + " is not loaded",
			RequestID: c.GetString("request_id"),
		})
		return
	}

	health := s.orch.CheckHealth(ctx, info.Alias)
	c.JSON(http.StatusOK, health)
}

func (s *Server) handleListAvailable(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, s.orch.ListAvailable(ctx))
}
