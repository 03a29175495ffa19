package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListSuites(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog.List())
}
