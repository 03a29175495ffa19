package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, HealthzResponse{Status: "ok", Timestamp: time.Now().UTC()})
}

func (s *Server) handleReady(c *gin.Context) {
	response := ReadyResponse{Ready: s.ready.Load(), Timestamp: time.Now().UTC()}
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}
