package dashboard

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/scriptyard/internal/auditor"
)

type auditRequest struct {
	URL string `json:"url" binding:"required"`
}

// handleCreateAudit creates a scan for the URL and waits for its quick run.
func (s *Server) handleCreateAudit(c *gin.Context) {
	var req auditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	script, err := s.aud.Scan(c.Request.Context(), req.URL)
	if errors.Is(err, auditor.ErrInvalidURL) {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, script)
}

func (s *Server) handleListAudits(c *gin.Context) {
	scans := s.aud.Recent()
	if scans == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, scans)
}

func (s *Server) handleAuditStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.aud.Stats())
}

func (s *Server) handleRerunAudit(c *gin.Context) {
	script, err := s.aud.Rerun(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	if script == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, script)
}
