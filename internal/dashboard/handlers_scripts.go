package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/scriptyard/internal/models"
	"github.com/zulandar/scriptyard/internal/notify"
	"github.com/zulandar/scriptyard/internal/scripts"
	"github.com/zulandar/scriptyard/internal/store"
	"github.com/zulandar/scriptyard/internal/templates"
)

type createScriptRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Code        string `json:"code"`
	// Template fills Code from a starter template when Code is empty.
	Template string `json:"template"`
}

type updateScriptRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Code        *string `json:"code"`
}

type simulateRequest struct {
	Code string `json:"code"`
}

// simulateResult is the final event of a simulation stream.
type simulateResult struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Script  *models.Script `json:"script,omitempty"`
}

type consoleResponse struct {
	Logs      []string `json:"logs"`
	IsRunning bool     `json:"isRunning"`
}

func errorJSON(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) handleListScripts(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.List())
}

func (s *Server) handleGetScript(c *gin.Context) {
	script, ok := s.svc.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "script not found"})
		return
	}
	c.JSON(http.StatusOK, script)
}

func (s *Server) handleCreateScript(c *gin.Context) {
	var req createScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	if req.Code == "" && req.Template != "" {
		tmpl, ok := templates.Get(req.Template)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown template " + strconv.Quote(req.Template)})
			return
		}
		req.Code = tmpl.Code
	}
	script, err := s.svc.AddScript(c.Request.Context(), req.Name, req.Description, req.Code)
	if errors.Is(err, scripts.ErrNameRequired) {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, script)
}

func (s *Server) handleUpdateScript(c *gin.Context) {
	var req updateScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	patch := store.Patch{Name: req.Name, Description: req.Description, Code: req.Code}
	if patch.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}
	script, ok, err := s.svc.UpdateScript(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, script)
}

func (s *Server) handleDeleteScript(c *gin.Context) {
	if _, err := s.svc.DeleteScript(c.Request.Context(), c.Param("id")); err != nil {
		errorJSON(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleRunScript quick-runs a script. With ?wait=true the response carries
// the terminal record; otherwise the run continues after a 202.
func (s *Server) handleRunScript(c *gin.Context) {
	id := c.Param("id")
	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		script, err := s.svc.RunScript(c.Request.Context(), id)
		if err != nil {
			errorJSON(c, http.StatusInternalServerError, err)
			return
		}
		if script == nil {
			c.Status(http.StatusNoContent)
			return
		}
		c.JSON(http.StatusOK, script)
		return
	}

	if _, ok := s.svc.Get(id); ok {
		s.runs.Add(1)
		go func() {
			defer s.runs.Done()
			if _, err := s.svc.RunScript(context.Background(), id); err != nil {
				s.logger.Error("background run failed", "id", id, "err", err)
			}
		}()
	}
	c.JSON(http.StatusAccepted, gin.H{"id": id, "status": "accepted"})
}

// handleSimulateScript streams an editor run of the script as SSE.
func (s *Server) handleSimulateScript(c *gin.Context) {
	id := c.Param("id")
	var req simulateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			errorJSON(c, http.StatusBadRequest, err)
			return
		}
	}
	if _, ok := s.svc.Get(id); !ok {
		c.Status(http.StatusNoContent)
		return
	}

	startSSE(c)
	script, res, err := s.svc.SimulateScriptRun(c.Request.Context(), id, req.Code, lineEmitter(c))
	if err != nil {
		writeSSE(c.Writer, "error", gin.H{"error": err.Error()})
		c.Writer.Flush()
		return
	}
	writeSSE(c.Writer, "result", simulateResult{Success: res.Success, Error: res.Error, Script: script})
	c.Writer.Flush()
}

// handleSimulateCode streams a simulation of a raw code body as SSE.
func (s *Server) handleSimulateCode(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err)
		return
	}
	startSSE(c)
	res := s.svc.SimulateCode(req.Code, lineEmitter(c))
	writeSSE(c.Writer, "result", simulateResult{Success: res.Success, Error: res.Error})
	c.Writer.Flush()
}

func (s *Server) handleConsole(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.svc.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "script not found"})
		return
	}
	con := s.svc.Console(id)
	logs := con.Logs()
	if logs == nil {
		logs = []string{}
	}
	c.JSON(http.StatusOK, consoleResponse{Logs: logs, IsRunning: con.IsRunning()})
}

func (s *Server) handleClearConsole(c *gin.Context) {
	if _, ok := s.svc.Get(c.Param("id")); ok {
		s.svc.Console(c.Param("id")).Clear()
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Stats())
}

func (s *Server) handleTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, templates.All())
}

// maxNotifications caps GET /api/notifications.
const maxNotifications = 50

func (s *Server) handleNotifications(c *gin.Context) {
	events := []notify.Event{}
	if s.notes != nil {
		all := s.notes.Events()
		if len(all) > maxNotifications {
			all = all[len(all)-maxNotifications:]
		}
		events = append(events, all...)
	}
	c.JSON(http.StatusOK, events)
}
