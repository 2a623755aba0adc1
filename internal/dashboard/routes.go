package dashboard

import (
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, s *Server) {
	api := router.Group("/api")

	api.GET("/scripts", s.handleListScripts)
	api.POST("/scripts", s.handleCreateScript)
	api.GET("/scripts/:id", s.handleGetScript)
	api.PATCH("/scripts/:id", s.handleUpdateScript)
	api.DELETE("/scripts/:id", s.handleDeleteScript)
	api.POST("/scripts/:id/run", s.handleRunScript)
	api.POST("/scripts/:id/simulate", s.handleSimulateScript)
	api.GET("/scripts/:id/console", s.handleConsole)
	api.DELETE("/scripts/:id/console", s.handleClearConsole)
	api.POST("/simulate", s.handleSimulateCode)

	api.GET("/stats", s.handleStats)
	api.GET("/templates", s.handleTemplates)
	api.GET("/notifications", s.handleNotifications)

	api.POST("/audits", s.handleCreateAudit)
	api.GET("/audits", s.handleListAudits)
	api.GET("/audits/stats", s.handleAuditStats)
	api.POST("/audits/:id/run", s.handleRerunAudit)

	api.GET("/events", s.handleEvents)
	router.GET("/ws", func(c *gin.Context) {
		s.hub.serveWS(c.Writer, c.Request, s.origins)
	})
}
