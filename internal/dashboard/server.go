package dashboard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/scriptyard/internal/auditor"
	"github.com/zulandar/scriptyard/internal/notify"
	"github.com/zulandar/scriptyard/internal/scripts"
)

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	Service *scripts.Service
	Auditor *auditor.Auditor
	// Notifications, when set, backs GET /api/notifications.
	Notifications *notify.Recorder
	Port          int
	Out           io.Writer
	Logger        *slog.Logger
	// AllowedOrigins are websocket origin patterns. Empty means same-origin.
	AllowedOrigins []string
	// Heartbeat is the SSE keep-alive interval. Defaults to 15s.
	Heartbeat time.Duration
}

// Server serves the JSON API and the live feeds.
type Server struct {
	router  *gin.Engine
	svc     *scripts.Service
	aud     *auditor.Auditor
	notes   *notify.Recorder
	logger  *slog.Logger
	origins []string
	beat    time.Duration

	hub  *Hub
	feed *Feed

	// runs tracks background quick runs started by the API.
	runs sync.WaitGroup
	wg   sync.WaitGroup
}

// New builds a Server and starts its websocket hub. Call Stop to release it.
func New(opts StartOpts) (*Server, error) {
	if opts.Service == nil {
		return nil, fmt.Errorf("dashboard: service is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Auditor == nil {
		opts.Auditor = auditor.New(opts.Service, nil, opts.Logger)
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = 15 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(opts.Logger))

	s := &Server{
		router:  router,
		svc:     opts.Service,
		aud:     opts.Auditor,
		notes:   opts.Notifications,
		logger:  opts.Logger,
		origins: opts.AllowedOrigins,
		beat:    opts.Heartbeat,
		hub:     NewHub(opts.Logger),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.hub.Run()
	}()
	s.feed = NewFeed(opts.Service.Store(), s.hub)

	registerRoutes(router, s)
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Stop detaches the feeds, waits for background runs and shuts down the hub.
func (s *Server) Stop() {
	s.feed.Close()
	s.runs.Wait()
	s.hub.Stop()
	s.wg.Wait()
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	s, err := New(opts)
	if err != nil {
		return err
	}
	defer s.Stop()

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d\n", opts.Port)
	}
	s.logger.Info("dashboard listening", "addr", addr)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// requestLogger logs one line per request at debug level.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"dur", time.Since(start),
		)
	}
}
