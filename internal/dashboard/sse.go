package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

// sseEvent is one server-sent event.
type sseEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// startSSE writes the event-stream headers.
func startSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(200)
}

// handleEvents streams store changes as "script" and "stats" events, with a
// heartbeat to keep proxies from closing idle connections.
func (s *Server) handleEvents(c *gin.Context) {
	startSSE(c)

	events, cancel := s.feed.Subscribe()
	defer cancel()

	writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
	writeSSE(c.Writer, "stats", s.svc.Stats())
	c.Writer.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(s.beat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writeSSE(c.Writer, "heartbeat", map[string]string{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			c.Writer.Flush()
		case evt, ok := <-events:
			if !ok {
				return
			}
			writeSSE(c.Writer, evt.Event, evt.Data)
			c.Writer.Flush()
		}
	}
}

// lineEmitter returns an emit func that writes each console line as a "log"
// event. Writes after the client leaves are discarded; the run carries on.
func lineEmitter(c *gin.Context) func(string) {
	return func(line string) {
		writeSSE(c.Writer, "log", gin.H{"line": line})
		c.Writer.Flush()
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
