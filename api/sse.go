package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"xrparena/events"
)

// handleSessionEventsSSE streams the outbound event feed (§6) as
// server-sent events, replaying the bounded ring before live delivery
// begins — Subscribe already does the replay, so this handler only
// needs to forward. Replayed and live events pass through a 64-event
// buffer and any event that finds it full is dropped, so a ring longer
// than the buffer is replayed only in part.
func (s *Server) handleSessionEventsSSE(c *gin.Context) {
	o := s.orchestratorFor(instanceName)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	out := make(chan events.Event, 64)
	unsub := o.Subscribe(func(e events.Event) error {
		select {
		case out <- e:
		default:
			// slow subscriber: drop rather than block the orchestrator's actor goroutine.
		}
		return nil
	})
	defer unsub()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-out:
			blob, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if _, err := c.Writer.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := c.Writer.Write(blob); err != nil {
				return
			}
			if _, err := c.Writer.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
