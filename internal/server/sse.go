package server

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/hamza/scanhub/internal/models"
)

func sseHeaders(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
}

// streamEvents forwards hub events for key until the terminal event closes
// the subscription or the client goes away.
func (s *Server) streamEvents(c *gin.Context, key string) {
	ch, cancel := s.hub.Subscribe(key)
	defer cancel()

	sseHeaders(c)
	// Push headers out immediately so clients know the stream is open
	// before the first event arrives.
	c.Writer.Flush()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev.Data)
			return !ev.Terminal()
		}
	})
}

// replayEvents writes a fixed event sequence and closes the stream. Used
// when the entity already finished before the client connected.
func (s *Server) replayEvents(c *gin.Context, events []models.StatusEvent) {
	sseHeaders(c)
	for _, ev := range events {
		c.SSEvent(string(ev.Type), ev.Data)
	}
	c.Writer.Flush()
}
