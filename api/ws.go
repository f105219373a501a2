package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"xrparena/events"
)

// upgrader accepts connections from any origin: this host is an
// illustrative reference server, not a hardened public API.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleSessionWS upgrades to a websocket and pushes every event the
// subscriber receives, matching the SSE handler's delivery semantics
// but for clients that want a persistent duplex socket.
func (s *Server) handleSessionWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	o := s.orchestratorFor(instanceName)

	out := make(chan events.Event, 64)
	unsub := o.Subscribe(func(e events.Event) error {
		select {
		case out <- e:
		default:
		}
		return nil
	})
	defer unsub()

	// Drain inbound frames on a background goroutine so the client's
	// close/ping frames are observed; this handler never expects
	// structured input from the client.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case e := <-out:
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		}
	}
}
