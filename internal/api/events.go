package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"verbatim/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamJobEvents handles GET /api/v1/jobs/:id/events: a WebSocket
// stream of job status events, closed when the job reaches a terminal
// state.
func streamJobEvents(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	snap, found := manager.Get(id)
	if !found {
		utils.Error(c, http.StatusNotFound, "job not found")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Events] WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := manager.Events().Subscribe(id)
	defer cancel()

	// Send the current state first so late subscribers catch up.
	initial := gin.H{"job_id": id.String(), "type": "status", "status": string(snap.Status)}
	if err := conn.WriteJSON(initial); err != nil {
		return
	}
	if snap.Status.Terminal() {
		return
	}

	// Drain client frames so close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
			if event.Status.Terminal() {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
