// internal/api/websocket.go
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/aidirector/studio/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is same-machine or CORS-open; origin checks add nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait = 10 * time.Second
	pingWait  = 30 * time.Second
)

// ProgressWebSocket streams batch progress updates for a run id until the
// run completes or the client disconnects.
func (h *Handler) ProgressWebSocket(c *gin.Context) {
	runID := c.Param("id")

	tracker, exists := h.progressService.GetTracker(runID)
	if !exists {
		h.responses.NotFound(c, ErrorRunNotFound, "no such generation run: "+runID)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Warning("websocket upgrade failed", map[string]interface{}{"err": err})
		return
	}
	defer conn.Close()

	updates := tracker.Subscribe()
	defer tracker.Unsubscribe(updates)

	// Drain client frames so close messages are noticed.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(pingWait)
	defer pingTicker.Stop()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(update); err != nil {
				return
			}
			if update.Status != "running" {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, update.Status))
				return
			}

		case <-tracker.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteJSON(tracker.Snapshot())
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
			return

		case <-clientGone:
			return

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ProgressSnapshot returns the current progress of a run without a socket.
func (h *Handler) ProgressSnapshot(c *gin.Context) {
	runID := c.Param("id")

	tracker, exists := h.progressService.GetTracker(runID)
	if !exists {
		h.responses.NotFound(c, ErrorRunNotFound, "no such generation run: "+runID)
		return
	}

	h.responses.Success(c, tracker.Snapshot())
}
