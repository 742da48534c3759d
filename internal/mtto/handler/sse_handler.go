package handler

import (
	"fmt"
	"io"
	"time"

	"github.com/OscarR093/reportesMtto/internal/mtto/sse"
	"github.com/gin-gonic/gin"
)

// SSEHandler stream de eventos para el SPA
type SSEHandler struct {
	hub       *sse.Hub
	heartbeat time.Duration
}

func NewSSEHandler(hub *sse.Hub) *SSEHandler {
	return &SSEHandler{hub: hub, heartbeat: 30 * time.Second}
}

func writeEvent(w io.Writer, event sse.Event) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.EventType, event.Data)
}

// Stream GET /sse/events?token=xxx; cada usuario puede tener varias pestañas
// abiertas, por eso el id de cliente lleva la marca de tiempo
func (h *SSEHandler) Stream(c *gin.Context) {
	userID := GetUserID(c)
	client := &sse.Client{
		ID:     fmt.Sprintf("%s_%d", userID, time.Now().UnixNano()),
		UserID: userID,
		Events: make(chan sse.Event, 64),
	}
	h.hub.Register(client)
	defer h.hub.Unregister(client.ID)

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	writeEvent(c.Writer, sse.Connected(client, c.GetString("role"), h.heartbeat))
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case event, ok := <-client.Events:
			if !ok {
				return
			}
			writeEvent(c.Writer, event)
			c.Writer.Flush()
		case <-heartbeat.C:
			io.WriteString(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}
