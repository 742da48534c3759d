package sse

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tipos de evento que escucha la SPA
const (
	EventReportUpdate    = "report_update"
	EventPendingUpdate   = "pending_update"
	EventMyPendingUpdate = "my_pending_update"
	EventConnected       = "connected"
)

// Event evento Server-Sent
type Event struct {
	EventType string `json:"event"`
	Data      string `json:"data"`
}

// Client conexión SSE abierta
type Client struct {
	ID     string
	UserID string
	Events chan Event
}

// Hub conexiones SSE activas
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	h.logger.Debug("SSE client registered",
		zap.String("client_id", client.ID),
		zap.String("user_id", client.UserID),
		zap.Int("total", len(h.clients)),
	)
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		h.logger.Debug("SSE client unregistered", zap.String("client_id", clientID), zap.Int("total", len(h.clients)))
	}
}

// Count clientes conectados
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast envía a todos; si el buffer de un cliente está lleno se descarta
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		h.send(client, event)
	}
}

// SendToUser envía sólo a las conexiones del usuario
func (h *Hub) SendToUser(userID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.UserID == userID {
			h.send(client, event)
		}
	}
}

func (h *Hub) send(client *Client, event Event) {
	select {
	case client.Events <- event:
	default:
		h.logger.Warn("SSE client buffer full, skipping event",
			zap.String("client_id", client.ID),
			zap.String("event", event.EventType),
		)
	}
}

func encode(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// Connected primer evento de cada conexión; la SPA usa el rol para decidir
// qué listas escuchar y el heartbeat para detectar cortes
func Connected(client *Client, role string, heartbeat time.Duration) Event {
	return Event{
		EventType: EventConnected,
		Data: encode(map[string]interface{}{
			"client_id":         client.ID,
			"user_id":           client.UserID,
			"role":              role,
			"heartbeat_seconds": int(heartbeat / time.Second),
		}),
	}
}

// PublishReportUpdate aviso general de cambio en un reporte
func (h *Hub) PublishReportUpdate(reportID, action string) {
	h.Broadcast(Event{
		EventType: EventReportUpdate,
		Data:      encode(map[string]string{"report_id": reportID, "action": action}),
	})
}

// PublishPendingUpdate aviso general y, para cada asignado, aviso personal
// que refresca su lista de pendientes
func (h *Hub) PublishPendingUpdate(activityID, action string, assignees []string) {
	data := encode(map[string]string{"activity_id": activityID, "action": action})
	h.Broadcast(Event{EventType: EventPendingUpdate, Data: data})
	for _, userID := range assignees {
		h.SendToUser(userID, Event{EventType: EventMyPendingUpdate, Data: data})
	}
}
