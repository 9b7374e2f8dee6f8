package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// ClientMsg é a mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// Topic: "comparison:<date>" ou "alerts"
type ClientMsg struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

// Update é o envelope enviado aos clientes inscritos num tópico
type Update struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

const TopicAlerts = "alerts"

// ComparisonTopic é o tópico das comparações de um dia
func ComparisonTopic(date string) string { return "comparison:" + date }

// Hub gerencia conexões WebSocket e suas assinaturas por tópico
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// topic -> conexões; writeMu serializa escritas por conexão
	subs    map[string]map[*websocket.Conn]struct{}
	writeMu map[*websocket.Conn]*sync.Mutex
}

// NewHub cria um Hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*websocket.Conn]struct{}),
		writeMu:  make(map[*websocket.Conn]*sync.Mutex),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão
// Cada cliente pode se inscrever em vários tópicos
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.writeMu[conn] = &sync.Mutex{}
	h.mu.Unlock()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if msg.Topic == "" {
				continue
			}
			h.mu.Lock()
			if _, ok := h.subs[msg.Topic]; !ok {
				h.subs[msg.Topic] = make(map[*websocket.Conn]struct{})
			}
			h.subs[msg.Topic][conn] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			h.remove(msg.Topic, conn)
			h.mu.Unlock()
		case "ping":
			h.write(conn, mustJSON(map[string]string{"type": "pong"}))
		}
	}

	// Remove a conexão de todas as assinaturas ao desconectar
	h.mu.Lock()
	for topic := range h.subs {
		h.remove(topic, conn)
	}
	delete(h.writeMu, conn)
	h.mu.Unlock()
}

func (h *Hub) remove(topic string, conn *websocket.Conn) {
	if m, ok := h.subs[topic]; ok {
		delete(m, conn)
		if len(m) == 0 {
			delete(h.subs, topic)
		}
	}
}

// Broadcast envia a atualização a todos os inscritos no tópico
func (h *Hub) Broadcast(u Update) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subs[u.Topic]))
	for c := range h.subs[u.Topic] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	b := mustJSON(u)
	for _, c := range conns {
		h.write(c, b)
	}
}

// Subscribers retorna quantas conexões estão no tópico
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

func (h *Hub) write(c *websocket.Conn, b []byte) {
	h.mu.RLock()
	mu := h.writeMu[c]
	h.mu.RUnlock()
	if mu == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	_ = c.WriteMessage(websocket.TextMessage, b)
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
