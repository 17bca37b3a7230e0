package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Hub хранит подключения клиентов волейбольной очереди.
// Канал здесь только уведомительный: корректность обеспечивает опрос
// HTTP-состояния, ws лишь ускоряет обновление экрана.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mu         sync.RWMutex
}

// WSMessage — событие для рассылки всем подключённым клиентам.
type WSMessage struct {
	EventType string                 `json:"event_type"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Типы событий ротации и списка.
const (
	EventTurnAdvanced  = "turn_advanced"
	EventNameMarked    = "name_marked"
	EventEntryDeleted  = "entry_deleted"
	EventFilaReset     = "fila_reset"
	EventRosterCleared = "roster_cleared"
)

var HubInstance = NewHub()

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte),
	}
}

// Run запускает цикл обработки каналов хаба.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			// Полный Lock: зависший клиент удаляется из карты прямо здесь
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastWSMessage сериализует событие и рассылает его всем клиентам.
func (h *Hub) BroadcastWSMessage(msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Println("Ошибка сериализации ws-сообщения:", err)
		return
	}
	h.broadcast <- payload
}

// Client представляет одно подключение через WebSocket.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
}

// readPump следит за разрывом соединения; входящие сообщения не обрабатываются.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump отправляет клиенту события и периодические ping.
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FilaWebSocketHandler обновляет соединение до WebSocket и регистрирует клиента.
// URL: /api/fila/ws
func FilaWebSocketHandler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		http.Error(c.Writer, "Ошибка обновления до WebSocket", http.StatusInternalServerError)
		return
	}
	client := &Client{
		Hub:  HubInstance,
		Conn: conn,
		Send: make(chan []byte, 256),
	}
	HubInstance.register <- client

	go client.writePump()
	client.readPump()
}
