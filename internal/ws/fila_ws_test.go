package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestClient(hub *Hub, buffer int) *Client {
	return &Client{
		Hub:  hub,
		Send: make(chan []byte, buffer),
	}
}

func receiveMessage(t *testing.T, client *Client) WSMessage {
	t.Helper()
	select {
	case payload := <-client.Send:
		var msg WSMessage
		assert.NoError(t, json.Unmarshal(payload, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("клиент не получил событие вовремя")
		return WSMessage{}
	}
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	first := newTestClient(hub, 16)
	second := newTestClient(hub, 16)
	hub.register <- first
	hub.register <- second

	hub.BroadcastWSMessage(WSMessage{
		EventType: EventTurnAdvanced,
		Data:      map[string]interface{}{"reason": "timeout"},
	})

	for _, client := range []*Client{first, second} {
		msg := receiveMessage(t, client)
		assert.Equal(t, EventTurnAdvanced, msg.EventType)
		assert.Equal(t, "timeout", msg.Data["reason"])
	}
}

func TestHubDropsStalledClient(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	healthy := newTestClient(hub, 16)
	// Небуферизованный канал без читателя: рассылка не может его принять
	stalled := newTestClient(hub, 0)
	hub.register <- healthy
	hub.register <- stalled

	hub.BroadcastWSMessage(WSMessage{EventType: EventNameMarked})
	assert.Equal(t, EventNameMarked, receiveMessage(t, healthy).EventType)

	// Вторая рассылка гарантирует, что первая полностью обработана
	hub.BroadcastWSMessage(WSMessage{EventType: EventFilaReset})
	assert.Equal(t, EventFilaReset, receiveMessage(t, healthy).EventType)

	select {
	case _, ok := <-stalled.Send:
		assert.False(t, ok, "канал зависшего клиента должен быть закрыт")
	default:
		t.Fatal("зависший клиент не был отключён от хаба")
	}

	hub.mu.RLock()
	_, stillRegistered := hub.clients[stalled]
	hub.mu.RUnlock()
	assert.False(t, stillRegistered)
}
