package dto

import (
	"encoding/json"
	"time"
)

// Relay client actions.
const (
	RelayActionSubscribe   = "subscribe"
	RelayActionUnsubscribe = "unsubscribe"
	RelayActionPublish     = "publish"
	RelayActionPing        = "ping"
)

// RelayClientFrame is a message read from a websocket client.
type RelayClientFrame struct {
	Action  string          `json:"action" validate:"required,oneof=subscribe unsubscribe publish ping"`
	Channel string          `json:"channel" validate:"required_unless=Action ping,max=128"`
	Event   string          `json:"event" validate:"required_if=Action publish,max=64"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// RelayEvent is a message written to subscribers.
type RelayEvent struct {
	Channel string          `json:"channel,omitempty"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data,omitempty"`
	SentAt  time.Time       `json:"sent_at"`
}
