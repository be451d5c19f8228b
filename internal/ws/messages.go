// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines every message exchanged with connected clients.
package ws

import (
	"time"

	"github.com/evetabi/predictarena/internal/domain"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypeWelcome    MsgType = "welcome"
	MsgTypeEvent      MsgType = "event"
	MsgTypeStats      MsgType = "platform_stats"
	MsgTypeSubscribed MsgType = "subscribed"
	MsgTypeError      MsgType = "error"
)

// ──────────────────────────────────────────────────────────────────────────────
// Server → client
// ──────────────────────────────────────────────────────────────────────────────

// WelcomeMessage is the first frame on every connection. Address is empty for
// anonymous connections.
type WelcomeMessage struct {
	Type         MsgType   `json:"type"`
	Address      string    `json:"address,omitempty"`
	MarketID     string    `json:"market_id,omitempty"`
	TournamentID string    `json:"tournament_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// EventMessage wraps one domain event.
type EventMessage struct {
	Type  MsgType      `json:"type"`
	Event domain.Event `json:"event"`
}

// StatsMessage carries the periodic platform summary.
type StatsMessage struct {
	Type      MsgType   `json:"type"`
	Stats     any       `json:"stats"`
	Timestamp time.Time `json:"timestamp"`
}

// SubscribedMessage confirms a filter change.
type SubscribedMessage struct {
	Type         MsgType `json:"type"`
	MarketID     string  `json:"market_id,omitempty"`
	TournamentID string  `json:"tournament_id,omitempty"`
}

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Client → server
// ──────────────────────────────────────────────────────────────────────────────

// SubscribeRequest replaces the connection's filters. Empty ids clear a
// filter; a connection with no filters receives every event.
//
//	{"action":"subscribe","market_id":"market_ab12cd34ef56"}
type SubscribeRequest struct {
	Action       string `json:"action"`
	MarketID     string `json:"market_id"`
	TournamentID string `json:"tournament_id"`
}
