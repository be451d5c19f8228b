package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/evetabi/predictarena/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

// ──────────────────────────────────────────────────────────────────────────────
// Tunables
// ──────────────────────────────────────────────────────────────────────────────

const (
	writeDeadline  = 10 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 35 * time.Second // must be > pingInterval
	maxMessageSize = 512              // bytes; clients only send subscribe frames
	sendBufferSize = 256              // messages in each client send channel
)

// ErrBroadcastFull is returned by Publish when the hub cannot keep up.
var ErrBroadcastFull = errors.New("ws: broadcast queue full")

// ──────────────────────────────────────────────────────────────────────────────
// Client
// ──────────────────────────────────────────────────────────────────────────────

// Client represents one connected WebSocket endpoint.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte // buffered outbound message queue
	address string      // "" = anonymous

	mu           sync.RWMutex
	marketID     string
	tournamentID string
}

func (c *Client) setFilter(marketID, tournamentID string) {
	c.mu.Lock()
	c.marketID, c.tournamentID = marketID, tournamentID
	c.mu.Unlock()
}

// wants reports whether evt passes the client's filters. Events for another
// scope never match a filtered client.
func (c *Client) wants(evt *domain.Event) bool {
	if evt == nil {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.marketID != "" && evt.MarketID != c.marketID {
		return false
	}
	if c.tournamentID != "" && evt.TournamentID != c.tournamentID {
		return false
	}
	return true
}

// ──────────────────────────────────────────────────────────────────────────────
// Hub
// ──────────────────────────────────────────────────────────────────────────────

type outbound struct {
	data []byte
	evt  *domain.Event // nil for messages every client receives
}

// Hub maintains the set of active clients and routes broadcast messages.
// It is a notify.Sink: every dispatched event is pushed to the clients whose
// filters match. Run() must be started before ServeWs is used.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns

	// JWT signing key (optional – if empty, all connections are anonymous)
	jwtSecret []byte

	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHub creates a Hub ready to be started with Run().
// jwtSecret may be nil; WS connections will then be treated as anonymous.
func NewHub(jwtSecret []byte, allowedOrigins []string, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan outbound, 512),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		jwtSecret:  jwtSecret,
		log:        log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true // dev mode: allow all
				}
				origin := r.Header.Get("Origin")
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Run: hub event loop
// ──────────────────────────────────────────────────────────────────────────────

// Run processes registration, unregistration, and broadcast events
// sequentially until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
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
				close(client.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				if !client.wants(msg.evt) {
					continue
				}
				select {
				case client.send <- msg.data:
				default:
					// Client's buffer full; drop the message for this client.
				}
			}
			h.mu.RUnlock()

		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				_ = client.conn.Close()
			}
			h.mu.Unlock()
			return nil
		}
	}
}

// ConnectedCount returns the current number of connected clients.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ──────────────────────────────────────────────────────────────────────────────
// ServeWs: HTTP → WebSocket upgrade
// ──────────────────────────────────────────────────────────────────────────────

// ServeWs upgrades an HTTP request to a WebSocket connection. The caller is
// identified by a JWT in ?token=; ?market_id= and ?tournament_id= set the
// initial filters.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws.ServeWs: upgrade failed", "err", err)
		return
	}

	var address string
	if token := r.URL.Query().Get("token"); token != "" && len(h.jwtSecret) > 0 {
		address = h.parseJWT(token)
	}

	q := r.URL.Query()
	client := &Client{
		hub:          h,
		conn:         conn,
		send:         make(chan []byte, sendBufferSize),
		address:      address,
		marketID:     q.Get("market_id"),
		tournamentID: q.Get("tournament_id"),
	}
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	h.sendTo(client, WelcomeMessage{
		Type:         MsgTypeWelcome,
		Address:      address,
		MarketID:     client.marketID,
		TournamentID: client.tournamentID,
		Timestamp:    time.Now().UTC(),
	})

	go client.writePump()
	go client.readPump()
}

// parseJWT extracts the wallet address from a signed access token.
// Returns "" on any failure (treated as anonymous).
func (h *Hub) parseJWT(tokenString string) string {
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return h.jwtSecret, nil
	})
	if err != nil || !tok.Valid {
		return ""
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	sub, _ := claims.GetSubject()
	return sub
}

// ──────────────────────────────────────────────────────────────────────────────
// Client pumps
// ──────────────────────────────────────────────────────────────────────────────

// writePump drains the client's send channel and writes messages to the
// WebSocket connection.  It also sends ping frames every pingInterval.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				// Hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.hub.done:
			return
		}
	}
}

// readPump handles pongs and subscribe frames. Anything else gets an error
// frame. When the connection drops the client is unregistered.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("ws.readPump: unexpected close", "address", c.address, "err", err)
			}
			return
		}

		var req SubscribeRequest
		if err := json.Unmarshal(raw, &req); err != nil || req.Action != "subscribe" {
			c.hub.SendError(c, "ERR_BAD_REQUEST", `expected {"action":"subscribe",...}`)
			continue
		}
		c.setFilter(req.MarketID, req.TournamentID)
		c.hub.sendTo(c, SubscribedMessage{
			Type:         MsgTypeSubscribed,
			MarketID:     req.MarketID,
			TournamentID: req.TournamentID,
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Broadcast helpers
// ──────────────────────────────────────────────────────────────────────────────

func (h *Hub) Name() string { return "ws" }

// Publish queues evt for every client whose filters match.
func (h *Hub) Publish(ctx context.Context, evt domain.Event) error {
	data, err := json.Marshal(EventMessage{Type: MsgTypeEvent, Event: evt})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- outbound{data: data, evt: &evt}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBroadcastFull
	}
}

// BroadcastStats pushes the platform summary to every client.
func (h *Hub) BroadcastStats(stats any) {
	h.broadcastJSON(StatsMessage{Type: MsgTypeStats, Stats: stats, Timestamp: time.Now().UTC()})
}

// broadcastJSON is the common marshalling path for unscoped messages.
func (h *Hub) broadcastJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error("ws.Hub: marshal error", "err", err)
		return
	}
	select {
	case h.broadcast <- outbound{data: data}:
	default:
		h.log.Warn("ws.Hub: broadcast channel full, message dropped")
	}
}

// sendTo writes one message directly to a client's send channel.
func (h *Hub) sendTo(client *Client, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

// SendError writes an error message directly to one client's send channel.
func (h *Hub) SendError(client *Client, code, message string) {
	h.sendTo(client, ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	})
}
