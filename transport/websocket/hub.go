package websocket

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wricardo/typing-arena/game/engine"
	"github.com/wricardo/typing-arena/game/protocol"
	"github.com/wricardo/typing-arena/game/service"
	"github.com/wricardo/typing-arena/logger"
	"github.com/wricardo/typing-arena/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Frames buffered per client before it is dropped as too slow.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameLookup resolves a game ID to its running session and records
// activity on it so websocket-only games are not expired
type GameLookup interface {
	Get(id string) (*service.Session, error)
	UpdateLastAccessed(id string) error
}

// roomKey matches the case-insensitive session lookup
func roomKey(gameID string) string { return strings.ToLower(gameID) }

// Client is one websocket connection attached to a game room
type Client struct {
	id       string
	hub      *Hub
	room     *room
	conn     *websocket.Conn
	send     chan []byte
	playerID int
	log      *slog.Logger

	mu        sync.Mutex
	closed    bool
	closeCode int
}

// room is the set of clients mirroring one game
type room struct {
	gameID      string
	game        *engine.Manager
	unsubscribe func()

	mu      sync.RWMutex
	clients map[*Client]bool
}

// Hub keeps one room per game and relays engine events to the room's clients
type Hub struct {
	games GameLookup
	log   *slog.Logger

	mu    sync.Mutex
	rooms map[string]*room
}

// NewHub creates a new WebSocket hub
func NewHub(games GameLookup) *Hub {
	return &Hub{
		games: games,
		log:   logger.Get().With("component", "websocket"),
		rooms: make(map[string]*room),
	}
}

// ServeWS upgrades the request and attaches the connection to gameID's room
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, gameID string) {
	sess, err := h.games.Get(gameID)
	if err != nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := h.newClient(sess)
	client.conn = conn
	h.registerClient(client)

	go client.writePump()
	go client.readPump()
}

func (h *Hub) newClient(sess *service.Session) *Client {
	id := uuid.NewString()
	return &Client{
		id:       id,
		hub:      h,
		room:     &room{gameID: sess.ID, game: sess.Game},
		send:     make(chan []byte, sendBuffer),
		playerID: protocol.NoPlayer,
		log:      h.log.With("game", sess.ID, "client", id),
	}
}

// registerClient adds a client to its game's room, creating the room and
// subscribing it to the engine on first use
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[roomKey(client.room.gameID)]
	if !ok {
		rm = &room{
			gameID:  client.room.gameID,
			game:    client.room.game,
			clients: make(map[*Client]bool),
		}
		if rm.game != nil {
			rm.unsubscribe = rm.game.Subscribe(rm.relay)
		}
		h.rooms[roomKey(rm.gameID)] = rm
	}
	client.room = rm

	rm.mu.Lock()
	rm.clients[client] = true
	n := len(rm.clients)
	rm.mu.Unlock()

	metrics.WSClients.Inc()
	client.log.Info("client registered", "clients", n)
}

// unregisterClient removes a client and drops the room once it is empty
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[roomKey(client.room.gameID)]
	if !ok {
		return
	}
	rm.mu.Lock()
	if !rm.clients[client] {
		rm.mu.Unlock()
		return
	}
	delete(rm.clients, client)
	n := len(rm.clients)
	rm.mu.Unlock()

	client.close()
	metrics.WSClients.Dec()
	if n == 0 {
		if rm.unsubscribe != nil {
			rm.unsubscribe()
		}
		delete(h.rooms, roomKey(rm.gameID))
	}
	client.log.Info("client unregistered", "clients", n)
}

// ClientCount returns the number of clients attached to a game
func (h *Hub) ClientCount(gameID string) int {
	h.mu.Lock()
	rm, ok := h.rooms[roomKey(gameID)]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.clients)
}

// DropGame disconnects every client of a deleted or stopped game. The ID
// is matched case-insensitively.
func (h *Hub) DropGame(gameID string) {
	h.mu.Lock()
	rm, ok := h.rooms[roomKey(gameID)]
	h.mu.Unlock()
	if !ok {
		return
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	for c := range rm.clients {
		c.close()
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	ids := make([]string, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	for _, id := range ids {
		h.DropGame(id)
	}
}

// relay is the engine listener. It runs with the game locked, so it only
// queues encoded frames.
func (rm *room) relay(event string, payload any) {
	data, err := protocol.Encode(event, payload)
	if err != nil {
		logger.Error("failed to encode event", "game", rm.gameID, "event", event, "error", err)
		return
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	for c := range rm.clients {
		if !c.queue(data) {
			c.log.Warn("client too slow, dropping")
			c.close()
		}
	}
}

// queue hands a frame to the write pump without blocking
func (c *Client) queue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) sendFrame(event string, payload any) {
	data, err := protocol.Encode(event, payload)
	if err != nil {
		c.log.Error("failed to encode frame", "event", event, "error", err)
		return
	}
	if !c.queue(data) {
		c.close()
	}
}

func (c *Client) sendError(err error) {
	c.sendFrame(protocol.EventError, protocol.Error{Message: err.Error()})
}

// close stops the write pump, which closes the connection
func (c *Client) close() {
	c.closeWith(websocket.CloseNormalClosure)
}

func (c *Client) closeWith(code int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.closeCode = code
		close(c.send)
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// violation reports a protocol violation and hangs up
func (c *Client) violation(err error) {
	c.log.Warn("protocol violation, closing connection", "player", c.playerID, "error", err)
	c.sendError(err)
	c.closeWith(websocket.ClosePolicyViolation)
}

// sendSnapshot queues the full state. The snapshot is taken and queued with
// the game locked so no event can slip in between.
func (c *Client) sendSnapshot() {
	c.room.game.View(func(g *engine.Game) {
		c.sendFrame(protocol.EventReset, g.Snapshot())
	})
}

// handle routes one inbound frame
func (c *Client) handle(f protocol.Frame) {
	switch f.Event {
	case protocol.EventJoin:
		c.handleJoin(f)
	case protocol.EventResetReq:
		c.sendSnapshot()
	case protocol.EventMove:
		c.handleMove(f)
	default:
		c.violation(errors.New("unknown event " + f.Event))
	}
}

func (c *Client) handleJoin(f protocol.Frame) {
	if c.playerID != protocol.NoPlayer {
		c.sendError(errors.New("already joined"))
		return
	}
	join, err := protocol.DecodePayload[protocol.Join](f)
	if err != nil {
		c.violation(err)
		return
	}
	p, err := c.room.game.Claim(join.Name)
	if err != nil {
		c.sendError(err)
		return
	}
	c.playerID = p.ID
	c.sendFrame(protocol.EventJoined, protocol.Joined{
		PlayerID: p.ID,
		TeamID:   p.TeamID,
		Setup:    c.room.game.Setup(c.room.gameID),
	})
	c.sendSnapshot()
	c.log.Info("player joined", "player", p.ID, "name", p.Name, "team", p.TeamID)
}

func (c *Client) handleMove(f protocol.Frame) {
	req, err := protocol.DecodePayload[protocol.Req](f)
	if err != nil {
		c.violation(err)
		return
	}
	if c.playerID == protocol.NoPlayer || req.PlayerID != c.playerID {
		c.violation(errors.New("move for a player this connection does not control"))
		return
	}
	reply, err := c.room.game.Enqueue(req)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrProtocolViolation):
			c.violation(err)
		case errors.Is(err, engine.ErrStopped):
			c.sendError(err)
			c.close()
		default:
			c.sendError(err)
		}
		return
	}
	// the Res itself reaches this client through the room broadcast
	go func() {
		if r := <-reply; r.Err != nil {
			if errors.Is(r.Err, engine.ErrProtocolViolation) {
				c.violation(r.Err)
			} else {
				c.sendError(r.Err)
			}
		}
	}()
}

// readPump pumps frames from the WebSocket connection to the game
func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
		if c.playerID != protocol.NoPlayer {
			if err := c.room.game.Forfeit(c.playerID); err != nil {
				c.log.Debug("forfeit on disconnect", "player", c.playerID, "error", err)
			}
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for !c.isClosed() {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket error", "error", err)
			}
			break
		}
		f, err := protocol.Decode(message)
		if err != nil {
			c.violation(err)
			break
		}
		if err := c.hub.games.UpdateLastAccessed(c.room.gameID); err != nil {
			c.log.Debug("touch on inbound frame", "error", err)
		}
		c.handle(f)
	}
}

// writePump pumps frames from the room to the WebSocket connection. Each
// frame is its own text message.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.mu.Lock()
				code := c.closeCode
				c.mu.Unlock()
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
