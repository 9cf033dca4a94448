package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/typing-arena/game/engine"
	"github.com/wricardo/typing-arena/game/protocol"
	"github.com/wricardo/typing-arena/logger"
)

const writeWait = 10 * time.Second

// Bot plays one human slot through a websocket mirror, steering with a
// chaser brain
type Bot struct {
	conn      *websocket.Conn
	name      string
	params    engine.ChaserParams
	boostCost int
	log       *slog.Logger

	writeMu sync.Mutex

	mu        sync.Mutex
	game      *engine.Game
	me        int
	standings []protocol.Standing
}

// NewBot wraps an open connection
func NewBot(conn *websocket.Conn, name string, params engine.ChaserParams, boostCost int) *Bot {
	return &Bot{
		conn:      conn,
		name:      name,
		params:    params,
		boostCost: boostCost,
		me:        protocol.NoPlayer,
		log:       logger.Get().With("component", "botclient", "name", name),
	}
}

// wsURL turns an http(s) server URL into the websocket URL of a game
func wsURL(serverURL, gameID string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws", "":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	q := u.Query()
	q.Set("game", gameID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial opens the websocket of a game
func Dial(ctx context.Context, serverURL, gameID string) (*websocket.Conn, error) {
	target, err := wsURL(serverURL, gameID)
	if err != nil {
		return nil, err
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", target, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return conn, nil
}

func (b *Bot) send(event string, payload any) error {
	data, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	b.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

func (b *Bot) readFrame() (protocol.Frame, error) {
	_, data, err := b.conn.ReadMessage()
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Decode(data)
}

// Join claims a slot and builds the mirror from the joined setup and the
// snapshot that follows it
func (b *Bot) Join() error {
	if err := b.send(protocol.EventJoin, protocol.Join{Name: b.name}); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	for {
		f, err := b.readFrame()
		if err != nil {
			return fmt.Errorf("waiting for join: %w", err)
		}
		switch f.Event {
		case protocol.EventJoined:
			joined, err := protocol.DecodePayload[protocol.Joined](f)
			if err != nil {
				return err
			}
			mirror, err := engine.NewMirror(joined.Setup)
			if err != nil {
				return err
			}
			mirror.SetLogger(b.log)
			b.mu.Lock()
			b.game, b.me = mirror, joined.PlayerID
			b.mu.Unlock()
			b.log = b.log.With("player", joined.PlayerID)
		case protocol.EventReset:
			if b.game == nil {
				continue
			}
			if _, err := b.handle(f); err != nil {
				return err
			}
			b.log.Info("joined game", "team", b.teamName())
			return nil
		case protocol.EventError:
			msg, _ := protocol.DecodePayload[protocol.Error](f)
			return fmt.Errorf("join refused: %s", msg.Message)
		}
	}
}

func (b *Bot) teamName() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.game.Player(b.me); ok {
		return b.game.Teams[p.TeamID].Name
	}
	return ""
}

// handle applies one server frame to the mirror. It reports true once the
// game is over.
func (b *Bot) handle(f protocol.Frame) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch f.Event {
	case protocol.EventReset:
		snap, err := protocol.DecodePayload[protocol.ResetSnapshot](f)
		if err != nil {
			return false, err
		}
		b.game.ApplyReset(snap)
	case protocol.EventMove:
		res, err := protocol.DecodePayload[protocol.Res](f)
		if err != nil {
			return false, err
		}
		b.game.Commit(res)
	case protocol.EventStatus:
		s, err := protocol.DecodePayload[protocol.StatusChange](f)
		if err != nil {
			return false, err
		}
		b.game.Status = s.Status
		b.log.Info("status changed", "status", s.Status)
	case protocol.EventOver:
		over, err := protocol.DecodePayload[protocol.Over](f)
		if err != nil {
			return false, err
		}
		b.standings = over.Standings
		return true, nil
	case protocol.EventError:
		msg, _ := protocol.DecodePayload[protocol.Error](f)
		b.log.Warn("server error", "message", msg.Message)
	default:
		b.log.Debug("ignoring frame", "event", f.Event)
	}
	return false, nil
}

// step picks the next request, or nil while one is already in flight
func (b *Bot) step() *protocol.Req {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.game.Player(b.me)
	if !ok || b.game.Status != protocol.StatusPlaying || p.RequestInFlight || p.Eliminated {
		return nil
	}
	req, intent := b.params.Think(b.game, p, b.boostCost)
	if req == nil {
		return nil
	}
	p.RequestInFlight = true
	b.log.Debug("moving", "intent", intent, "dest", req.Dest.Coord, "type", req.MoveType)
	return req
}

// Score returns the mirrored score of the bot's player
func (b *Bot) Score() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.game.Player(b.me); ok {
		return p.Score
	}
	return 0
}

// Standings returns the final standings once the game is over
func (b *Bot) Standings() []protocol.Standing {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.standings
}

// Run applies frames and moves on the chaser's timer until the game ends,
// ctx is done or the connection drops
func (b *Bot) Run(ctx context.Context) error {
	frames := make(chan protocol.Frame)
	errc := make(chan error, 1)
	go func() {
		for {
			f, err := b.readFrame()
			if err != nil {
				errc <- err
				return
			}
			select {
			case frames <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	defer b.close()

	ticker := time.NewTicker(b.params.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errc:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		case f := <-frames:
			done, err := b.handle(f)
			if err != nil {
				return err
			}
			if done {
				b.log.Info("game over", "standings", b.Standings(), "score", b.Score())
				return nil
			}
		case <-ticker.C:
			if req := b.step(); req != nil {
				if err := b.send(protocol.EventMove, req); err != nil {
					return fmt.Errorf("send move: %w", err)
				}
			}
		}
	}
}

func (b *Bot) close() {
	b.writeMu.Lock()
	err := b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	b.writeMu.Unlock()
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		b.log.Debug("close handshake", "error", err)
	}
	b.conn.Close()
}
