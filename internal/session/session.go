package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"sketchparty/internal/broadcast"
	"sketchparty/internal/canvas"
	"sketchparty/internal/chat"
	"sketchparty/internal/game"
	"sketchparty/internal/roster"
	"sketchparty/internal/transport"
)

var ErrConnectionLost = errors.New("connection lost")

type Config struct {
	Game game.Config

	// Outbound stroke throttle; pointer events flood faster than the
	// server needs them.
	StrokesPerSecond float64
	StrokeBurst      int
}

func DefaultConfig() Config {
	return Config{
		Game:             game.DefaultConfig(),
		StrokesPerSecond: 60,
		StrokeBurst:      120,
	}
}

// Session is the composition root: it owns the connection-scoped identity,
// wires the state components together, and moves events between them and
// the transport. Component state is read through the exported fields;
// mutations go through Session operations or arrive from the server.
type Session struct {
	Roster *roster.Roster
	Canvas *canvas.Canvas
	Chat   *chat.Gate
	Game   *game.Machine

	conn    transport.Conn
	notify  *broadcast.Broadcaster
	log     zerolog.Logger
	limiter *rate.Limiter

	mu         sync.Mutex
	playerID   string
	playerName string
	roomID     string
	connected  bool
	closing    bool
	lastError  string
}

func New(conn transport.Conn, notify *broadcast.Broadcaster, cfg Config, log zerolog.Logger) *Session {
	s := &Session{
		conn:      conn,
		notify:    notify,
		log:       log,
		connected: true,
	}
	s.Roster = roster.New(notify)
	s.Game = game.New(s.Roster, notify, cfg.Game)
	s.Canvas = canvas.New(notify, s.Game.IsLocalDrawing)
	s.Chat = chat.New(notify, s.Game.IsLocalDrawing)

	perSecond := cfg.StrokesPerSecond
	if perSecond <= 0 {
		perSecond = 60
	}
	burst := cfg.StrokeBurst
	if burst <= 0 {
		burst = int(perSecond) * 2
	}
	s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return s
}

// Run drains inbound events until the context ends or the transport gives
// up. A transport that closed because Disconnect was called is a clean
// exit; anything else reports the lost connection.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-s.conn.Events():
			if !ok {
				s.setConnected(false)
				if s.isClosing() {
					return nil
				}
				return ErrConnectionLost
			}
			s.handle(env)
		}
	}
}

func (s *Session) PlayerID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerID
}

func (s *Session) PlayerName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerName
}

func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// LastError is the most recent displayable failure reported by the server
// or the transport.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

func (s *Session) setIdentity(playerID, playerName string) {
	s.mu.Lock()
	if playerID != "" {
		s.playerID = playerID
	}
	if playerName != "" {
		s.playerName = playerName
	}
	s.mu.Unlock()
	if playerID != "" {
		s.Game.SetLocalPlayer(playerID)
	}
	s.notify.Publish(broadcast.ScopeSession)
}

func (s *Session) setRoomID(roomID string) {
	s.mu.Lock()
	s.roomID = roomID
	s.mu.Unlock()
	s.notify.Publish(broadcast.ScopeSession)
}

func (s *Session) setLastError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
	s.notify.Publish(broadcast.ScopeSession)
}

func (s *Session) setConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	s.mu.Unlock()
	s.notify.Publish(broadcast.ScopeSession)
}

func (s *Session) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}
