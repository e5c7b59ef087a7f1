package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sketchparty/internal/broadcast"
	"sketchparty/internal/protocol"
	"sketchparty/internal/roster"
)

var (
	ErrNameRequired    = errors.New("player name is required")
	ErrInvalidRoomCode = errors.New("room code must be 6 characters")
	ErrNotDrawer       = errors.New("only the drawer can draw")
)

func (s *Session) send(event string, payload any) error {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	if err := s.conn.Send(env); err != nil {
		s.log.Warn().Err(err).Str("event", event).Msg("send failed")
		return fmt.Errorf("sending %s: %w", event, err)
	}
	return nil
}

func (s *Session) CreateRoom(playerName string) error {
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return ErrNameRequired
	}
	s.mu.Lock()
	s.playerName = playerName
	s.mu.Unlock()
	return s.send(protocol.EventRoomCreate, protocol.RoomCreateData{PlayerName: playerName})
}

func (s *Session) JoinRoom(roomCode, playerName string) error {
	playerName = strings.TrimSpace(playerName)
	if playerName == "" {
		return ErrNameRequired
	}
	roomCode = roster.NormalizeCode(roomCode)
	if !roster.ValidCode(roomCode) {
		return ErrInvalidRoomCode
	}
	s.mu.Lock()
	s.playerName = playerName
	s.mu.Unlock()
	return s.send(protocol.EventRoomJoin, protocol.RoomJoinData{RoomCode: roomCode, PlayerName: playerName})
}

// LeaveRoom tells the server we are gone and resets local state; the room
// keeps existing for everyone else.
func (s *Session) LeaveRoom() error {
	err := s.send(protocol.EventRoomLeave, nil)
	s.Game.Reset()
	s.Roster.Reset()
	s.Canvas.Reset()
	s.Chat.Reset()
	s.setRoomID("")
	return err
}

// StartGame validates locally before asking the server, so a premature
// start never leaves the lobby state half-changed.
func (s *Session) StartGame(maxRounds int) error {
	if err := s.Game.StartGame(maxRounds); err != nil {
		return err
	}
	return s.send(protocol.EventGameStart, nil)
}

func (s *Session) Ready() error {
	return s.send(protocol.EventGameReady, nil)
}

// SendStroke appends a locally drawn point and replicates it. Points from
// non-drawers are refused; points beyond the throttle are dropped without
// error since pointer streams degrade gracefully.
func (s *Session) SendStroke(point protocol.DrawingData) error {
	if !s.Game.IsLocalDrawing() {
		return ErrNotDrawer
	}
	if !s.limiter.Allow() {
		s.log.Debug().Msg("stroke dropped by throttle")
		return nil
	}
	point = s.Canvas.AppendLocal(point)
	return s.send(protocol.EventDrawingStroke, point)
}

func (s *Session) ClearCanvas() error {
	if !s.Game.IsLocalDrawing() {
		return ErrNotDrawer
	}
	s.Canvas.Clear()
	return s.send(protocol.EventDrawingClear, nil)
}

// SendChat submits whatever is in the chat input box. The gate owns the
// trim/length/drawer rules; on success the message shows up locally right
// away instead of waiting for the server echo.
func (s *Session) SendChat() error {
	text, err := s.Chat.Send()
	if err != nil {
		return err
	}
	s.mu.Lock()
	playerID, playerName := s.playerID, s.playerName
	s.mu.Unlock()
	s.Chat.Append(protocol.ChatMessage{
		ID:         uuid.New().String(),
		PlayerID:   playerID,
		PlayerName: playerName,
		Message:    text,
		Timestamp:  time.Now().UnixMilli(),
	})
	return s.send(protocol.EventChatMessage, protocol.ChatSendData{Message: text})
}

func (s *Session) Disconnect() error {
	s.mu.Lock()
	s.closing = true
	s.connected = false
	s.mu.Unlock()
	err := s.send(protocol.EventPlayerDisconnect, nil)
	if closeErr := s.conn.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	s.notify.Publish(broadcast.ScopeSession)
	return err
}
