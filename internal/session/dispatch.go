package session

import (
	"time"

	"github.com/google/uuid"

	"sketchparty/internal/protocol"
)

func (s *Session) handle(env protocol.Envelope) {
	switch env.Event {
	case protocol.EventRoomCreated:
		s.onRoomCreated(env)
	case protocol.EventRoomJoined:
		s.onRoomJoined(env)
	case protocol.EventRoomUpdated:
		s.onRoomUpdated(env)
	case protocol.EventRoomError:
		s.onRoomError(env)
	case protocol.EventRoomPlayerJoined:
		s.onPlayerJoined(env)
	case protocol.EventRoomPlayerLeft:
		s.onPlayerLeft(env)
	case protocol.EventGameStarted:
		s.onGameStarted(env)
	case protocol.EventGameRoundStarted:
		s.onRoundStarted(env)
	case protocol.EventGameRoundEnd:
		s.onRoundEnd(env)
	case protocol.EventGameEnd:
		s.onGameEnd(env)
	case protocol.EventGameTimerUpdate:
		s.onTimerUpdate(env)
	case protocol.EventDrawingUpdate:
		s.onDrawingUpdate(env)
	case protocol.EventDrawingCleared:
		s.Canvas.Clear()
	case protocol.EventChatMessage:
		s.onChatMessage(env)
	case protocol.EventChatCorrectGuess:
		s.onCorrectGuess(env)
	case protocol.EventPlayerScoreUpdated:
		s.onScoreUpdated(env)
	case protocol.EventPlayerStatusChanged:
		s.onStatusChanged(env)
	case protocol.EventConnectionError:
		s.onConnectionError(env)
	case protocol.EventConnectionReconnect:
		s.setConnected(true)
		s.log.Info().Msg("connection restored")
	default:
		s.log.Warn().Str("event", env.Event).Msg("ignoring unknown event")
	}
}

func (s *Session) decode(env protocol.Envelope, v any) bool {
	if err := env.Decode(v); err != nil {
		s.log.Warn().Err(err).Str("event", env.Event).Msg("dropping malformed event")
		return false
	}
	return true
}

func (s *Session) onRoomCreated(env protocol.Envelope) {
	var room protocol.Room
	if !s.decode(env, &room) {
		return
	}
	s.setRoomID(room.ID)
	s.Roster.SetRoom(room)
	s.Game.SyncRoom(room)
	// The creator is the only occupant, so the sole listed player is us.
	if len(room.Players) == 1 {
		s.setIdentity(room.Players[0].ID, room.Players[0].Name)
	}
	s.log.Info().Str("room_code", room.Code).Msg("room created")
}

func (s *Session) onRoomJoined(env protocol.Envelope) {
	var data protocol.RoomJoinedData
	if !s.decode(env, &data) {
		return
	}
	s.setRoomID(data.Room.ID)
	s.setIdentity(data.Player.ID, data.Player.Name)
	s.Roster.SetRoom(data.Room)
	s.Game.SyncRoom(data.Room)
	s.log.Info().Str("room_code", data.Room.Code).Str("player_id", data.Player.ID).Msg("joined room")
}

func (s *Session) onRoomUpdated(env protocol.Envelope) {
	var room protocol.Room
	if !s.decode(env, &room) {
		return
	}
	s.Roster.SetRoom(room)
	s.Game.SyncRoom(room)
}

func (s *Session) onRoomError(env protocol.Envelope) {
	var data protocol.ErrorData
	if !s.decode(env, &data) {
		return
	}
	s.setLastError(data.Message)
	s.log.Warn().Str("message", data.Message).Msg("room error")
}

func (s *Session) onPlayerJoined(env protocol.Envelope) {
	var player protocol.Player
	if !s.decode(env, &player) {
		return
	}
	s.Roster.AddOrUpdate(player)
}

func (s *Session) onPlayerLeft(env protocol.Envelope) {
	var data protocol.PlayerLeftData
	if !s.decode(env, &data) {
		return
	}
	s.Roster.Remove(data.PlayerID)
}

func (s *Session) onGameStarted(env protocol.Envelope) {
	var data protocol.GameStartedData
	if !s.decode(env, &data) {
		return
	}
	s.Roster.AddOrUpdate(data.Drawer)
	s.Game.ApplyGameStarted(data.Drawer.ID, data.Word)
}

func (s *Session) onRoundStarted(env protocol.Envelope) {
	var data protocol.RoundStartedData
	if !s.decode(env, &data) {
		return
	}
	s.Roster.AddOrUpdate(data.Drawer)
	s.Game.ApplyRoundStarted(data.Drawer.ID, data.RoundNumber)
}

func (s *Session) onRoundEnd(env protocol.Envelope) {
	var results protocol.RoundResults
	if !s.decode(env, &results) {
		return
	}
	s.Game.FinishRound(results)
}

func (s *Session) onGameEnd(env protocol.Envelope) {
	var data protocol.GameEndData
	if !s.decode(env, &data) {
		return
	}
	s.Game.FinishGame(data.FinalScores)
}

func (s *Session) onTimerUpdate(env protocol.Envelope) {
	var data protocol.TimerUpdateData
	if !s.decode(env, &data) {
		return
	}
	s.Game.SetTimeRemaining(data.SecondsRemaining)
}

func (s *Session) onDrawingUpdate(env protocol.Envelope) {
	var point protocol.DrawingData
	if !s.decode(env, &point) {
		return
	}
	s.Canvas.ReceiveRemote(point)
}

func (s *Session) onChatMessage(env protocol.Envelope) {
	var msg protocol.ChatMessage
	if !s.decode(env, &msg) {
		return
	}
	s.Chat.Append(msg)
}

func (s *Session) onCorrectGuess(env protocol.Envelope) {
	var data protocol.CorrectGuessData
	if !s.decode(env, &data) {
		return
	}
	s.Chat.Append(protocol.ChatMessage{
		ID:             uuid.New().String(),
		PlayerID:       data.PlayerID,
		PlayerName:     data.PlayerName,
		Message:        data.PlayerName + " guessed the word!",
		IsCorrectGuess: true,
		Timestamp:      time.Now().UnixMilli(),
	})
}

func (s *Session) onScoreUpdated(env protocol.Envelope) {
	var data protocol.ScoreUpdatedData
	if !s.decode(env, &data) {
		return
	}
	s.Roster.SetScore(data.PlayerID, data.NewScore)
}

func (s *Session) onStatusChanged(env protocol.Envelope) {
	var data protocol.StatusChangedData
	if !s.decode(env, &data) {
		return
	}
	s.Roster.SetStatus(data.PlayerID, data.Status)
}

func (s *Session) onConnectionError(env protocol.Envelope) {
	var data protocol.ErrorData
	if !s.decode(env, &data) {
		return
	}
	s.setConnected(false)
	s.setLastError(data.Message)
	s.log.Warn().Str("message", data.Message).Msg("connection error")
}
