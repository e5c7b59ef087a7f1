package protocol

import (
	"encoding/json"
	"fmt"
)

// Outbound events (client to server).
const (
	EventRoomCreate       = "room:create"
	EventRoomJoin         = "room:join"
	EventRoomLeave        = "room:leave"
	EventGameStart        = "game:start"
	EventGameReady        = "game:ready"
	EventDrawingStroke    = "drawing:stroke"
	EventDrawingClear     = "drawing:clear"
	EventChatMessage      = "chat:message"
	EventPlayerDisconnect = "player:disconnect"
)

// Inbound events (server to client). chat:message is carried in both
// directions with different payloads.
const (
	EventRoomCreated         = "room:created"
	EventRoomJoined          = "room:joined"
	EventRoomUpdated         = "room:updated"
	EventRoomError           = "room:error"
	EventRoomPlayerJoined    = "room:player_joined"
	EventRoomPlayerLeft      = "room:player_left"
	EventGameStarted         = "game:started"
	EventGameRoundStarted    = "game:round_started"
	EventGameRoundEnd        = "game:round_end"
	EventGameEnd             = "game:end"
	EventGameTimerUpdate     = "game:timer_update"
	EventDrawingUpdate       = "drawing:update"
	EventDrawingCleared      = "drawing:cleared"
	EventChatCorrectGuess    = "chat:correct_guess"
	EventPlayerScoreUpdated  = "player:score_updated"
	EventPlayerStatusChanged = "player:status_changed"
	EventConnectionError     = "connection:error"
	EventConnectionReconnect = "connection:reconnected"
)

type RoomCreateData struct {
	PlayerName string `json:"playerName"`
}

type RoomJoinData struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type ChatSendData struct {
	Message string `json:"message"`
}

type RoomJoinedData struct {
	Room   Room   `json:"room"`
	Player Player `json:"player"`
}

type ErrorData struct {
	Message string `json:"message"`
}

type PlayerLeftData struct {
	PlayerID string `json:"playerId"`
}

type GameStartedData struct {
	Drawer Player `json:"drawer"`
	Word   string `json:"word"`
}

type RoundStartedData struct {
	Drawer      Player `json:"drawer"`
	RoundNumber int    `json:"roundNumber"`
}

type GameEndData struct {
	FinalScores []ScoreEntry `json:"finalScores"`
}

type TimerUpdateData struct {
	SecondsRemaining int `json:"secondsRemaining"`
}

type CorrectGuessData struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type ScoreUpdatedData struct {
	PlayerID string `json:"playerId"`
	NewScore int    `json:"newScore"`
}

type StatusChangedData struct {
	PlayerID string       `json:"playerId"`
	Status   PlayerStatus `json:"status"`
}

// Envelope is the wire frame: a named event plus its JSON payload. Data is
// omitted entirely for nullary events.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(event string, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Event: event}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s payload: %w", event, err)
	}
	return Envelope{Event: event, Data: raw}, nil
}

func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("decoding %s payload: no data", e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", e.Event, err)
	}
	return nil
}

func ParseEnvelope(raw []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return Envelope{}, fmt.Errorf("parsing frame: %w", err)
	}
	if e.Event == "" {
		return Envelope{}, fmt.Errorf("parsing frame: missing event name")
	}
	return e, nil
}
