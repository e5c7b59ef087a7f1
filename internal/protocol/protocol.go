package protocol

import "time"

type GameState string

const (
	GameWaiting  GameState = "waiting"
	GameStarting GameState = "starting"
	GamePlaying  GameState = "playing"
	GameRoundEnd GameState = "round_end"
	GameEnded    GameState = "game_end"
)

type PlayerStatus string

const (
	StatusConnected    PlayerStatus = "connected"
	StatusDisconnected PlayerStatus = "disconnected"
	StatusDrawing      PlayerStatus = "drawing"
	StatusGuessing     PlayerStatus = "guessing"
)

type Player struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Score       int          `json:"score"`
	IsDrawing   bool         `json:"isDrawing"`
	IsConnected bool         `json:"isConnected"`
	Status      PlayerStatus `json:"status"`
	JoinedAt    time.Time    `json:"joinedAt"`
}

type Room struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Players       []Player  `json:"players"`
	CurrentDrawer string    `json:"currentDrawer,omitempty"`
	CurrentWord   string    `json:"currentWord,omitempty"`
	RoundNumber   int       `json:"roundNumber"`
	MaxRounds     int       `json:"maxRounds"`
	GameState     GameState `json:"gameState"`
	MaxPlayers    int       `json:"maxPlayers"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// DrawingData is one stroke point. PrevX/PrevY are absent on the first
// point of a stroke; IsDrawing false signals pen-up.
type DrawingData struct {
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	PrevX     *float64 `json:"prevX,omitempty"`
	PrevY     *float64 `json:"prevY,omitempty"`
	Color     string   `json:"color"`
	BrushSize int      `json:"brushSize"`
	IsDrawing bool     `json:"isDrawing"`
	Timestamp int64    `json:"timestamp"`
}

func (d DrawingData) IsStart() bool {
	return d.PrevX == nil || d.PrevY == nil
}

type ChatMessage struct {
	ID             string `json:"id"`
	PlayerID       string `json:"playerId"`
	PlayerName     string `json:"playerName"`
	Message        string `json:"message"`
	IsCorrectGuess bool   `json:"isCorrectGuess"`
	Timestamp      int64  `json:"timestamp"`
}

type RoundResults struct {
	RoundNumber     int            `json:"roundNumber"`
	Word            string         `json:"word"`
	Drawer          Player         `json:"drawer"`
	CorrectGuessers []Player       `json:"correctGuessers"`
	PointsEarned    map[string]int `json:"pointsEarned"`
}

type ScoreEntry struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
	Rank       int    `json:"rank"`
}
