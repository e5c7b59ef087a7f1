package game

import (
	"errors"
	"sync"
	"time"

	"sketchparty/internal/broadcast"
	"sketchparty/internal/protocol"
	"sketchparty/internal/roster"
)

const DefaultMaxRounds = 3

var (
	ErrGameInProgress   = errors.New("game already in progress")
	ErrNotEnoughPlayers = errors.New("not enough players")
)

type Config struct {
	RoundDuration int           // countdown length in ticks
	TickInterval  time.Duration // wall time per tick
	GraceDelay    time.Duration // pause between rounds
}

func DefaultConfig() Config {
	return Config{
		RoundDuration: 60,
		TickInterval:  time.Second,
		GraceDelay:    5 * time.Second,
	}
}

// Machine drives round progression:
// WAITING -> STARTING -> PLAYING -> ROUND_END -> (PLAYING | GAME_END).
// It owns the drawer identity and the countdown; at most one scheduled
// callback (tick loop or grace delay) is live at any moment, and every
// (re)start cancels the previous one first.
type Machine struct {
	mu            sync.Mutex
	state         protocol.GameState
	currentRound  int
	maxRounds     int
	timeRemaining int
	drawerID      string
	word          string
	localPlayerID string
	lastResults   *protocol.RoundResults
	finalScores   []protocol.ScoreEntry

	// stop is the single live handle; closing it cancels whichever
	// countdown or grace goroutine is pending.
	stop chan struct{}

	roster *roster.Roster
	notify *broadcast.Broadcaster
	clock  Clock
	cfg    Config
}

func New(r *roster.Roster, notify *broadcast.Broadcaster, cfg Config) *Machine {
	return &Machine{
		state:  protocol.GameWaiting,
		roster: r,
		notify: notify,
		clock:  wallClock{},
		cfg:    cfg,
	}
}

// SetLocalPlayer records which roster member this client is.
func (m *Machine) SetLocalPlayer(playerID string) {
	m.mu.Lock()
	m.localPlayerID = playerID
	m.mu.Unlock()
	m.notify.Publish(broadcast.ScopeGame)
}

func (m *Machine) LocalPlayerID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.localPlayerID
}

// IsLocalDrawing is the access-control root: canvas intake and the chat
// gate both key off it.
func (m *Machine) IsLocalDrawing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drawerID != "" && m.drawerID == m.localPlayerID
}

func (m *Machine) State() protocol.GameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) CurrentRound() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentRound
}

func (m *Machine) MaxRounds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxRounds
}

func (m *Machine) TimeRemaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeRemaining
}

func (m *Machine) CurrentDrawerID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drawerID
}

// Word returns the round's secret word. The rendering layer must only
// show it when IsLocalDrawing reports true.
func (m *Machine) Word() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.word
}

func (m *Machine) LastResults() (protocol.RoundResults, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastResults == nil {
		return protocol.RoundResults{}, false
	}
	return *m.lastResults, true
}

func (m *Machine) FinalScores() []protocol.ScoreEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]protocol.ScoreEntry(nil), m.finalScores...)
}

// StartGame begins round 1. Only valid from WAITING with at least two
// players; anything else is a rejected no-op.
func (m *Machine) StartGame(maxRounds int) error {
	m.mu.Lock()
	if m.state != protocol.GameWaiting {
		m.mu.Unlock()
		return ErrGameInProgress
	}
	if !m.roster.CanStartGame() {
		m.mu.Unlock()
		return ErrNotEnoughPlayers
	}
	if maxRounds < 1 {
		maxRounds = DefaultMaxRounds
	}
	m.maxRounds = maxRounds
	m.currentRound = 1
	m.state = protocol.GamePlaying
	m.startRoundLocked()
	m.mu.Unlock()
	m.notify.Publish(broadcast.ScopeGame)
	return nil
}

// StartRound resets the countdown to the full round duration.
func (m *Machine) StartRound() {
	m.mu.Lock()
	m.startRoundLocked()
	m.mu.Unlock()
	m.notify.Publish(broadcast.ScopeGame)
}

func (m *Machine) startRoundLocked() {
	m.cancelPendingLocked()
	m.timeRemaining = m.cfg.RoundDuration
	stop := make(chan struct{})
	m.stop = stop
	ticks, release := m.clock.Ticker(m.cfg.TickInterval)
	go m.runCountdown(stop, ticks, release)
}

func (m *Machine) runCountdown(stop chan struct{}, ticks <-chan time.Time, release func()) {
	defer release()
	for {
		select {
		case <-stop:
			return
		case <-ticks:
			if m.tick(stop) {
				return
			}
		}
	}
}

// tick consumes one time unit. It reports true when this countdown is
// finished, either because time ran out or because the handle was
// superseded while the tick was in flight.
func (m *Machine) tick(stop chan struct{}) bool {
	m.mu.Lock()
	if m.stop != stop || m.state != protocol.GamePlaying {
		m.mu.Unlock()
		return true
	}
	if m.timeRemaining > 0 {
		m.timeRemaining--
	}
	if m.timeRemaining > 0 {
		m.mu.Unlock()
		m.notify.Publish(broadcast.ScopeGame)
		return false
	}
	// Clear the handle before transitioning so endRound fires exactly once.
	m.stop = nil
	m.endRoundLocked()
	m.mu.Unlock()
	m.notify.Publish(broadcast.ScopeGame)
	return true
}

// EndRound finishes the current round ahead of the countdown.
func (m *Machine) EndRound() {
	m.mu.Lock()
	if m.state != protocol.GamePlaying {
		m.mu.Unlock()
		return
	}
	m.endRoundLocked()
	m.mu.Unlock()
	m.notify.Publish(broadcast.ScopeGame)
}

func (m *Machine) endRoundLocked() {
	m.cancelPendingLocked()
	if m.currentRound >= m.maxRounds {
		m.state = protocol.GameEnded
		return
	}
	m.state = protocol.GameRoundEnd
	stop := make(chan struct{})
	m.stop = stop
	fire, release := m.clock.After(m.cfg.GraceDelay)
	go func() {
		defer release()
		select {
		case <-stop:
		case <-fire:
			m.advanceRound(stop)
		}
	}()
}

func (m *Machine) advanceRound(stop chan struct{}) {
	m.mu.Lock()
	if m.stop != stop || m.state != protocol.GameRoundEnd {
		m.mu.Unlock()
		return
	}
	m.currentRound++
	m.state = protocol.GamePlaying
	m.startRoundLocked()
	m.mu.Unlock()
	m.notify.Publish(broadcast.ScopeGame)
}

// SetCurrentDrawer assigns the drawer and the round's secret word, and
// rotates the roster's drawing flags to match.
func (m *Machine) SetCurrentDrawer(playerID, word string) {
	m.mu.Lock()
	m.drawerID = playerID
	m.word = word
	m.mu.Unlock()
	m.roster.SetDrawer(playerID)
	m.notify.Publish(broadcast.ScopeGame)
}

// SetTimeRemaining adopts the server's authoritative countdown value.
// It never triggers a round transition; the server signals those itself.
func (m *Machine) SetTimeRemaining(seconds int) {
	m.mu.Lock()
	if seconds < 0 {
		seconds = 0
	}
	m.timeRemaining = seconds
	m.mu.Unlock()
	m.notify.Publish(broadcast.ScopeGame)
}

// ApplyGameStarted mirrors the server's game start. Clients that did not
// request the start transition here.
func (m *Machine) ApplyGameStarted(drawerID, word string) {
	m.mu.Lock()
	if m.state == protocol.GameWaiting || m.state == protocol.GameStarting {
		if m.maxRounds < 1 {
			m.maxRounds = DefaultMaxRounds
		}
		m.currentRound = 1
		m.state = protocol.GamePlaying
		m.startRoundLocked()
	}
	m.drawerID = drawerID
	m.word = word
	m.mu.Unlock()
	m.roster.SetDrawer(drawerID)
	m.notify.Publish(broadcast.ScopeGame)
}

// ApplyRoundStarted mirrors the server advancing to a new round. The word
// is left alone; the server assigns it through its own event.
func (m *Machine) ApplyRoundStarted(drawerID string, roundNumber int) {
	m.mu.Lock()
	if m.state == protocol.GameEnded {
		m.mu.Unlock()
		return
	}
	if roundNumber > 0 {
		m.currentRound = roundNumber
	}
	m.drawerID = drawerID
	m.state = protocol.GamePlaying
	m.startRoundLocked()
	m.mu.Unlock()
	m.roster.SetDrawer(drawerID)
	m.notify.Publish(broadcast.ScopeGame)
}

// FinishRound records the server's round summary and ends the round.
func (m *Machine) FinishRound(results protocol.RoundResults) {
	m.mu.Lock()
	m.lastResults = &results
	if results.RoundNumber > 0 {
		m.currentRound = results.RoundNumber
	}
	if m.state == protocol.GamePlaying {
		m.endRoundLocked()
	}
	m.mu.Unlock()
	m.notify.Publish(broadcast.ScopeGame)
}

// FinishGame records the final standings and parks the machine in
// GAME_END until an explicit reset.
func (m *Machine) FinishGame(finalScores []protocol.ScoreEntry) {
	m.mu.Lock()
	m.cancelPendingLocked()
	m.state = protocol.GameEnded
	m.finalScores = append([]protocol.ScoreEntry(nil), finalScores...)
	m.mu.Unlock()
	m.notify.Publish(broadcast.ScopeGame)
}

// SyncRoom adopts the round-level fields of an authoritative room
// snapshot. Entering PLAYING restarts the countdown; leaving it cancels
// any pending callback and waits for the server's round events.
func (m *Machine) SyncRoom(room protocol.Room) {
	m.mu.Lock()
	if room.MaxRounds > 0 {
		m.maxRounds = room.MaxRounds
	}
	if room.RoundNumber > 0 {
		m.currentRound = room.RoundNumber
	}
	if room.CurrentDrawer != "" {
		m.drawerID = room.CurrentDrawer
	}
	if room.CurrentWord != "" {
		m.word = room.CurrentWord
	}
	if room.GameState != "" && room.GameState != m.state {
		was := m.state
		m.state = room.GameState
		if room.GameState == protocol.GamePlaying && was != protocol.GamePlaying {
			m.startRoundLocked()
		} else if room.GameState != protocol.GamePlaying {
			m.cancelPendingLocked()
		}
	}
	m.mu.Unlock()
	m.notify.Publish(broadcast.ScopeGame)
}

// Reset tears down any pending callback and returns to WAITING defaults.
// Safe from any state, any number of times. The local player identity
// survives; it belongs to the connection, not the game.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.cancelPendingLocked()
	m.state = protocol.GameWaiting
	m.currentRound = 0
	m.maxRounds = 0
	m.timeRemaining = 0
	m.drawerID = ""
	m.word = ""
	m.lastResults = nil
	m.finalScores = nil
	m.mu.Unlock()
	m.notify.Publish(broadcast.ScopeGame)
}

func (m *Machine) cancelPendingLocked() {
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}
