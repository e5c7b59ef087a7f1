package roster

import (
	"sort"
	"strings"
	"sync"

	"sketchparty/internal/broadcast"
	"sketchparty/internal/protocol"
)

const (
	defaultMaxPlayers = 8
	MinPlayersToStart = 2
	roomCodeLength    = 6
)

// Roster mirrors the server's view of the room membership. It reports
// capacity but never rejects additions past it; the server is authoritative.
type Roster struct {
	mu         sync.Mutex
	players    []protocol.Player
	byID       map[string]int
	roomID     string
	roomCode   string
	maxPlayers int
	roomFull   bool
	notify     *broadcast.Broadcaster
}

func New(notify *broadcast.Broadcaster) *Roster {
	return &Roster{
		byID:       make(map[string]int),
		maxPlayers: defaultMaxPlayers,
		notify:     notify,
	}
}

// SetRoom replaces the roster wholesale from an authoritative snapshot.
func (r *Roster) SetRoom(room protocol.Room) {
	r.mu.Lock()
	r.roomID = room.ID
	r.roomCode = room.Code
	if room.MaxPlayers > 0 {
		r.maxPlayers = room.MaxPlayers
	}
	r.players = append([]protocol.Player(nil), room.Players...)
	r.reindex()
	r.roomFull = len(r.players) >= r.maxPlayers
	r.mu.Unlock()
	r.notify.Publish(broadcast.ScopeRoster)
}

// AddOrUpdate upserts by id: an existing player is overwritten in place,
// a new one is appended, preserving join order.
func (r *Roster) AddOrUpdate(p protocol.Player) {
	r.mu.Lock()
	if i, ok := r.byID[p.ID]; ok {
		r.players[i] = p
	} else {
		r.byID[p.ID] = len(r.players)
		r.players = append(r.players, p)
	}
	r.roomFull = len(r.players) >= r.maxPlayers
	r.mu.Unlock()
	r.notify.Publish(broadcast.ScopeRoster)
}

// Remove drops a player by id. The full flag always clears on removal;
// capacity can only be re-reached by an explicit add.
func (r *Roster) Remove(playerID string) {
	r.mu.Lock()
	i, ok := r.byID[playerID]
	if !ok {
		r.mu.Unlock()
		return
	}
	r.players = append(r.players[:i], r.players[i+1:]...)
	r.reindex()
	r.roomFull = false
	r.mu.Unlock()
	r.notify.Publish(broadcast.ScopeRoster)
}

// UpdatePlayer overwrites an existing player's fields. Unknown ids are a
// no-op: updates can legitimately arrive after a removal.
func (r *Roster) UpdatePlayer(p protocol.Player) {
	r.mu.Lock()
	i, ok := r.byID[p.ID]
	if !ok {
		r.mu.Unlock()
		return
	}
	r.players[i] = p
	r.mu.Unlock()
	r.notify.Publish(broadcast.ScopeRoster)
}

func (r *Roster) SetScore(playerID string, score int) {
	r.mu.Lock()
	i, ok := r.byID[playerID]
	if !ok {
		r.mu.Unlock()
		return
	}
	r.players[i].Score = score
	r.mu.Unlock()
	r.notify.Publish(broadcast.ScopeRoster)
}

func (r *Roster) SetStatus(playerID string, status protocol.PlayerStatus) {
	r.mu.Lock()
	i, ok := r.byID[playerID]
	if !ok {
		r.mu.Unlock()
		return
	}
	p := &r.players[i]
	p.Status = status
	switch status {
	case protocol.StatusConnected:
		p.IsConnected = true
	case protocol.StatusDisconnected:
		p.IsConnected = false
		p.IsDrawing = false
	case protocol.StatusDrawing:
		p.IsDrawing = true
	case protocol.StatusGuessing:
		p.IsDrawing = false
	}
	r.mu.Unlock()
	r.notify.Publish(broadcast.ScopeRoster)
}

// SetDrawer marks one player as the drawer and demotes any previous one.
func (r *Roster) SetDrawer(playerID string) {
	r.mu.Lock()
	for i := range r.players {
		p := &r.players[i]
		if p.ID == playerID {
			p.IsDrawing = true
			p.Status = protocol.StatusDrawing
			continue
		}
		if p.IsDrawing || p.Status == protocol.StatusDrawing {
			p.IsDrawing = false
			p.Status = protocol.StatusGuessing
		}
	}
	r.mu.Unlock()
	r.notify.Publish(broadcast.ScopeRoster)
}

func (r *Roster) Get(playerID string) (protocol.Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[playerID]
	if !ok {
		return protocol.Player{}, false
	}
	return r.players[i], true
}

// Players returns the roster in join order.
func (r *Roster) Players() []protocol.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Player(nil), r.players...)
}

// PlayersByScore returns the roster ordered by descending score, ties
// broken by earlier join time.
func (r *Roster) PlayersByScore() []protocol.Player {
	r.mu.Lock()
	list := append([]protocol.Player(nil), r.players...)
	r.mu.Unlock()
	sort.Slice(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		return list[i].JoinedAt.Before(list[j].JoinedAt)
	})
	return list
}

func (r *Roster) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *Roster) CanStartGame() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players) >= MinPlayersToStart
}

func (r *Roster) IsRoomFull() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomFull
}

func (r *Roster) MaxPlayers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxPlayers
}

func (r *Roster) RoomID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomID
}

func (r *Roster) RoomCode() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomCode
}

// Reset drops all room state, ready for a fresh join.
func (r *Roster) Reset() {
	r.mu.Lock()
	r.players = nil
	r.byID = make(map[string]int)
	r.roomID = ""
	r.roomCode = ""
	r.maxPlayers = defaultMaxPlayers
	r.roomFull = false
	r.mu.Unlock()
	r.notify.Publish(broadcast.ScopeRoster)
}

func (r *Roster) reindex() {
	r.byID = make(map[string]int, len(r.players))
	for i, p := range r.players {
		r.byID[p.ID] = i
	}
}

// NormalizeCode uppercases and trims a user-entered room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether a normalized room code has the expected length.
func ValidCode(code string) bool {
	return len(code) == roomCodeLength
}
