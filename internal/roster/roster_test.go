package roster

import (
	"fmt"
	"testing"
	"time"

	"sketchparty/internal/broadcast"
	"sketchparty/internal/protocol"
)

var baseTime = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func testPlayer(id string, score int, joinOffset time.Duration) protocol.Player {
	return protocol.Player{
		ID:          id,
		Name:        "player-" + id,
		Score:       score,
		IsConnected: true,
		Status:      protocol.StatusConnected,
		JoinedAt:    baseTime.Add(joinOffset),
	}
}

func newTestRoster() *Roster {
	return New(broadcast.NewBroadcaster())
}

func TestRoster_AddOrUpdateUpserts(t *testing.T) {
	r := newTestRoster()

	r.AddOrUpdate(testPlayer("p1", 0, 0))
	r.AddOrUpdate(testPlayer("p2", 0, time.Second))
	r.AddOrUpdate(testPlayer("p3", 0, 2*time.Second))

	updated := testPlayer("p2", 50, time.Second)
	r.AddOrUpdate(updated)

	players := r.Players()
	if len(players) != 3 {
		t.Fatalf("player count = %d, want 3", len(players))
	}
	order := []string{"p1", "p2", "p3"}
	for i, want := range order {
		if players[i].ID != want {
			t.Errorf("players[%d] = %s, want %s (join order must survive upserts)", i, players[i].ID, want)
		}
	}
	if players[1].Score != 50 {
		t.Errorf("p2 score = %d, want 50", players[1].Score)
	}
}

func TestRoster_NoDuplicateIDs(t *testing.T) {
	r := newTestRoster()

	for i := 0; i < 10; i++ {
		r.AddOrUpdate(testPlayer("p1", i, 0))
	}
	if n := r.PlayerCount(); n != 1 {
		t.Errorf("player count = %d, want 1 after repeated upserts of one id", n)
	}
}

func TestRoster_RoomFullLifecycle(t *testing.T) {
	r := newTestRoster()

	for i := 0; i < 8; i++ {
		r.AddOrUpdate(testPlayer(fmt.Sprintf("p%d", i), 0, time.Duration(i)*time.Second))
	}
	if !r.IsRoomFull() {
		t.Error("room with 8 of 8 players should be full")
	}

	r.Remove("p3")
	if r.IsRoomFull() {
		t.Error("room should not be full after a removal")
	}
	if n := r.PlayerCount(); n != 7 {
		t.Errorf("player count = %d, want 7", n)
	}

	r.AddOrUpdate(testPlayer("p8", 0, 8*time.Second))
	if !r.IsRoomFull() {
		t.Error("room should be full again after re-reaching capacity")
	}
}

func TestRoster_RemoveUnknownIsNoop(t *testing.T) {
	r := newTestRoster()
	r.AddOrUpdate(testPlayer("p1", 0, 0))

	r.Remove("ghost")
	if n := r.PlayerCount(); n != 1 {
		t.Errorf("player count = %d, want 1", n)
	}
}

func TestRoster_UpdatePlayerNeverInserts(t *testing.T) {
	r := newTestRoster()
	r.AddOrUpdate(testPlayer("p1", 0, 0))

	r.UpdatePlayer(testPlayer("ghost", 99, 0))
	if n := r.PlayerCount(); n != 1 {
		t.Errorf("player count = %d, want 1 (update of unknown id must not insert)", n)
	}

	p1 := testPlayer("p1", 25, 0)
	p1.IsDrawing = true
	r.UpdatePlayer(p1)
	got, ok := r.Get("p1")
	if !ok {
		t.Fatal("p1 missing after update")
	}
	if got.Score != 25 || !got.IsDrawing {
		t.Errorf("p1 = %+v, want score 25 and drawing", got)
	}
}

func TestRoster_PlayersByScore(t *testing.T) {
	r := newTestRoster()
	r.AddOrUpdate(testPlayer("early", 100, 0))
	r.AddOrUpdate(testPlayer("low", 20, time.Second))
	r.AddOrUpdate(testPlayer("late", 100, 2*time.Second))
	r.AddOrUpdate(testPlayer("top", 300, 3*time.Second))

	got := r.PlayersByScore()
	want := []string{"top", "early", "late", "low"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("rank %d = %s, want %s", i+1, got[i].ID, id)
		}
	}

	// Score view must not disturb join order.
	players := r.Players()
	if players[0].ID != "early" || players[3].ID != "top" {
		t.Errorf("join order disturbed: %v", []string{players[0].ID, players[3].ID})
	}
}

func TestRoster_SetRoomReplacesWholesale(t *testing.T) {
	r := newTestRoster()
	r.AddOrUpdate(testPlayer("stale", 0, 0))

	room := protocol.Room{
		ID:         "r1",
		Code:       "XK42PD",
		MaxPlayers: 8,
		Players: []protocol.Player{
			testPlayer("p1", 10, 0),
			testPlayer("p2", 0, time.Second),
		},
	}
	r.SetRoom(room)

	if r.RoomID() != "r1" || r.RoomCode() != "XK42PD" {
		t.Errorf("room identity = %s/%s, want r1/XK42PD", r.RoomID(), r.RoomCode())
	}
	if _, ok := r.Get("stale"); ok {
		t.Error("stale player survived a wholesale snapshot replace")
	}
	if n := r.PlayerCount(); n != 2 {
		t.Errorf("player count = %d, want 2", n)
	}
	if r.IsRoomFull() {
		t.Error("2 of 8 players should not be full")
	}
}

func TestRoster_SetRoomFullSnapshot(t *testing.T) {
	r := newTestRoster()
	room := protocol.Room{ID: "r1", Code: "XK42PD", MaxPlayers: 2}
	room.Players = []protocol.Player{testPlayer("p1", 0, 0), testPlayer("p2", 0, time.Second)}
	r.SetRoom(room)

	if !r.IsRoomFull() {
		t.Error("snapshot at capacity should set the full flag")
	}
}

func TestRoster_CanStartGame(t *testing.T) {
	r := newTestRoster()
	if r.CanStartGame() {
		t.Error("empty roster should not allow a start")
	}
	r.AddOrUpdate(testPlayer("p1", 0, 0))
	if r.CanStartGame() {
		t.Error("one player should not allow a start")
	}
	r.AddOrUpdate(testPlayer("p2", 0, time.Second))
	if !r.CanStartGame() {
		t.Error("two players should allow a start")
	}
}

func TestRoster_SetDrawerRotation(t *testing.T) {
	r := newTestRoster()
	r.AddOrUpdate(testPlayer("p1", 0, 0))
	r.AddOrUpdate(testPlayer("p2", 0, time.Second))

	r.SetDrawer("p1")
	p1, _ := r.Get("p1")
	p2, _ := r.Get("p2")
	if !p1.IsDrawing || p1.Status != protocol.StatusDrawing {
		t.Errorf("p1 = %+v, want drawing", p1)
	}
	if p2.IsDrawing {
		t.Errorf("p2 = %+v, want not drawing", p2)
	}

	r.SetDrawer("p2")
	p1, _ = r.Get("p1")
	p2, _ = r.Get("p2")
	if p1.IsDrawing || p1.Status != protocol.StatusGuessing {
		t.Errorf("p1 after rotation = %+v, want guessing", p1)
	}
	if !p2.IsDrawing {
		t.Errorf("p2 after rotation = %+v, want drawing", p2)
	}
}

func TestRoster_SetStatusSyncsFlags(t *testing.T) {
	r := newTestRoster()
	r.AddOrUpdate(testPlayer("p1", 0, 0))

	r.SetStatus("p1", protocol.StatusDisconnected)
	p, _ := r.Get("p1")
	if p.IsConnected {
		t.Error("disconnected status should clear the connected flag")
	}

	r.SetStatus("p1", protocol.StatusConnected)
	p, _ = r.Get("p1")
	if !p.IsConnected {
		t.Error("connected status should set the connected flag")
	}

	r.SetStatus("ghost", protocol.StatusDrawing)
	if n := r.PlayerCount(); n != 1 {
		t.Errorf("player count = %d, want 1 (status for unknown id must not insert)", n)
	}
}

func TestRoster_ScoreUpdateUnknownIsNoop(t *testing.T) {
	r := newTestRoster()
	r.AddOrUpdate(testPlayer("p1", 0, 0))

	r.SetScore("ghost", 500)
	r.SetScore("p1", 40)

	p, _ := r.Get("p1")
	if p.Score != 40 {
		t.Errorf("p1 score = %d, want 40", p.Score)
	}
	if n := r.PlayerCount(); n != 1 {
		t.Errorf("player count = %d, want 1", n)
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  xk42pd "); got != "XK42PD" {
		t.Errorf("NormalizeCode = %q, want XK42PD", got)
	}
}

func TestValidCode(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"XK42PD", true},
		{"ABC12", false},
		{"ABC1234", false},
		{"", false},
	}
	for _, c := range cases {
		if got := ValidCode(c.code); got != c.want {
			t.Errorf("ValidCode(%q) = %v, want %v", c.code, got, c.want)
		}
	}
}

func TestRoster_Reset(t *testing.T) {
	r := newTestRoster()
	room := protocol.Room{ID: "r1", Code: "XK42PD", MaxPlayers: 2}
	room.Players = []protocol.Player{testPlayer("p1", 0, 0), testPlayer("p2", 0, time.Second)}
	r.SetRoom(room)

	r.Reset()
	if n := r.PlayerCount(); n != 0 {
		t.Errorf("player count after reset = %d, want 0", n)
	}
	if r.IsRoomFull() {
		t.Error("reset roster should not be full")
	}
	if r.RoomCode() != "" {
		t.Error("reset roster should have no room code")
	}
	if r.MaxPlayers() != 8 {
		t.Errorf("max players after reset = %d, want default 8", r.MaxPlayers())
	}
}

func TestRoster_PublishesChanges(t *testing.T) {
	b := broadcast.NewBroadcaster()
	r := New(b)
	ch := b.Subscribe()

	r.AddOrUpdate(testPlayer("p1", 0, 0))

	select {
	case change := <-ch:
		if change.Scope != broadcast.ScopeRoster {
			t.Errorf("scope = %q, want %q", change.Scope, broadcast.ScopeRoster)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for roster change")
	}
}

func TestRoster_NoopMutationsPublishNothing(t *testing.T) {
	b := broadcast.NewBroadcaster()
	r := New(b)
	ch := b.Subscribe()

	r.SetScore("ghost", 10)
	r.SetStatus("ghost", protocol.StatusDrawing)
	r.UpdatePlayer(testPlayer("ghost", 0, 0))
	r.Remove("ghost")

	select {
	case change := <-ch:
		t.Fatalf("unknown-id mutation published a %q change", change.Scope)
	default:
	}
}
