package canvas

import (
	"testing"
	"time"

	"sketchparty/internal/broadcast"
	"sketchparty/internal/protocol"
)

type drawerFlag struct {
	drawing bool
}

func (d *drawerFlag) isDrawing() bool { return d.drawing }

func newTestCanvas() (*Canvas, *drawerFlag) {
	d := &drawerFlag{}
	c := New(broadcast.NewBroadcaster(), d.isDrawing)
	return c, d
}

func TestCanvas_BrushSizeClamped(t *testing.T) {
	c, _ := newTestCanvas()

	cases := []struct {
		set  int
		want int
	}{
		{0, 1},
		{-5, 1},
		{1, 1},
		{10, 10},
		{20, 20},
		{21, 20},
		{999, 20},
	}
	for _, tc := range cases {
		c.SetBrushSize(tc.set)
		if got := c.BrushSize(); got != tc.want {
			t.Errorf("SetBrushSize(%d) -> %d, want %d", tc.set, got, tc.want)
		}
	}
}

func TestCanvas_Defaults(t *testing.T) {
	c, _ := newTestCanvas()
	if c.BrushColor() != "#000000" {
		t.Errorf("default color = %q, want #000000", c.BrushColor())
	}
	if c.BrushSize() != 4 {
		t.Errorf("default size = %d, want 4", c.BrushSize())
	}
	if c.StrokeCount() != 0 {
		t.Errorf("fresh canvas has %d strokes, want 0", c.StrokeCount())
	}
	if c.IsClearing() {
		t.Error("fresh canvas should not report clearing")
	}
}

func TestCanvas_EchoSuppression(t *testing.T) {
	c, d := newTestCanvas()
	point := c.StartPoint(10, 20)

	d.drawing = true
	c.ReceiveRemote(point)
	if n := c.StrokeCount(); n != 0 {
		t.Errorf("stroke count = %d, want 0 (drawer must drop echoed strokes)", n)
	}

	d.drawing = false
	c.ReceiveRemote(point)
	if n := c.StrokeCount(); n != 1 {
		t.Errorf("stroke count = %d, want 1 (guesser must accept remote strokes)", n)
	}
}

func TestCanvas_AppendLocalAlwaysAppends(t *testing.T) {
	c, d := newTestCanvas()
	d.drawing = true

	c.AppendLocal(c.StartPoint(1, 1))
	c.AppendLocal(c.ContinuePoint(2, 2, 1, 1))
	if n := c.StrokeCount(); n != 2 {
		t.Errorf("stroke count = %d, want 2", n)
	}
}

func TestCanvas_AppendLocalClampsBrushSize(t *testing.T) {
	c, _ := newTestCanvas()

	point := c.StartPoint(1, 1)
	point.BrushSize = 99
	got := c.AppendLocal(point)
	if got.BrushSize != MaxBrushSize {
		t.Errorf("appended brush size = %d, want %d", got.BrushSize, MaxBrushSize)
	}
	if stored := c.Strokes()[0].BrushSize; stored != MaxBrushSize {
		t.Errorf("stored brush size = %d, want %d", stored, MaxBrushSize)
	}
}

func TestCanvas_PointConstructors(t *testing.T) {
	c, _ := newTestCanvas()
	c.SetBrushColor("#ff0000")
	c.SetBrushSize(7)

	start := c.StartPoint(5, 6)
	if !start.IsStart() {
		t.Error("StartPoint should have no previous coordinates")
	}
	if !start.IsDrawing {
		t.Error("StartPoint should be pen-down")
	}
	if start.Color != "#ff0000" || start.BrushSize != 7 {
		t.Errorf("point carries %s/%d, want current brush settings", start.Color, start.BrushSize)
	}
	if start.Timestamp == 0 {
		t.Error("point should carry a timestamp")
	}

	cont := c.ContinuePoint(8, 9, 5, 6)
	if cont.IsStart() {
		t.Error("ContinuePoint should link to previous coordinates")
	}
	if *cont.PrevX != 5 || *cont.PrevY != 6 {
		t.Errorf("prev = (%v,%v), want (5,6)", *cont.PrevX, *cont.PrevY)
	}

	end := c.EndPoint(10, 11, 8, 9)
	if end.IsDrawing {
		t.Error("EndPoint should be pen-up")
	}
}

func TestCanvas_ClearPulse(t *testing.T) {
	c, _ := newTestCanvas()
	c.pulse = 10 * time.Millisecond

	c.AppendLocal(c.StartPoint(1, 1))
	c.Clear()

	if n := c.StrokeCount(); n != 0 {
		t.Errorf("stroke count after clear = %d, want 0", n)
	}
	if !c.IsClearing() {
		t.Fatal("clearing flag should be up immediately after Clear")
	}

	deadline := time.Now().Add(1 * time.Second)
	for c.IsClearing() {
		if time.Now().After(deadline) {
			t.Fatal("clearing flag never dropped")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestCanvas_ClearIdempotent(t *testing.T) {
	c, _ := newTestCanvas()
	c.pulse = time.Hour // hold the flag so the double clear overlaps

	c.Clear()
	c.Clear()
	if n := c.StrokeCount(); n != 0 {
		t.Errorf("stroke count = %d, want 0", n)
	}
	if !c.IsClearing() {
		t.Error("clearing flag should still be up")
	}
}

func TestCanvas_ResetCancelsPulseAndRestoresDefaults(t *testing.T) {
	c, _ := newTestCanvas()
	c.pulse = time.Hour

	c.SetBrushColor("#ff0000")
	c.SetBrushSize(19)
	c.AppendLocal(c.StartPoint(1, 1))
	c.Clear()

	c.Reset()
	c.Reset() // must stay safe on repeat

	if c.IsClearing() {
		t.Error("reset should cancel the pending clear pulse")
	}
	if c.BrushColor() != DefaultBrushColor || c.BrushSize() != DefaultBrushSize {
		t.Errorf("brush = %s/%d, want defaults", c.BrushColor(), c.BrushSize())
	}
	if n := c.StrokeCount(); n != 0 {
		t.Errorf("stroke count = %d, want 0", n)
	}
}

func TestCanvas_StrokesReturnsCopy(t *testing.T) {
	c, _ := newTestCanvas()
	c.AppendLocal(c.StartPoint(1, 1))

	got := c.Strokes()
	got[0].X = 999
	if c.Strokes()[0].X == 999 {
		t.Error("Strokes() must not expose the internal log")
	}
}

func TestCanvas_PublishesChanges(t *testing.T) {
	b := broadcast.NewBroadcaster()
	d := &drawerFlag{}
	c := New(b, d.isDrawing)
	ch := b.Subscribe()

	c.ReceiveRemote(protocol.DrawingData{X: 1, Y: 2, Color: "#000000", BrushSize: 4, IsDrawing: true})

	select {
	case change := <-ch:
		if change.Scope != broadcast.ScopeCanvas {
			t.Errorf("scope = %q, want %q", change.Scope, broadcast.ScopeCanvas)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for canvas change")
	}
}
