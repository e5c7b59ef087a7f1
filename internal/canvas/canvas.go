package canvas

import (
	"sync"
	"time"

	"sketchparty/internal/broadcast"
	"sketchparty/internal/protocol"
)

const (
	MinBrushSize      = 1
	MaxBrushSize      = 20
	DefaultBrushSize  = 4
	DefaultBrushColor = "#000000"

	clearPulseWindow = 150 * time.Millisecond
)

// Canvas owns the brush settings and the append-only stroke log. Strokes
// are immutable once appended; the log only ever shrinks by being cleared
// wholesale.
type Canvas struct {
	mu         sync.Mutex
	strokes    []protocol.DrawingData
	brushColor string
	brushSize  int
	clearing   bool
	clearTimer *time.Timer
	pulse      time.Duration

	localIsDrawing func() bool
	notify         *broadcast.Broadcaster
	now            func() time.Time
}

// New builds a canvas. localIsDrawing reports whether the local player is
// the current drawer; it gates remote stroke intake (echo suppression).
func New(notify *broadcast.Broadcaster, localIsDrawing func() bool) *Canvas {
	return &Canvas{
		brushColor:     DefaultBrushColor,
		brushSize:      DefaultBrushSize,
		pulse:          clearPulseWindow,
		localIsDrawing: localIsDrawing,
		notify:         notify,
		now:            time.Now,
	}
}

func (c *Canvas) SetBrushColor(color string) {
	c.mu.Lock()
	c.brushColor = color
	c.mu.Unlock()
	c.notify.Publish(broadcast.ScopeCanvas)
}

// SetBrushSize clamps out-of-range sizes instead of rejecting them.
func (c *Canvas) SetBrushSize(size int) {
	c.mu.Lock()
	c.brushSize = clampBrush(size)
	c.mu.Unlock()
	c.notify.Publish(broadcast.ScopeCanvas)
}

func clampBrush(size int) int {
	if size < MinBrushSize {
		return MinBrushSize
	}
	if size > MaxBrushSize {
		return MaxBrushSize
	}
	return size
}

func (c *Canvas) BrushColor() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.brushColor
}

func (c *Canvas) BrushSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.brushSize
}

func (c *Canvas) IsCurrentColorLight() bool {
	return IsLight(c.BrushColor())
}

// StartPoint builds the first point of a new stroke from the current
// brush settings.
func (c *Canvas) StartPoint(x, y float64) protocol.DrawingData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return protocol.DrawingData{
		X:         x,
		Y:         y,
		Color:     c.brushColor,
		BrushSize: c.brushSize,
		IsDrawing: true,
		Timestamp: c.now().UnixMilli(),
	}
}

// ContinuePoint builds a point linked to the previous one, extending the
// stroke as a continuous line.
func (c *Canvas) ContinuePoint(x, y, fromX, fromY float64) protocol.DrawingData {
	p := c.StartPoint(x, y)
	p.PrevX = &fromX
	p.PrevY = &fromY
	return p
}

// EndPoint builds the pen-up point that terminates a stroke.
func (c *Canvas) EndPoint(x, y, fromX, fromY float64) protocol.DrawingData {
	p := c.ContinuePoint(x, y, fromX, fromY)
	p.IsDrawing = false
	return p
}

// AppendLocal records a locally authored point and returns it with the
// brush size forced back into range. The caller is responsible for also
// forwarding the returned point to the transport.
func (c *Canvas) AppendLocal(p protocol.DrawingData) protocol.DrawingData {
	p.BrushSize = clampBrush(p.BrushSize)
	c.mu.Lock()
	c.strokes = append(c.strokes, p)
	c.mu.Unlock()
	c.notify.Publish(broadcast.ScopeCanvas)
	return p
}

// ReceiveRemote records a point that arrived from the transport, unless
// the local player is the current drawer: the drawer's own strokes are
// already in the log via AppendLocal, so the server's echo of them must
// be dropped or every stroke would render twice.
func (c *Canvas) ReceiveRemote(p protocol.DrawingData) {
	if c.localIsDrawing() {
		return
	}
	c.mu.Lock()
	c.strokes = append(c.strokes, p)
	c.mu.Unlock()
	c.notify.Publish(broadcast.ScopeCanvas)
}

// Clear wipes the stroke log and raises the clearing flag for one short
// window so a renderer can tell "just cleared" from "nothing drawn yet".
func (c *Canvas) Clear() {
	c.mu.Lock()
	c.strokes = nil
	c.clearing = true
	if c.clearTimer != nil {
		c.clearTimer.Stop()
	}
	c.clearTimer = time.AfterFunc(c.pulse, c.endClearPulse)
	c.mu.Unlock()
	c.notify.Publish(broadcast.ScopeCanvas)
}

func (c *Canvas) endClearPulse() {
	c.mu.Lock()
	c.clearing = false
	c.clearTimer = nil
	c.mu.Unlock()
	c.notify.Publish(broadcast.ScopeCanvas)
}

func (c *Canvas) IsClearing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearing
}

func (c *Canvas) StrokeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.strokes)
}

// Strokes returns the log in append order.
func (c *Canvas) Strokes() []protocol.DrawingData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.DrawingData(nil), c.strokes...)
}

// Reset cancels any pending clear pulse and restores brush defaults.
// Safe to call from any state, any number of times.
func (c *Canvas) Reset() {
	c.mu.Lock()
	if c.clearTimer != nil {
		c.clearTimer.Stop()
		c.clearTimer = nil
	}
	c.strokes = nil
	c.clearing = false
	c.brushColor = DefaultBrushColor
	c.brushSize = DefaultBrushSize
	c.mu.Unlock()
	c.notify.Publish(broadcast.ScopeCanvas)
}
