package chat

import (
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"sketchparty/internal/broadcast"
	"sketchparty/internal/protocol"
)

const (
	MaxMessageLength   = 100
	DefaultMaxMessages = 100

	// The unread counter is a bounded display hint, not an exact count.
	unreadDisplayCap = 10
)

var (
	ErrMessageEmpty     = errors.New("empty message")
	ErrMessageTooLong   = errors.New("message too long")
	ErrDrawerMayNotChat = errors.New("drawer may not chat")
)

// Gate owns the chat log and the send permission. The current drawer is
// categorically forbidden from chatting so they cannot hint at the word.
type Gate struct {
	mu           sync.Mutex
	messages     []protocol.ChatMessage
	appended     int
	maxMessages  int
	input        string
	inputFocused bool
	hasUnread    bool
	unreadCount  int

	localIsDrawing func() bool
	notify         *broadcast.Broadcaster
}

func New(notify *broadcast.Broadcaster, localIsDrawing func() bool) *Gate {
	return &Gate{
		maxMessages:    DefaultMaxMessages,
		localIsDrawing: localIsDrawing,
		notify:         notify,
	}
}

func (g *Gate) SetInput(text string) {
	g.mu.Lock()
	g.input = text
	g.mu.Unlock()
	g.notify.Publish(broadcast.ScopeChat)
}

func (g *Gate) Input() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.input
}

// CanSend reports whether the pending input would pass Send.
func (g *Gate) CanSend() bool {
	g.mu.Lock()
	input := g.input
	g.mu.Unlock()
	return g.check(input) == nil
}

func (g *Gate) check(input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ErrMessageEmpty
	}
	if utf8.RuneCountInString(trimmed) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if g.localIsDrawing() {
		return ErrDrawerMayNotChat
	}
	return nil
}

// Send returns the trimmed input and clears it. On rejection the pending
// input is left untouched so the user does not lose typed text.
func (g *Gate) Send() (string, error) {
	g.mu.Lock()
	input := g.input
	g.mu.Unlock()

	if err := g.check(input); err != nil {
		return "", err
	}

	g.mu.Lock()
	g.input = ""
	g.mu.Unlock()
	g.notify.Publish(broadcast.ScopeChat)
	return strings.TrimSpace(input), nil
}

// Append records a message, evicting oldest entries past the retention
// cap. Messages landing while the input is unfocused mark unread state.
func (g *Gate) Append(msg protocol.ChatMessage) {
	g.mu.Lock()
	g.messages = append(g.messages, msg)
	g.appended++
	if over := len(g.messages) - g.maxMessages; over > 0 {
		g.messages = append([]protocol.ChatMessage(nil), g.messages[over:]...)
	}
	if !g.inputFocused {
		g.hasUnread = true
		if g.unreadCount < unreadDisplayCap {
			g.unreadCount++
		}
	}
	g.mu.Unlock()
	g.notify.Publish(broadcast.ScopeChat)
}

func (g *Gate) Messages() []protocol.ChatMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]protocol.ChatMessage(nil), g.messages...)
}

func (g *Gate) MessageCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.messages)
}

// Appended returns the total number of messages ever appended, including
// entries the retention cap has since evicted. The count is monotonic for
// the life of the gate; Reset does not rewind it. Renderers can cursor on
// it where a position in Messages would stall once eviction starts.
func (g *Gate) Appended() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.appended
}

// Snapshot returns the retained log and the append total as one consistent
// view, so a cursor derived from the total lines up with the slice.
func (g *Gate) Snapshot() ([]protocol.ChatMessage, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]protocol.ChatMessage(nil), g.messages...), g.appended
}

func (g *Gate) SetInputFocused(focused bool) {
	g.mu.Lock()
	g.inputFocused = focused
	if focused {
		g.hasUnread = false
		g.unreadCount = 0
	}
	g.mu.Unlock()
	g.notify.Publish(broadcast.ScopeChat)
}

func (g *Gate) HasUnread() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hasUnread
}

func (g *Gate) UnreadCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unreadCount
}

// Reset drops the log, pending input, and unread state. The append total
// stays put so cursors held elsewhere remain valid.
func (g *Gate) Reset() {
	g.mu.Lock()
	g.messages = nil
	g.input = ""
	g.inputFocused = false
	g.hasUnread = false
	g.unreadCount = 0
	g.mu.Unlock()
	g.notify.Publish(broadcast.ScopeChat)
}
