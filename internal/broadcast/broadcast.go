package broadcast

import "sync"

type Scope string

const (
	ScopeRoster  Scope = "roster"
	ScopeCanvas  Scope = "canvas"
	ScopeChat    Scope = "chat"
	ScopeGame    Scope = "game"
	ScopeSession Scope = "session"
)

// Change tells subscribers which slice of session state mutated, so a
// rendering layer re-reads only the getters it cares about.
type Change struct {
	Scope Scope
}

type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Change]bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[chan Change]bool),
	}
}

func (b *Broadcaster) Subscribe() chan Change {
	ch := make(chan Change, 10)
	b.mu.Lock()
	b.subs[ch] = true
	b.mu.Unlock()
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan Change) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Broadcaster) Publish(scope Scope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- Change{Scope: scope}:
		default:
			// skip subscribers with full channels
		}
	}
}
