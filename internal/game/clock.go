package game

import "time"

// Clock abstracts time sources so tests can drive the countdown by hand.
// Both methods return the firing channel plus a release func for the
// underlying timer.
type Clock interface {
	Ticker(d time.Duration) (<-chan time.Time, func())
	After(d time.Duration) (<-chan time.Time, func())
}

type wallClock struct{}

func (wallClock) Ticker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func (wallClock) After(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTimer(d)
	return t.C, func() { t.Stop() }
}
