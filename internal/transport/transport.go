package transport

import (
	"errors"

	"sketchparty/internal/protocol"
)

var (
	ErrClosed         = errors.New("transport closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Conn moves envelopes between the session and the server. Events yields
// inbound envelopes, including the synthetic connection:error and
// connection:reconnected ones the transport raises about itself; the
// channel closes when the connection is gone for good.
type Conn interface {
	Send(env protocol.Envelope) error
	Events() <-chan protocol.Envelope
	Close() error
}
