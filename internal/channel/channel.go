// Package channel implements the Channel abstraction of spec.md §4.A: a
// typed bidirectional message channel between two endpoints, in-process or
// cross-process, with reliable FIFO delivery and a handshake bootstrap for
// the cross-process flavour.
package channel

import "github.com/dqcsim/dqcsim/dqerr"

// Channel is the generic bidirectional, FIFO, typed channel both flavours
// implement. Messages are opaque to the channel itself; callers encode them
// (the gatestream and host-call engines encode via internal/proto).
type Channel interface {
	// Send blocks until the message is queued (process-local) or written
	// (inter-process). The inter-process flavour returns a Channel-kind
	// *dqerr.Error if the write fails, e.g. because the peer is gone; the
	// process-local flavour always returns nil and does not detect a peer
	// that has closed its end.
	Send(msg interface{}) error
	// Recv blocks until a message arrives or the peer is gone.
	Recv() (interface{}, error)
	// Close releases the channel's resources. Safe to call more than once.
	Close() error
}

// ErrPeerGone is wrapped into every Send/Recv failure caused by the other
// end disappearing, so callers can use errors.Is to recognize it regardless
// of which flavour produced it.
var ErrPeerGone = dqerr.New(dqerr.Channel, "peer gone")
