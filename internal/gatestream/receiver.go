package gatestream

import (
	"github.com/dqcsim/dqcsim/dqerr"
	"github.com/dqcsim/dqcsim/internal/channel"
	"github.com/dqcsim/dqcsim/internal/dqlog"
	"github.com/dqcsim/dqcsim/internal/proto"
	"github.com/dqcsim/dqcsim/internal/types"
)

// Receiver drives the receiving half of a gatestream connection: it reads
// GatestreamDown requests one at a time (the single-cooperative-scheduler
// constraint of spec.md §5 applies here as much as to the host-call engine)
// and dispatches each synchronously to a Handler, replying with a
// cumulative-ack GatestreamUp. When a Gate produces measurement results,
// the Measured reply is sent strictly before the Gate's own Success
// acknowledgement, so a peer Edge waiting in GetMeasurement always sees the
// result before (or without ever needing) the ack that retires the request.
type Receiver struct {
	ch      channel.Channel
	handler Handler
	log     *dqlog.Logger
}

// NewReceiver wraps ch (expected to yield *proto.GatestreamDown from Recv).
func NewReceiver(ch channel.Channel, handler Handler, log *dqlog.Logger) *Receiver {
	return &Receiver{ch: ch, handler: handler, log: log}
}

// Serve processes requests until the channel closes or handler execution
// returns a fatal (non-protocol) error. Per-request failures are reported
// upstream as Failure replies and do not stop the loop.
func (r *Receiver) Serve() error {
	for {
		m, err := r.ch.Recv()
		if err != nil {
			if dqerr.KindOf(err) == dqerr.Channel {
				return nil
			}
			return err
		}
		down, ok := m.(*proto.GatestreamDown)
		if !ok {
			return dqerr.New(dqerr.Channel, "unexpected gatestream message type %T", m)
		}
		r.dispatch(down)
	}
}

func (r *Receiver) dispatch(down *proto.GatestreamDown) {
	switch {
	case down.Allocate != nil:
		err := r.handler.Allocate(down.Allocate.Count, down.Allocate.Data)
		r.reply(down.Seq, err)

	case down.Free != nil:
		err := r.handler.Free(down.Free)
		r.reply(down.Seq, err)

	case down.Gate != nil:
		results, err := r.handler.Gate(*down.Gate)
		if err != nil {
			r.reply(down.Seq, err)
			return
		}
		if len(results) > 0 {
			r.send(&proto.GatestreamUp{Ack: down.Seq, Measured: results})
		}
		r.reply(down.Seq, nil)

	case down.Advance != nil:
		err := r.handler.Advance(*down.Advance)
		if err != nil {
			r.reply(down.Seq, err)
			return
		}
		r.send(&proto.GatestreamUp{Ack: down.Seq, Advanced: true})

	case down.Arb != nil:
		data, err := r.handler.Arb(*down.Arb)
		if err != nil {
			r.send(&proto.GatestreamUp{Ack: down.Seq, ArbFailure: err.Error()})
			return
		}
		r.send(&proto.GatestreamUp{Ack: down.Seq, ArbSuccess: &data})

	default:
		r.reply(down.Seq, dqerr.New(dqerr.Channel, "empty gatestream request"))
	}
}

func (r *Receiver) reply(seq types.SequenceNumber, err error) {
	if err != nil {
		r.log.Warningf("request %s failed: %s", seq, err)
		r.send(&proto.GatestreamUp{Ack: seq, Failure: err.Error()})
		return
	}
	r.send(&proto.GatestreamUp{Ack: seq, Success: true})
}

func (r *Receiver) send(msg *proto.GatestreamUp) {
	if err := r.ch.Send(msg); err != nil {
		r.log.Errorf("gatestream reply send failed: %s", err)
	}
}
