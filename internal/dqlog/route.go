package dqlog

import "github.com/dqcsim/dqcsim/internal/channel"

// RouteChannel adapts a Channel carrying Records (typically the IPC leg of
// a plugin's log connection back to the host) into a sender into b's
// multiplexer. Spec.md §4.A: "a receiver from any process can be adapted
// into a sender into the local log multiplexer." Runs until the channel
// reports the peer is gone, then returns.
func RouteChannel(b *Backend, ch channel.Channel) {
	for {
		msg, err := ch.Recv()
		if err != nil {
			return
		}
		rec, ok := msg.(*Record)
		if !ok {
			continue
		}
		b.Send(*rec)
	}
}
