package channel

import (
	"sync"

	channels "gopkg.in/eapache/channels.v1"
)

// localEndpoint is the process-local Channel flavour: two threads in the
// same address space, connected by a pair of unbounded queues so Send never
// blocks on capacity (spec.md §4.A). Built on the
// gopkg.in/eapache/channels.v1 dependency (InfiniteChannel) rather than a
// hand-rolled unbounded queue.
type localEndpoint struct {
	out *channels.InfiniteChannel
	in  *channels.InfiniteChannel

	closeOnce sync.Once
}

// NewLocalPair constructs two connected in-process endpoints: messages sent
// on a arrive via Recv on b, and vice versa.
func NewLocalPair() (a, b Channel) {
	c1 := channels.NewInfiniteChannel()
	c2 := channels.NewInfiniteChannel()
	ea := &localEndpoint{out: c1, in: c2}
	eb := &localEndpoint{out: c2, in: c1}
	return ea, eb
}

func (e *localEndpoint) Send(msg interface{}) error {
	e.out.In() <- msg
	return nil
}

func (e *localEndpoint) Recv() (interface{}, error) {
	v, ok := <-e.in.Out()
	if !ok {
		return nil, ErrPeerGone
	}
	return v, nil
}

func (e *localEndpoint) Close() error {
	e.closeOnce.Do(func() {
		e.out.Close()
	})
	return nil
}
