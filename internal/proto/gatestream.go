package proto

import (
	"github.com/dqcsim/dqcsim/internal/arb"
	"github.com/dqcsim/dqcsim/internal/types"
)

// GatestreamDown is a downstream gatestream message, carrying a sequence
// number per spec.md §4.E's pipelined-acknowledgement scheme. Grounded on
// dqcsim/src/common/protocol/gatestream_down.rs's PipelinedGatestreamDown
// variants.
type GatestreamDown struct {
	Seq types.SequenceNumber `cbor:"seq"`

	Allocate *AllocateRequest     `cbor:"allocate,omitempty"`
	Free     []types.QubitRef     `cbor:"free,omitempty"`
	Gate     *types.Gate          `cbor:"gate,omitempty"`
	Advance  *uint64              `cbor:"advance,omitempty"`
	Arb      *arb.Cmd             `cbor:"arb,omitempty"`
}

// AllocateRequest is GatestreamDown::Allocate's payload: how many qubits to
// allocate and any allocation hints (implementation-defined ArbData, per
// gatestream_down.rs).
type AllocateRequest struct {
	Count int      `cbor:"count"`
	Data  arb.Data `cbor:"data"`
}

// GatestreamUp is an upstream gatestream reply. Exactly one payload field is
// set; Ack always echoes the downstream seq it acknowledges (spec.md §4.E's
// "replies acknowledge the request they answer" rule). Grounded on
// dqcsim/src/common/protocol/gatestream_up.rs's PipelinedGatestreamUp.
type GatestreamUp struct {
	Ack types.SequenceNumber `cbor:"ack"`

	Success     bool                       `cbor:"success,omitempty"`
	Failure     string                     `cbor:"failure,omitempty"`
	Measured    []types.MeasurementResult  `cbor:"measured,omitempty"`
	Advanced    bool                       `cbor:"advanced,omitempty"`
	ArbSuccess  *arb.Data                  `cbor:"arb_success,omitempty"`
	ArbFailure  string                     `cbor:"arb_failure,omitempty"`
}

// IsMeasured reports whether this is a Measured variant (which, per spec.md
// §4.E's visibility rule, may be interleaved between the Success/Failure
// boundaries of the request that triggered it rather than appearing strictly
// after).
func (u *GatestreamUp) IsMeasured() bool { return u.Measured != nil }
