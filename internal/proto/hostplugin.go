// Package proto defines the wire message sets exchanged across the two RPC
// surfaces of spec.md §6: the host<->plugin control RPC
// (SimulatorToPlugin/PluginToSimulator) and the plugin<->plugin gatestream
// protocol (GatestreamDown/GatestreamUp). Grounded directly on the original
// source's dqcsim/src/common/protocol/{simulator_to_plugin,
// plugin_to_simulator,gatestream_up}.rs for the message variants, and on the
// teacher's tagged-struct-of-optional-fields idiom
// (client/cborplugin/events.go's ControlCommand/Event) for representing a
// Rust enum as a Go wire type without reflection-heavy sum-type machinery.
package proto

import (
	"github.com/dqcsim/dqcsim/internal/arb"
	"github.com/dqcsim/dqcsim/internal/types"
)

// SimulatorToPlugin is a downstream control request, host to plugin. Exactly
// one field is set, mirroring Rust's SimulatorToPlugin enum the way
// events.go's ControlCommand mirrors katzenpost's client control commands.
type SimulatorToPlugin struct {
	Initialize     *InitializeRequest `cbor:"initialize,omitempty"`
	AcceptUpstream bool               `cbor:"accept_upstream,omitempty"`
	UserInitialize *UserInitializeRequest `cbor:"user_initialize,omitempty"`
	RunRequest     *RunRequest        `cbor:"run_request,omitempty"`
	ArbRequest     *arb.Cmd           `cbor:"arb_request,omitempty"`
	Abort          bool               `cbor:"abort,omitempty"`
}

// InitializeRequest is SimulatorToPlugin::Initialize's payload.
type InitializeRequest struct {
	// Downstream is the optional URI of the downstream peer to connect to;
	// unset for backends.
	Downstream string `cbor:"downstream,omitempty"`
	PluginType types.PluginType `cbor:"plugin_type"`
	Seed       uint64           `cbor:"seed"`
	LogLevel   int              `cbor:"log_level"`
}

// UserInitializeRequest is SimulatorToPlugin::UserInitialize's payload: the
// ArbCmds to feed to the plugin's user init() callback.
type UserInitializeRequest struct {
	InitCmds []arb.Cmd `cbor:"init_cmds"`
}

// RunRequest is SimulatorToPlugin::RunRequest's payload (frontend only).
type RunRequest struct {
	Start    *arb.Data  `cbor:"start,omitempty"`
	Messages []arb.Data `cbor:"messages"`
}

// PluginToSimulator is an upstream control response, plugin to host. Exactly
// one field is set.
type PluginToSimulator struct {
	Success     bool                  `cbor:"success,omitempty"`
	Failure     string                `cbor:"failure,omitempty"`
	Initialized *InitializedResponse  `cbor:"initialized,omitempty"`
	RunResponse *RunResponse          `cbor:"run_response,omitempty"`
	ArbResponse *arb.Data             `cbor:"arb_response,omitempty"`
}

// InitializedResponse is PluginToSimulator::Initialized's payload.
type InitializedResponse struct {
	// Upstream is the optional URI the upstream peer should connect to;
	// unset for frontends.
	Upstream string        `cbor:"upstream,omitempty"`
	Metadata types.Metadata `cbor:"metadata"`
}

// RunResponse is PluginToSimulator::RunResponse's payload.
type RunResponse struct {
	Complete *arb.Data  `cbor:"complete,omitempty"`
	Messages []arb.Data `cbor:"messages"`
}

// IsFailure reports whether this response is a Failure variant, and returns
// its message.
func (p *PluginToSimulator) IsFailure() (string, bool) {
	return p.Failure, p.Failure != "" || (!p.Success && p.Initialized == nil && p.RunResponse == nil && p.ArbResponse == nil)
}
