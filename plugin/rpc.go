package plugin

import (
	"time"

	"github.com/dqcsim/dqcsim/dqerr"
	"github.com/dqcsim/dqcsim/internal/arb"
	"github.com/dqcsim/dqcsim/internal/proto"
)

// call sends req on the control channel and waits for the single reply it
// provokes, mirroring the original's synchronous send-then-recv RPC pairs
// (simulation.rs's commented-out Plugin::init/send/recv sketch).
func (h *Handle) call(req proto.SimulatorToPlugin) (*proto.PluginToSimulator, error) {
	if err := h.ctrl.Send(&req); err != nil {
		return nil, dqerr.Wrap(dqerr.Channel, err, "sending request to plugin %s", h.Name)
	}
	m, err := h.ctrl.Recv()
	if err != nil {
		return nil, dqerr.Wrap(dqerr.Channel, err, "receiving reply from plugin %s", h.Name)
	}
	resp, ok := m.(*proto.PluginToSimulator)
	if !ok {
		return nil, dqerr.New(dqerr.Channel, "unexpected control reply type %T from plugin %s", m, h.Name)
	}
	return resp, nil
}

// Initialize sends the Initialize request (spec.md §4.D's initialize
// phase, downstream-first).
func (h *Handle) Initialize(req proto.InitializeRequest) (proto.InitializedResponse, error) {
	resp, err := h.call(proto.SimulatorToPlugin{Initialize: &req})
	if err != nil {
		return proto.InitializedResponse{}, err
	}
	if resp.Failure != "" {
		return proto.InitializedResponse{}, dqerr.WrapPlugin(h.Name, resp.Failure)
	}
	if resp.Initialized == nil {
		return proto.InitializedResponse{}, dqerr.New(dqerr.Channel, "plugin %s did not reply Initialized", h.Name)
	}
	h.Metadata = resp.Initialized.Metadata
	return *resp.Initialized, nil
}

// AcceptUpstream sends the AcceptUpstream request (spec.md §4.D's
// accept-upstream phase, back-to-front).
func (h *Handle) AcceptUpstream() error {
	resp, err := h.call(proto.SimulatorToPlugin{AcceptUpstream: true})
	if err != nil {
		return err
	}
	if resp.Failure != "" {
		return dqerr.WrapPlugin(h.Name, resp.Failure)
	}
	return nil
}

// UserInitialize sends the UserInitialize request (spec.md §4.D's
// user-initialize phase, front-to-back).
func (h *Handle) UserInitialize(cmds []arb.Cmd) error {
	resp, err := h.call(proto.SimulatorToPlugin{UserInitialize: &proto.UserInitializeRequest{InitCmds: cmds}})
	if err != nil {
		return err
	}
	if resp.Failure != "" {
		return dqerr.WrapPlugin(h.Name, resp.Failure)
	}
	return nil
}

// RunRequest implements hostcall.Transport for a frontend Handle.
func (h *Handle) RunRequest(req proto.RunRequest) (proto.RunResponse, error) {
	resp, err := h.call(proto.SimulatorToPlugin{RunRequest: &req})
	if err != nil {
		return proto.RunResponse{}, err
	}
	if resp.Failure != "" {
		return proto.RunResponse{}, dqerr.WrapPlugin(h.Name, resp.Failure)
	}
	if resp.RunResponse == nil {
		return proto.RunResponse{}, dqerr.New(dqerr.Channel, "plugin %s did not reply RunResponse", h.Name)
	}
	return *resp.RunResponse, nil
}

// Arb sends a host ArbCmd directly to this plugin (spec.md §6's
// name/index-routed host arb).
func (h *Handle) Arb(cmd arb.Cmd) (arb.Data, error) {
	resp, err := h.call(proto.SimulatorToPlugin{ArbRequest: &cmd})
	if err != nil {
		return arb.Data{}, err
	}
	if resp.Failure != "" {
		return arb.Data{}, dqerr.WrapPlugin(h.Name, resp.Failure)
	}
	if resp.ArbResponse == nil {
		return arb.Data{}, dqerr.New(dqerr.Channel, "plugin %s did not reply ArbResponse", h.Name)
	}
	return *resp.ArbResponse, nil
}

// Abort sends an Abort request and waits up to the plugin's configured
// shutdown timeout for it to exit gracefully on its own — either by acking
// the request on the control channel or by its process exiting — before
// returning control to Drop, which force-kills anything still running
// (spec.md §4.C's drop row, §5's Cancellation). Errors sending the request
// are logged but not returned, since an unresponsive plugin is exactly the
// case Abort exists to recover from.
func (h *Handle) Abort() {
	if err := h.ctrl.Send(&proto.SimulatorToPlugin{Abort: true}); err != nil {
		h.log.Warningf("sending abort to plugin %s: %s", h.Name, err)
		return
	}

	timeout := h.shutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	acked := make(chan struct{}, 1)
	go func() {
		if _, err := h.ctrl.Recv(); err == nil {
			acked <- struct{}{}
		}
	}()
	select {
	case <-acked:
	case <-h.exited:
	case <-time.After(timeout):
		h.log.Warningf("plugin %s did not acknowledge abort within %s", h.Name, timeout)
	}
}

// Drop closes the control channel and any gatestream edge, then halts the
// supervising worker, which force-kills and joins a spawned plugin's
// process if Abort's grace period wasn't enough.
func (h *Handle) Drop() error {
	var err error
	if h.Gates != nil {
		if e := h.Gates.Close(); e != nil {
			err = e
		}
	}
	if e := h.ctrl.Close(); e != nil {
		err = e
	}
	h.Halt()
	h.Wait()
	return err
}
