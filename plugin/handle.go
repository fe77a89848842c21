// Package plugin implements the plugin handle (spec.md §4.C), the
// simulator-side proxy for one running plugin process or thread, and the
// plugin-side state facade (spec.md §4.G) that a plugin implementation
// calls into.
//
// The process spawn/bootstrap/reap lifecycle is grounded directly on
// server/cborplugin/client.go's Client: exec.Command with piped stdout/
// stderr, a stdout-announced rendezvous path, a worker goroutine that reaps
// the process on halt, and stderr proxied line-by-line into the log
// backend. The graceful-then-forced shutdown sequencing itself is grounded
// on original_source's host/plugin/process.rs Drop impl: request Abort,
// give the process up to shutdown_timeout to exit on its own, then kill.
package plugin

import (
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/dqcsim/dqcsim/dqerr"
	"github.com/dqcsim/dqcsim/internal/channel"
	"github.com/dqcsim/dqcsim/internal/dqlog"
	"github.com/dqcsim/dqcsim/internal/gatestream"
	"github.com/dqcsim/dqcsim/internal/proto"
	"github.com/dqcsim/dqcsim/internal/types"
	"github.com/dqcsim/dqcsim/internal/worker"
)

// Handle is the simulator-side proxy for one plugin: the control RPC
// channel used for Initialize/AcceptUpstream/UserInitialize/RunRequest/
// Arb/Abort, plus (once initialized) the gatestream Edge used to send it
// gates.
type Handle struct {
	worker.Worker

	Name       string
	PluginType types.PluginType
	log        *dqlog.Logger

	cmd             *exec.Cmd
	ctrl            channel.Channel
	shutdownTimeout time.Duration
	exited          chan struct{}

	Metadata types.Metadata
	Gates    *gatestream.Edge
}

// defaultShutdownTimeout is used by NewHandle, whose callers (thread-flavor
// plugins, tests) don't go through SpawnProcess's configured timeout.
const defaultShutdownTimeout = 5 * time.Second

// NewHandle wraps an already-connected control channel, for thread-flavor
// plugins (a goroutine instead of a subprocess) and for tests. ctrl must
// yield *proto.PluginToSimulator from Recv.
func NewHandle(name string, pluginType types.PluginType, ctrl channel.Channel, log *dqlog.Logger) *Handle {
	h := &Handle{Name: name, PluginType: pluginType, ctrl: ctrl, log: log, shutdownTimeout: defaultShutdownTimeout}
	h.Init()
	return h
}

// SpawnProcess launches executable as a subprocess plugin, bootstrapping
// the control channel via the stdout-announced rendezvous convention
// (mirroring server/cborplugin/client.go's launch): the plugin writes a
// single line naming its listen socket URI to stdout before doing anything
// else, and this dials it. shutdownTimeout bounds how long Abort waits for
// the process to exit gracefully before Drop force-kills it.
func SpawnProcess(name string, pluginType types.PluginType, executable string, args, env []string, workdir string, logBackend *dqlog.Backend, timeout, shutdownTimeout time.Duration) (*Handle, error) {
	log := logBackend.GetLogger(name)
	cmd := exec.Command(executable, args...)
	if workdir != "" {
		cmd.Dir = workdir
	}
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, dqerr.Wrap(dqerr.IO, err, "piping stdout for plugin %s", name)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, dqerr.Wrap(dqerr.IO, err, "piping stderr for plugin %s", name)
	}

	if err := cmd.Start(); err != nil {
		return nil, dqerr.Wrap(dqerr.IO, err, "starting plugin %s", name)
	}

	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	h := &Handle{Name: name, PluginType: pluginType, log: log, cmd: cmd, shutdownTimeout: shutdownTimeout, exited: make(chan struct{})}
	h.Init()
	h.Go(func() { h.wait() })
	h.Go(func() { h.reaper() })
	h.Go(func() {
		logWriter := logBackend.GetLogWriter(name, dqlog.Debug)
		io.Copy(logWriter, stderr)
	})

	uri, err := channel.ReadAnnouncedRendezvous(stdout, timeout)
	if err != nil {
		h.Halt()
		return nil, err
	}
	conn, err := channel.Dial(uri)
	if err != nil {
		h.Halt()
		return nil, err
	}
	encMode, err := proto.NewEncMode()
	if err != nil {
		return nil, err
	}
	decMode, err := proto.NewDecMode()
	if err != nil {
		return nil, err
	}
	h.ctrl = channel.NewIPCChannel(conn, func() interface{} { return &proto.PluginToSimulator{} }, encMode, decMode)
	return h, nil
}

// wait joins the subprocess once, in its own goroutine, and closes exited
// so Abort and reaper can both observe completion without racing cmd.Wait.
func (h *Handle) wait() {
	if err := h.cmd.Wait(); err != nil {
		h.log.Errorf("plugin %s exited with error: %s", h.Name, err)
	}
	close(h.exited)
}

// reaper runs after Drop signals halt, which only happens once Abort has
// already given the process up to shutdownTimeout to exit on its own
// (spec.md §4.C's drop row, §5's Cancellation): if it's still running at
// that point, force-kill it, then join so Drop can return once the process
// is actually gone.
func (h *Handle) reaper() {
	<-h.HaltCh()
	if h.cmd == nil || h.cmd.Process == nil {
		return
	}
	select {
	case <-h.exited:
		return
	default:
	}
	h.log.Warningf("plugin %s did not exit gracefully, killing", h.Name)
	if err := h.cmd.Process.Kill(); err != nil {
		h.log.Errorf("killing plugin %s: %s", h.Name, err)
	}
	<-h.exited
}

