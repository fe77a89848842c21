package plugin

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dqcsim/dqcsim/internal/channel"
)

// TestReaperForceKillsWhenGraceExpires exercises the bounded-then-forced
// shutdown contract directly against a real subprocess: if nothing closes
// h.exited before the halt signal finds the process still running, reaper
// must kill it and join rather than hang forever.
func TestReaperForceKillsWhenGraceExpires(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())

	h := &Handle{Name: "slow", log: testLogger(), cmd: cmd, shutdownTimeout: 10 * time.Millisecond, exited: make(chan struct{})}
	h.Init()
	h.Go(func() { h.wait() })
	h.Go(func() { h.reaper() })

	h.Halt()
	h.Wait()

	select {
	case <-h.exited:
	default:
		t.Fatal("expected process to have exited after reaper ran")
	}
	require.False(t, cmd.ProcessState.Success(), "killed process should not report success")
}

// TestAbortReturnsWhenProcessExitsWithoutAck covers the other half: a
// process that exits on its own after Abort (without ever replying on the
// control channel) must not make Abort block for the full shutdown timeout.
func TestAbortReturnsWhenProcessExitsWithoutAck(t *testing.T) {
	a, b := channel.NewLocalPair()
	defer b.Close()

	cmd := exec.Command("sh", "-c", "sleep 0.05")
	require.NoError(t, cmd.Start())

	h := &Handle{Name: "quick", log: testLogger(), ctrl: a, cmd: cmd, shutdownTimeout: 2 * time.Second, exited: make(chan struct{})}
	h.Init()
	h.Go(func() { h.wait() })

	start := time.Now()
	h.Abort()
	require.Less(t, time.Since(start), 1*time.Second, "Abort should return once the process exits, not wait out the full timeout")

	h.Wait()
}
