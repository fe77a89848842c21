// Package worker provides the cooperative goroutine lifecycle primitive used
// throughout DQCsim: a halt channel plus a WaitGroup, matching the
// Go()/HaltCh()/Halt() contract cborplugin.Client embeds from katzenpost's
// core/worker (that package is not itself part of the retrieval pack; this
// is a reconstruction from its call sites in server/cborplugin/client.go).
package worker

import "sync"

// Worker is embedded by types that own background goroutines which must be
// stopped cleanly on teardown.
type Worker struct {
	haltCh   chan struct{}
	haltOnce sync.Once
	wg       sync.WaitGroup
}

// Init must be called before Go/HaltCh/Halt are used. Safe to call multiple
// times; only the first has effect.
func (w *Worker) Init() {
	if w.haltCh == nil {
		w.haltCh = make(chan struct{})
	}
}

// Go spawns fn as a tracked goroutine.
func (w *Worker) Go(fn func()) {
	w.Init()
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		fn()
	}()
}

// HaltCh returns the channel that is closed when Halt is called.
func (w *Worker) HaltCh() chan struct{} {
	w.Init()
	return w.haltCh
}

// Halt signals all goroutines spawned via Go to stop, idempotently.
func (w *Worker) Halt() {
	w.Init()
	w.haltOnce.Do(func() { close(w.haltCh) })
}

// Wait blocks until every goroutine spawned via Go has returned.
func (w *Worker) Wait() {
	w.wg.Wait()
}
