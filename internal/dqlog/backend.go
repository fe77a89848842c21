package dqlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	channels "gopkg.in/eapache/channels.v1"
)

// Sink is one destination for log records: stderr, a tee file, or a
// user-supplied callback. Each sink has its own verbosity filter.
type Sink struct {
	Name     string
	Level    Level
	Writer   io.Writer
	Colorize bool
	Callback func(Record)
}

// Backend is the log multiplexer described in spec.md §4.B: a single
// background goroutine owns the writing side of every sink and drains an
// unbounded channel of Records fed by any number of producers across
// processes. Grounded on server/cborplugin/client.go's logBackend pattern;
// the unbounded unbuffered-send queue reuses the same
// gopkg.in/eapache/channels.v1 dependency instead of a hand-rolled one.
type Backend struct {
	mu    sync.RWMutex
	sinks []*Sink
	queue *channels.InfiniteChannel
	done  chan struct{}

	maxLevel Level
}

// NewBackend constructs a Backend and starts its writer goroutine. Call
// Close to flush pending records and stop the goroutine.
func NewBackend(sinks ...*Sink) *Backend {
	b := &Backend{
		sinks: sinks,
		queue: channels.NewInfiniteChannel(),
		done:  make(chan struct{}),
	}
	b.recomputeMaxLevel()
	go b.run()
	return b
}

func (b *Backend) recomputeMaxLevel() {
	max := Critical
	for _, s := range b.sinks {
		if s.Level > max {
			max = s.Level
		}
	}
	b.maxLevel = max
}

// MaxLevel returns the most verbose level requested by any sink, so
// producers can cheaply drop records before sending them (source-side
// filtering, §4.B).
func (b *Backend) MaxLevel() Level {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.maxLevel
}

// Send enqueues a record for writing. Never blocks on capacity.
func (b *Backend) Send(r Record) {
	b.queue.In() <- r
}

func (b *Backend) run() {
	defer close(b.done)
	for v := range b.queue.Out() {
		r := v.(Record)
		b.mu.RLock()
		sinks := append([]*Sink(nil), b.sinks...)
		b.mu.RUnlock()
		for _, s := range sinks {
			if r.Level > s.Level {
				continue
			}
			if s.Callback != nil {
				s.Callback(r)
				continue
			}
			writeRecord(s, r)
		}
	}
}

func writeRecord(s *Sink, r Record) {
	loc := ""
	if r.File != "" {
		loc = fmt.Sprintf(" %s:%d", r.File, r.Line)
	}
	line := fmt.Sprintf("%s [%5s] %s%s (pid %d) %s\n",
		r.Timestamp.Format(time.RFC3339Nano), r.Level, r.Logger, loc, r.Pid, r.Payload)
	if s.Colorize {
		line = colorize(r.Level, line)
	}
	io.WriteString(s.Writer, line)
}

// Close drains remaining records and stops the writer goroutine. Records
// sent before Close is called are guaranteed to be written first.
func (b *Backend) Close() {
	b.queue.Close()
	<-b.done
}

// AddSink registers an additional sink (e.g. a user callback installed
// after construction).
func (b *Backend) AddSink(s *Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
	b.recomputeMaxLevel()
}

// GetLogger returns a named front-end for producers, mirroring the
// logBackend.GetLogger(name) calls in server/cborplugin/client.go.
func (b *Backend) GetLogger(name string) *Logger {
	return &Logger{name: name, backend: b, pid: os.Getpid()}
}

// GetLogWriter returns an io.Writer that turns each line written to it into
// a Record at the given level, for proxying a plugin subprocess's stderr
// into the log the way server/cborplugin/client.go's logPluginStderr does.
func (b *Backend) GetLogWriter(loggerName string, level Level) io.Writer {
	return &lineWriter{logger: b.GetLogger(loggerName), level: level}
}

func colorize(l Level, s string) string {
	var code string
	switch l {
	case Critical, Error:
		code = "\033[1;31m"
	case Warning:
		code = "\033[1;33m"
	case Notice:
		code = "\033[1;36m"
	case Info:
		code = "\033[0;37m"
	default:
		code = "\033[2;37m"
	}
	return code + s + "\033[0m"
}
