package dqlog

import (
	"fmt"
	"os"
	"time"
)

// Logger is the per-source front-end handed to a plugin or the host,
// mirroring logBackend.GetLogger(name) in server/cborplugin/client.go. Every
// Logger obtained from the same Backend funnels into that Backend's single
// writer goroutine, which is what gives DQCsim's log multiplexer its
// lossless per-producer ordering guarantee.
type Logger struct {
	name    string
	backend *Backend
	pid     int
}

func (l *Logger) log(level Level, msg string) {
	if level > l.backend.MaxLevel() {
		return
	}
	l.backend.Send(Record{
		Logger:    l.name,
		Timestamp: time.Now(),
		Level:     level,
		Pid:       l.pid,
		Payload:   msg,
	})
}

func (l *Logger) Critical(args ...interface{}) { l.log(Critical, fmt.Sprint(args...)) }
func (l *Logger) Error(args ...interface{})    { l.log(Error, fmt.Sprint(args...)) }
func (l *Logger) Warning(args ...interface{})  { l.log(Warning, fmt.Sprint(args...)) }
func (l *Logger) Notice(args ...interface{})   { l.log(Notice, fmt.Sprint(args...)) }
func (l *Logger) Info(args ...interface{})     { l.log(Info, fmt.Sprint(args...)) }
func (l *Logger) Debug(args ...interface{})    { l.log(Debug, fmt.Sprint(args...)) }

func (l *Logger) Criticalf(format string, args ...interface{}) { l.log(Critical, fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...interface{})    { l.log(Error, fmt.Sprintf(format, args...)) }
func (l *Logger) Warningf(format string, args ...interface{})  { l.log(Warning, fmt.Sprintf(format, args...)) }
func (l *Logger) Noticef(format string, args ...interface{})   { l.log(Notice, fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...interface{})     { l.log(Info, fmt.Sprintf(format, args...)) }
func (l *Logger) Debugf(format string, args ...interface{})    { l.log(Debug, fmt.Sprintf(format, args...)) }

// Log sends a record at the given level, used by the plugin facade's
// log(level, msg) operation (§4.G).
func (l *Logger) Log(level Level, msg string) { l.log(level, msg) }

// lineWriter adapts an io.Writer interface onto a Logger, one Record per
// line, for proxying a spawned plugin's stderr the way
// server/cborplugin/client.go's logPluginStderr proxies a subprocess's
// stderr via io.Copy into a DEBUG log writer.
type lineWriter struct {
	logger *Logger
	level  Level
	buf    []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := indexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := string(w.buf[:i])
		w.buf = w.buf[i+1:]
		w.logger.log(w.level, line)
	}
	return len(p), nil
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

// StderrSink builds the default coloured-when-a-terminal stderr sink.
func StderrSink(level Level) *Sink {
	return &Sink{Name: "stderr", Level: level, Writer: os.Stderr, Colorize: isTerminal(os.Stderr.Fd())}
}
