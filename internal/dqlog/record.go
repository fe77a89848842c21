package dqlog

import (
	"time"

	logging "gopkg.in/op/go-logging.v1"
)

// Level reuses gopkg.in/op/go-logging.v1's Level enum directly so records
// flow straight from a go-logging call site into the multiplexer without a
// translation layer.
type Level = logging.Level

const (
	Critical = logging.CRITICAL
	Error    = logging.ERROR
	Warning  = logging.WARNING
	Notice   = logging.NOTICE
	Info     = logging.INFO
	Debug    = logging.DEBUG
)

// ParseLevel parses a level name (critical, error, warning, notice, info,
// debug — case-insensitively, delegating to go-logging's own parser) for
// use by CLI flags such as --level/--dqcsim-level/--plugin-level.
func ParseLevel(s string) (Level, error) {
	return logging.LogLevel(s)
}

// Record is a single LogRecord as described in spec.md §4.B: logger name,
// timestamp, level, optional source location, process/thread id, payload.
type Record struct {
	Logger    string
	Timestamp time.Time
	Level     Level
	Module    string
	File      string
	Line      int
	Pid       int
	Tid       uint64
	Payload   string
}
