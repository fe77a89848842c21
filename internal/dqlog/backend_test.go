package dqlog

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackendOrdersPerProducer(t *testing.T) {
	var buf bytes.Buffer
	b := NewBackend(&Sink{Name: "buf", Level: Debug, Writer: &buf})
	logger := b.GetLogger("test")
	for i := 0; i < 5; i++ {
		logger.Infof("line %d", i)
	}
	b.Close()

	out := buf.String()
	lastIdx := -1
	for i := 0; i < 5; i++ {
		needle := fmt.Sprintf("line %d", i)
		idx := strings.Index(out, needle)
		require.Greater(t, idx, lastIdx)
		lastIdx = idx
	}
}

func TestSinkLevelFiltersIndependently(t *testing.T) {
	var quiet, verbose bytes.Buffer
	b := NewBackend(
		&Sink{Name: "quiet", Level: Error, Writer: &quiet},
		&Sink{Name: "verbose", Level: Debug, Writer: &verbose},
	)
	logger := b.GetLogger("test")
	logger.Debugf("debug detail")
	b.Close()

	require.Empty(t, quiet.String())
	require.Contains(t, verbose.String(), "debug detail")
}

func TestLineWriterSplitsOnNewline(t *testing.T) {
	var buf bytes.Buffer
	b := NewBackend(&Sink{Name: "buf", Level: Debug, Writer: &buf})
	w := b.GetLogWriter("child-stderr", Debug)
	w.Write([]byte("first\nsecond\n"))
	b.Close()

	require.Contains(t, buf.String(), "first")
	require.Contains(t, buf.String(), "second")
}

func TestRecordTimestampIsRecent(t *testing.T) {
	var buf bytes.Buffer
	b := NewBackend(&Sink{Name: "buf", Level: Debug, Writer: &buf})
	var got Record
	b.AddSink(&Sink{Name: "cb", Level: Debug, Callback: func(r Record) { got = r }})
	before := time.Now()
	b.GetLogger("x").Info("hi")
	b.Close()
	require.False(t, got.Timestamp.Before(before.Add(-time.Second)))
}
