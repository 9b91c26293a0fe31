// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// NewTestLogger returns a debug-level logger that writes through t.Log, so
// session and sandbox logs show up next to the failing test or under -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(tbWriter{t: t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// LogCapture is a logger whose output is kept for assertions as well as
// written to the test log.
type LogCapture struct {
	Logger *slog.Logger

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLogCapture returns a debug-level LogCapture for t.
func NewLogCapture(t testing.TB) *LogCapture {
	t.Helper()
	c := &LogCapture{}
	c.Logger = slog.New(slog.NewTextHandler(tbWriter{t: t, tee: c}, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return c
}

// String returns everything logged so far.
func (c *LogCapture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Reset forgets the captured output.
func (c *LogCapture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Reset()
}

type tbWriter struct {
	t   testing.TB
	tee *LogCapture
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	if w.tee != nil {
		w.tee.mu.Lock()
		w.tee.buf.Write(p)
		w.tee.mu.Unlock()
	}
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
