package panorama

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// captureLogs installs a debug text logger for the test and returns its
// output buffer.
func captureLogs(t *testing.T) *syncBuffer {
	t.Helper()
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })
	buf := &syncBuffer{}
	SetLogger(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	return buf
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLoggerDefaultSilent(t *testing.T) {
	l := Logger()
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if l.Enabled(context.Background(), level) {
			t.Errorf("default logger enabled for %v", level)
		}
	}
	if err := (nopHandler{}).Handle(context.Background(), slog.Record{}); err != nil {
		t.Errorf("nopHandler.Handle() = %v", err)
	}
	if _, ok := (nopHandler{}).WithGroup("g").WithAttrs(nil).(nopHandler); !ok {
		t.Error("derived handlers should stay silent")
	}
}

func TestSetLoggerNilRestoresSilent(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	SetLogger(slog.Default())
	SetLogger(nil)
	if l := Logger(); l == nil || l.Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should install a disabled logger")
	}
}

func TestEngineLifecycleLogs(t *testing.T) {
	buf := captureLogs(t)

	e := newEngine(t)
	if err := e.InitDevice(newSurface(t, 16, 8)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"engine created", "device attached", "width=16", "height=8"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestOrientUnavailableLogsWarning(t *testing.T) {
	buf := captureLogs(t)

	e := newEngine(t)
	_ = e.SetOrientToDevice(true)
	if out := buf.String(); !strings.Contains(out, "level=WARN") || !strings.Contains(out, "orient to device unavailable") {
		t.Errorf("missing warning:\n%s", out)
	}
}

func TestLoggerConcurrentWithEngine(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	e := newEngine(t)
	s := newSurface(t, 8, 8)
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetLogger(slog.New(slog.DiscardHandler))
			SetLogger(nil)
		}()
		go func() {
			defer wg.Done()
			_ = e.InitDevice(s)
		}()
	}
	wg.Wait()
}

func BenchmarkLoggerDisabledLog(b *testing.B) {
	l := Logger()
	b.ReportAllocs()
	for b.Loop() {
		l.Debug("panorama: frame drawn", "seq", 1)
	}
}
