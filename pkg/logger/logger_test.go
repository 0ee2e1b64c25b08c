package logger

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
)

func TestStandardLogger_Prefixes(t *testing.T) {
	tests := []struct {
		name   string
		call   func(Logger)
		prefix string
		want   string
	}{
		{"info", func(l Logger) { l.Info("window %d", 12) }, "[INFO]", "window 12"},
		{"warning", func(l Logger) { l.Warning("retry %s", "2/5") }, "[WARNING]", "retry 2/5"},
		{"error", func(l Logger) { l.Error("fetch: %v", "refused") }, "[ERROR]", "fetch: refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.call(NewStandardLogger(log.New(buf, "", 0)))
			out := buf.String()
			if !strings.Contains(out, tt.prefix) {
				t.Errorf("expected %s prefix, got: %s", tt.prefix, out)
			}
			if !strings.Contains(out, tt.want) {
				t.Errorf("expected %q in output, got: %s", tt.want, out)
			}
		})
	}
}

func TestStandardLogger_CloseRunsCloserOnce(t *testing.T) {
	calls := 0
	l := NewFileLogger(log.New(&bytes.Buffer{}, "", 0), func() error {
		calls++
		return nil
	})
	if err := l.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("unexpected error on second close: %v", err)
	}
	if calls != 1 {
		t.Errorf("closer called %d times, want 1", calls)
	}
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(*NopLogger); !ok {
		t.Error("OrNop(nil) should return a NopLogger")
	}
	m := NewMockLogger()
	if OrNop(m) != Logger(m) {
		t.Error("OrNop should return the given logger unchanged")
	}
}

func TestMockLogger_RecordsCalls(t *testing.T) {
	l := NewMockLogger()
	l.Info("info %d", 1)
	l.Info("info %d", 2)
	l.Warning("warn %s", "test")
	l.Error("err %v", "fail")

	if got := l.InfoCalls(); len(got) != 2 || got[0] != "info 1" || got[1] != "info 2" {
		t.Errorf("unexpected info calls: %v", got)
	}
	if got := l.WarningCalls(); len(got) != 1 || got[0] != "warn test" {
		t.Errorf("unexpected warning calls: %v", got)
	}
	if got := l.ErrorCalls(); len(got) != 1 || got[0] != "err fail" {
		t.Errorf("unexpected error calls: %v", got)
	}
	if l.Closed() {
		t.Error("Closed should be false before Close")
	}
	_ = l.Close()
	if !l.Closed() {
		t.Error("Closed should be true after Close")
	}
}

func TestMultiLogger_BroadcastsToAll(t *testing.T) {
	mock1 := NewMockLogger()
	mock2 := NewMockLogger()
	multi := NewMultiLogger(mock1, mock2)

	multi.Info("info msg")
	multi.Warning("warn msg")
	multi.Error("error msg")

	for i, m := range []*MockLogger{mock1, mock2} {
		if got := m.InfoCalls(); len(got) != 1 || got[0] != "info msg" {
			t.Errorf("mock%d info: %v", i+1, got)
		}
		if got := m.WarningCalls(); len(got) != 1 || got[0] != "warn msg" {
			t.Errorf("mock%d warning: %v", i+1, got)
		}
		if got := m.ErrorCalls(); len(got) != 1 || got[0] != "error msg" {
			t.Errorf("mock%d error: %v", i+1, got)
		}
	}
}

type failingCloseLogger struct {
	NopLogger
	closeErr error
}

func (f *failingCloseLogger) Close() error {
	return f.closeErr
}

func TestMultiLogger_Close_ReturnsFirstError(t *testing.T) {
	err1 := errors.New("logger1 failed to close")
	err2 := errors.New("logger2 failed to close")
	mock := NewMockLogger()

	multi := NewMultiLogger(&failingCloseLogger{closeErr: err1}, mock, &failingCloseLogger{closeErr: err2})

	if err := multi.Close(); !errors.Is(err, err1) {
		t.Errorf("expected first error %v, got %v", err1, err)
	}
	if !mock.Closed() {
		t.Error("expected mock logger to be closed even after first error")
	}
}

func TestMultiLogger_EmptyLoggers(t *testing.T) {
	multi := NewMultiLogger()
	multi.Info("test")
	multi.Warning("test")
	multi.Error("test")
	if err := multi.Close(); err != nil {
		t.Errorf("expected nil error, got: %v", err)
	}
}
