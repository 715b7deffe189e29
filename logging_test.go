package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]logLevel{
		"":        logLevelInfo,
		"debug":   logLevelDebug,
		"INFO":    logLevelInfo,
		" warn ":  logLevelWarn,
		"warning": logLevelWarn,
		"error":   logLevelError,
	}
	for in, want := range cases {
		got, err := parseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("parseLogLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := parseLogLevel("verbose"); err == nil {
		t.Fatalf("unknown level accepted")
	}
}

func TestFormatLogLine(t *testing.T) {
	evt := logEvent{
		at:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		level: logLevelWarn,
		msg:   "share rejected",
		attrs: []any{"job", "ab12", "reason", "Low difficulty share", "dangling"},
	}
	got := formatLogLine(evt)
	want := `2024-01-02T03:04:05Z [` + logLevelWarn.String() + `] share rejected job=ab12 reason="Low difficulty share" dangling` + "\n"
	if got != want {
		t.Fatalf("formatLogLine:\n got %q\nwant %q", got, want)
	}
}

func TestDailyRollingFileWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	w := newDailyRollingFileWriter(filepath.Join(dir, "miner.log"))
	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	closeWriter(w)

	name := "miner-" + time.Now().UTC().Format(time.DateOnly) + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	if strings.TrimSpace(string(data)) != "hello" {
		t.Fatalf("log contents %q", data)
	}
}

func TestDailyRollingFileWriterPrunesOldFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "miner-2000-01-01.log")
	if err := os.WriteFile(old, []byte("old\n"), 0o644); err != nil {
		t.Fatalf("seed old log: %v", err)
	}
	w := newDailyRollingFileWriter(filepath.Join(dir, "miner.log"))
	if _, err := w.Write([]byte("new\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	closeWriter(w)
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("old log not pruned: %v", err)
	}
}
