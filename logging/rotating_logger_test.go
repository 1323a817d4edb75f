package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestGetWeekKey(t *testing.T) {
	tests := []struct {
		date     time.Time
		expected string
	}{
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "2026-W01"},
		{time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC), "2026-W42"},
		{time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "2026-W53"},
	}

	for _, tt := range tests {
		if got := getWeekKey(tt.date); got != tt.expected {
			t.Errorf("getWeekKey(%v) = %s, want %s", tt.date, got, tt.expected)
		}
	}
}

func TestRotatingLoggerWrite(t *testing.T) {
	dir := t.TempDir()
	rl := NewRotatingLogger(dir, 1)
	if err := rl.open(); err != nil {
		t.Fatalf("open() error = %v", err)
	}

	if _, err := rl.Write([]byte("lookup resolved\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := rl.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	path := filepath.Join(dir, "lookup-"+getWeekKey(time.Now())+".log")
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file %s: %v", path, err)
	}
	if !strings.Contains(string(content), "lookup resolved") {
		t.Errorf("log file does not contain the message: %q", content)
	}
}

func TestRotatingLoggerWithSizeLimit(t *testing.T) {
	dir := t.TempDir()
	rl := NewRotatingLoggerWithSizeLimit(dir, 1, 64)
	defer rl.Close()

	line := bytes.Repeat([]byte("x"), 40)
	for range 3 {
		if _, err := rl.Write(line); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	week := getWeekKey(time.Now())
	for _, name := range []string{
		"lookup-" + week + ".log",
		"lookup-" + week + "_01.log",
		"lookup-" + week + "_02.log",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
}

func TestRotatingLoggerResumesNumberedFile(t *testing.T) {
	dir := t.TempDir()
	week := getWeekKey(time.Now())
	base := filepath.Join(dir, "lookup-"+week+".log")
	numbered := filepath.Join(dir, "lookup-"+week+"_01.log")

	if err := os.WriteFile(base, bytes.Repeat([]byte("x"), 64), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(numbered, []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}

	rl := NewRotatingLoggerWithSizeLimit(dir, 1, 64)
	defer rl.Close()
	if _, err := rl.Write([]byte("z")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	content, _ := os.ReadFile(numbered)
	if string(content) != "yz" {
		t.Errorf("expected write to continue %s, got %q", filepath.Base(numbered), content)
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "lookup-2020-W01.log")
	recent := filepath.Join(dir, "lookup-"+getWeekKey(time.Now())+".log")
	unrelated := filepath.Join(dir, "other.log")

	for _, p := range []string{old, recent, unrelated} {
		if err := os.WriteFile(p, []byte("entry"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-30 * 24 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(unrelated, past, past); err != nil {
		t.Fatal(err)
	}

	rl := NewRotatingLogger(dir, 1)
	deleted, err := rl.cleanupOldLogs()
	if err != nil {
		t.Fatalf("cleanupOldLogs() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("old log file should have been removed")
	}
	if _, err := os.Stat(recent); err != nil {
		t.Error("recent log file should be kept")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Error("files without the lookup- prefix should be kept")
	}
}

func TestCloseWithoutCleanupGoroutine(t *testing.T) {
	rl := NewRotatingLogger(t.TempDir(), 1)

	start := time.Now()
	if err := rl.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Close should not wait for a cleanup goroutine that never started")
	}
}
