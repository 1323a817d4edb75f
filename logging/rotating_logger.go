package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	logFilePrefix = "lookup-"
	logFileSuffix = ".log"

	defaultMaxFileSize = 100 * 1024 * 1024
	cleanupInterval    = 24 * time.Hour
)

var numberedFileRe = regexp.MustCompile(`^lookup-\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingLogger is an io.Writer over weekly log files. A week that outgrows
// maxFileSize continues in numbered siblings (lookup-2026-W42_01.log, ...).
type RotatingLogger struct {
	logDir      string
	retention   time.Duration
	maxFileSize int64

	mu          sync.Mutex
	currentFile *os.File
	currentWeek string
	currentSize atomic.Int64

	ctx         context.Context
	cancel      context.CancelFunc
	cleanupDone chan struct{}
	cleanupRuns atomic.Bool
}

// NewRotatingLogger creates a rotating logger with the default 100MB size limit
func NewRotatingLogger(logDir string, retentionWeeks int) *RotatingLogger {
	return NewRotatingLoggerWithSizeLimit(logDir, retentionWeeks, defaultMaxFileSize)
}

// NewRotatingLoggerWithSizeLimit creates a rotating logger. A maxFileSize of 0
// disables size based rotation.
func NewRotatingLoggerWithSizeLimit(logDir string, retentionWeeks int, maxFileSize int64) *RotatingLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		ctx:         ctx,
		cancel:      cancel,
		cleanupDone: make(chan struct{}),
	}
}

// getWeekKey returns the ISO week key, e.g. 2026-W42
func getWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// open prepares the file for the current week. Used once at startup so that
// permission problems surface before the first write.
func (rl *RotatingLogger) open() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.rotate(getWeekKey(time.Now()), false)
}

// rotate switches to the right file for week. Caller must hold mu.
func (rl *RotatingLogger) rotate(week string, full bool) error {
	if rl.currentFile != nil {
		if err := rl.currentFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file during rotation: %v\n", err)
		}
		rl.currentFile = nil
	}

	name := rl.pickFileName(week, full)
	path := filepath.Join(rl.logDir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	rl.currentFile = file
	rl.currentWeek = week
	rl.currentSize.Store(0)
	if info, statErr := file.Stat(); statErr == nil {
		rl.currentSize.Store(info.Size())
	}
	return nil
}

// pickFileName returns the file to append to for week. When full is set the
// current file hit the size limit and a new numbered file is started.
func (rl *RotatingLogger) pickFileName(week string, full bool) string {
	base := logFilePrefix + week + logFileSuffix
	if rl.maxFileSize <= 0 {
		return base
	}

	highest, lastName, lastSize := rl.highestNumberedFile(week)
	if !full {
		if highest == 0 {
			info, err := os.Stat(filepath.Join(rl.logDir, base))
			if err != nil || info.Size() < rl.maxFileSize {
				return base
			}
		} else if lastSize < rl.maxFileSize {
			return lastName
		}
	}
	return fmt.Sprintf("%s%s_%02d%s", logFilePrefix, week, highest+1, logFileSuffix)
}

// highestNumberedFile returns the highest sequence number used in week along
// with that file's name and size.
func (rl *RotatingLogger) highestNumberedFile(week string) (int, string, int64) {
	matches, _ := filepath.Glob(filepath.Join(rl.logDir, logFilePrefix+week+"_??"+logFileSuffix))

	highest := 0
	var name string
	var size int64
	for _, match := range matches {
		m := numberedFileRe.FindStringSubmatch(filepath.Base(match))
		if len(m) < 2 {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		if num <= highest {
			continue
		}
		highest = num
		name = filepath.Base(match)
		size = 0
		if info, err := os.Stat(match); err == nil {
			size = info.Size()
		}
	}
	return highest, name, size
}

// Write appends p to the current file, rotating on week change or when p
// would push the file past the size limit.
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := getWeekKey(time.Now())
	switch {
	case rl.currentFile == nil || rl.currentWeek != week:
		if err := rl.rotate(week, false); err != nil {
			return 0, err
		}
	case rl.maxFileSize > 0 && rl.currentSize.Load()+int64(len(p)) > rl.maxFileSize && rl.currentSize.Load() > 0:
		if err := rl.rotate(week, true); err != nil {
			return 0, err
		}
	}

	n, err := rl.currentFile.Write(p)
	rl.currentSize.Add(int64(n))
	return n, err
}

// cleanupOldLogs removes log files whose last write is older than the retention period
func (rl *RotatingLogger) cleanupOldLogs() (int, error) {
	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().Add(-rl.retention)
	deleted := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, logFileSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(rl.logDir, name)); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

// startCleanup runs cleanupOldLogs once a day until Close is called
func (rl *RotatingLogger) startCleanup() {
	if !rl.cleanupRuns.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(rl.cleanupDone)
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-rl.ctx.Done():
				return
			case <-ticker.C:
				// Console only, the file handler may be the one failing.
				if n, err := rl.cleanupOldLogs(); err != nil {
					fmt.Fprintf(os.Stderr, "failed to cleanup old logs: %v\n", err)
				} else if n > 0 {
					fmt.Printf("Cleaned up %d old log files\n", n)
				}
			}
		}
	}()
}

// Close stops the cleanup goroutine and closes the current file
func (rl *RotatingLogger) Close() error {
	rl.cancel()

	if rl.cleanupRuns.Load() {
		select {
		case <-rl.cleanupDone:
		case <-time.After(2 * time.Second):
		}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.currentFile == nil {
		return nil
	}
	err := rl.currentFile.Close()
	rl.currentFile = nil
	return err
}
