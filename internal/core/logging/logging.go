package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var (
	root     *slog.Logger
	levelVar = new(slog.LevelVar)
	logFile  *os.File
	mu       sync.Mutex
	initDone bool
)

// Init opens the log file and installs the root logger. Safe to call
// once per process; later calls are no-ops.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if initDone {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log directory %s: %w", dir, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}
	logFile = f
	root = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: levelVar}))
	initDone = true
	return nil
}

// SetDebug enables or disables debug level logging
func SetDebug(enabled bool) {
	if enabled {
		levelVar.Set(slog.LevelDebug)
	} else {
		levelVar.Set(slog.LevelInfo)
	}
}

// Get returns the root logger. Before Init it returns a discard logger
// so library code can log unconditionally without dirtying the terminal.
func Get() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if root == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return root
}

// WithComponent returns a logger with the component name attached.
//
// Example:
//
//	log := logging.WithComponent("store")
//	log.Info("session saved", "name", name)
func WithComponent(component string) *slog.Logger {
	return Get().With("component", component)
}

// Close closes the log file
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	root = nil
	initDone = false
}
