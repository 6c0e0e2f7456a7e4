// Package node wires the ambient bootstrap concerns around the two cores:
// locking the datadir for the process lifetime and configuring rotated,
// structured logging, the way the teacher's own node bootstrap path does.
package node

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gofrs/flock"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the bootstrap parameters read from the cmd/sentry CLI
// layer.
type Config struct {
	DataDir  string
	LogFile  string
	LogLevel string
}

// Node owns the datadir lock and the logging handler for one process
// lifetime.
type Node struct {
	cfg  Config
	lock *flock.Flock
}

// New locks cfg.DataDir and installs structured, optionally rotated
// logging. Call Close to release the lock on shutdown.
func New(cfg Config) (*Node, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("node: create datadir %q: %w", cfg.DataDir, err)
	}

	lockPath := filepath.Join(cfg.DataDir, "LOCK")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("node: lock datadir %q: %w", cfg.DataDir, err)
	}
	if !locked {
		return nil, fmt.Errorf("node: datadir %q is already in use by another process", cfg.DataDir)
	}

	if err := setupLogging(cfg); err != nil {
		lock.Unlock()
		return nil, err
	}

	return &Node{cfg: cfg, lock: lock}, nil
}

// Close releases the datadir lock.
func (n *Node) Close() error {
	return n.lock.Unlock()
}

func setupLogging(cfg Config) error {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	handler := log.NewTerminalHandlerWithLevel(out, level, false)
	log.SetDefault(log.NewLogger(handler))
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		s = "info"
	}
	switch s {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	default:
		return 0, fmt.Errorf("node: invalid log level %q", s)
	}
}
