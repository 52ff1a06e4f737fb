// Package daemon contiene la lógica del servicio.
package daemon

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/adcondev/ticket-bridge/internal/config"
)

// Lines kept when the log file is rotated or flushed.
const (
	keepOnRotate = 1000
	keepOnFlush  = 50

	// tailBytes caps how much of the file end is scanned for lines.
	tailBytes = 64 * 1024
)

// Logger is the service logger with runtime verbosity and log file upkeep.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
	file  *rotatingFile
}

// NewLogger builds a logger from cfg. Output is stdout, stderr, or a file
// path that is trimmed to its last lines once it grows past MaxSizeBytes.
func NewLogger(cfg config.LogConfig) (*Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if cfg.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	l := &Logger{level: level}
	var sink zapcore.WriteSyncer
	switch cfg.Output {
	case "", "stdout":
		sink = zapcore.Lock(os.Stdout)
	case "stderr":
		sink = zapcore.Lock(os.Stderr)
	default:
		f, err := openRotatingFile(cfg.Output, cfg.MaxSizeBytes)
		if err != nil {
			return nil, err
		}
		l.file = f
		sink = f
	}

	l.Logger = zap.New(zapcore.NewCore(enc, sink, level), zap.AddCaller())
	return l, nil
}

// SetVerbose switches between debug and info at runtime
func (l *Logger) SetVerbose(v bool) {
	if v {
		l.level.SetLevel(zapcore.DebugLevel)
	} else {
		l.level.SetLevel(zapcore.InfoLevel)
	}
	l.Info("log verbosity changed", zap.Bool("verbose", v))
}

// Verbose reports whether debug entries are written.
func (l *Logger) Verbose() bool {
	return l.level.Enabled(zapcore.DebugLevel)
}

// FileSize returns current log file size, zero when logging to a stream.
func (l *Logger) FileSize() int64 {
	if l.file == nil {
		return 0
	}
	return l.file.Size()
}

// Flush keeps the last 50 lines of the log file and clears the rest
func (l *Logger) Flush() error {
	if l.file == nil {
		return fmt.Errorf("logging to a stream, no file to flush")
	}
	if err := l.file.Trim(keepOnFlush); err != nil {
		return err
	}
	l.Info("log file flushed")
	return nil
}

// Close syncs and releases the log file.
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// rotatingFile is a WriteSyncer that trims itself to its tail once it
// reaches maxSize. A maxSize of zero disables trimming.
type rotatingFile struct {
	mu      sync.Mutex
	path    string
	maxSize int64
	f       *os.File
	size    int64
}

func openRotatingFile(path string, maxSize int64) (*rotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, err
	}
	r := &rotatingFile{path: path, maxSize: maxSize}

	// Auto-rotate on start if already oversized
	if info, err := os.Stat(path); err == nil && maxSize > 0 && info.Size() >= maxSize {
		if err := r.rewrite(keepOnRotate); err != nil {
			return nil, err
		}
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rotatingFile) open() error {
	f, err := os.OpenFile(r.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600) //nolint:gosec
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	r.f = f
	r.size = info.Size()
	return nil
}

// rewrite replaces the file content with its last n lines. The file must be
// closed. The kept tail is at most half of maxSize so rotation always shrinks.
func (r *rotatingFile) rewrite(n int) error {
	limit := int64(tailBytes)
	if r.maxSize > 0 && r.maxSize/2 < limit {
		limit = r.maxSize / 2
	}
	lines := readLastNLines(r.path, n, limit)
	content := ""
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	return os.WriteFile(r.path, []byte(content), 0600)
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return 0, fmt.Errorf("log file not initialized")
	}
	n, err := r.f.Write(p)
	r.size += int64(n)
	if err != nil {
		return n, err
	}
	if r.maxSize > 0 && r.size >= r.maxSize {
		if err := r.trimLocked(keepOnRotate); err != nil {
			fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
		}
	}
	return n, nil
}

func (r *rotatingFile) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	return r.f.Sync()
}

func (r *rotatingFile) Size() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Trim keeps the last n lines.
func (r *rotatingFile) Trim(n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trimLocked(n)
}

func (r *rotatingFile) trimLocked(n int) error {
	// no Write can happen while the file is swapped
	if r.f != nil {
		if err := r.f.Close(); err != nil {
			return err
		}
		r.f = nil
	}
	if err := r.rewrite(n); err != nil {
		return err
	}
	return r.open()
}

func (r *rotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

// readLastNLines reads last N lines from the final maxBytes of file
func readLastNLines(path string, n int, maxBytes int64) []string {
	file, err := os.Open(path) //nolint:gosec
	if err != nil {
		return []string{}
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return []string{}
	}

	size := stat.Size()
	if size == 0 {
		return []string{}
	}

	bufSize := maxBytes
	if size < bufSize {
		bufSize = size
	}

	buf := make([]byte, bufSize)
	if _, err := file.Seek(size-bufSize, io.SeekStart); err != nil {
		return []string{}
	}
	if _, err := io.ReadFull(file, buf); err != nil {
		return []string{}
	}

	allLines := strings.Split(string(buf), "\n")

	// Clean empty lines at end
	for len(allLines) > 0 && allLines[len(allLines)-1] == "" {
		allLines = allLines[:len(allLines)-1]
	}

	// If we started mid-line, discard first partial line
	if size > bufSize && len(allLines) > 0 {
		allLines = allLines[1:]
	}

	if len(allLines) <= n {
		return allLines
	}
	return allLines[len(allLines)-n:]
}
