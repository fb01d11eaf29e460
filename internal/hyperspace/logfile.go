package hyperspace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLine is one transcript entry.
type LogLine struct {
	Time    time.Time
	Message string
}

func (l LogLine) String() string {
	return fmt.Sprintf("[%s] %s", l.Time.Format("15:04:05"), l.Message)
}

// FileLog is logs/install.log. Each run starts a fresh file; earlier runs are
// rotated out and compressed by lumberjack.
type FileLog struct {
	path   string
	writer *lumberjack.Logger
	logger *log.Logger
}

// OpenFileLog prepares the log file at path with the given logrus level.
func OpenFileLog(path, level string) (*FileLog, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("failed parsing log-level %s: %w", level, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDirectoryCreation, filepath.Dir(path), err)
	}

	writer := &lumberjack.Logger{
		Filename:   filepath.ToSlash(path),
		MaxSize:    5, // MB
		MaxBackups: 10,
		MaxAge:     30, // days
		Compress:   true,
	}
	logger := log.New()
	logger.SetOutput(writer)
	logger.SetFormatter(&log.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	logger.SetLevel(lvl)

	return &FileLog{path: path, writer: writer, logger: logger}, nil
}

// StartRun rotates the previous run out of install.log.
func (f *FileLog) StartRun() error {
	if f == nil {
		return nil
	}
	info, err := os.Stat(f.path)
	if err != nil || info.Size() == 0 {
		return nil
	}
	return f.writer.Rotate()
}

// Entry returns a logger tagged with the run's identity.
func (f *FileLog) Entry(runID string, op Operation) *log.Entry {
	if f == nil {
		return nil
	}
	return f.logger.WithFields(log.Fields{"run_id": runID, "op": op.String()})
}

func (f *FileLog) Path() string {
	if f == nil {
		return ""
	}
	return f.path
}

func (f *FileLog) Close() error {
	if f == nil {
		return nil
	}
	return f.writer.Close()
}
