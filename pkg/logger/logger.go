package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"cliparr/pkg/config"
)

// Logger wraps a logrus logger together with the file it may own.
type Logger struct {
	entry *logrus.Logger
	file  *os.File
}

var (
	globalMu     sync.RWMutex
	globalLogger = &Logger{entry: newDefaultLogrus()}
)

func newDefaultLogrus() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// NewLogger 根据配置创建日志器
func NewLogger(cfg *config.Config) *Logger {
	l := newDefaultLogrus()
	lg := &Logger{entry: l}
	if cfg == nil {
		return lg
	}

	if level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Log.Level))); err == nil {
		l.SetLevel(level)
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stdout
	switch strings.ToLower(cfg.Log.Output) {
	case "stderr":
		out = os.Stderr
	case "file":
		name := cfg.Log.Filename
		if name == "" {
			name = filepath.Join(cfg.Paths.ConfigDir, "logs", "cliparr.log")
		}
		if err := os.MkdirAll(filepath.Dir(name), 0o755); err == nil {
			if f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				lg.file = f
				out = io.MultiWriter(os.Stdout, f)
			}
		}
	}
	l.SetOutput(out)
	return lg
}

// SetGlobalLogger 设置全局日志器
func SetGlobalLogger(l *Logger) {
	if l == nil {
		return
	}
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// Default returns the process-wide logger.
func Default() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Logrus exposes the underlying logrus logger, e.g. for gin's writer.
func (l *Logger) Logrus() *logrus.Logger { return l.entry }

// Close releases the log file, if any.
func (l *Logger) Close() {
	if l != nil && l.file != nil {
		_ = l.file.Sync()
		_ = l.file.Close()
		l.file = nil
	}
}

func (l *Logger) with(fields map[string]interface{}) *logrus.Entry {
	return l.entry.WithFields(logrus.Fields(fields))
}

func (l *Logger) Debug(msg string, fields map[string]interface{}) { l.with(fields).Debug(msg) }
func (l *Logger) Info(msg string, fields map[string]interface{})  { l.with(fields).Info(msg) }
func (l *Logger) Warn(msg string, fields map[string]interface{})  { l.with(fields).Warn(msg) }
func (l *Logger) Error(msg string, fields map[string]interface{}) { l.with(fields).Error(msg) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

// WithFields returns an entry carrying structured fields.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return Default().with(fields)
}

func Debug(msg string, fields map[string]interface{}) { Default().Debug(msg, fields) }
func Info(msg string, fields map[string]interface{})  { Default().Info(msg, fields) }
func Warn(msg string, fields map[string]interface{})  { Default().Warn(msg, fields) }
func Error(msg string, fields map[string]interface{}) { Default().Error(msg, fields) }

func Debugf(format string, args ...interface{}) { Default().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { Default().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { Default().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { Default().Errorf(format, args...) }

// Fatal logs and exits the process.
func Fatal(msg string) {
	Default().entry.Fatal(msg)
}

// Fatalf logs a formatted message and exits the process.
func Fatalf(format string, args ...interface{}) {
	Fatal(fmt.Sprintf(format, args...))
}
