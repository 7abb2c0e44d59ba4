package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"contentflow/internal/common"
	"contentflow/internal/config"
)

const (
	AppLogger   = "app"
	AuditLogger = "audit"
)

var (
	loggers   = make(map[string]*logrus.Logger)
	loggersMu sync.Mutex

	cfg *config.LoggingConfig
)

func DefaultConfig() *config.LoggingConfig {
	return &config.LoggingConfig{
		Level:      "info",
		Format:     "text",
		Output:     "stdout",
		Path:       "logs",
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
	}
}

// Init sets the logging config. Loggers created before Init keep their old settings.
func Init(c *config.LoggingConfig) error {
	if c == nil {
		c = DefaultConfig()
	}
	if c.Output == "file" || c.Output == "both" {
		if err := os.MkdirAll(c.Path, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
	}

	loggersMu.Lock()
	defer loggersMu.Unlock()
	cfg = c
	loggers = make(map[string]*logrus.Logger)
	return nil
}

// GetLogger returns the named logger, creating it on first use.
func GetLogger(name string) *logrus.Logger {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if cfg == nil {
		cfg = DefaultConfig()
	}
	if l, ok := loggers[name]; ok {
		return l
	}
	l := createLogger(name, cfg)
	loggers[name] = l
	return l
}

func App() *logrus.Logger   { return GetLogger(AppLogger) }
func Audit() *logrus.Logger { return GetLogger(AuditLogger) }

func createLogger(name string, c *config.LoggingConfig) *logrus.Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if c.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05.000",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime: "timestamp",
				logrus.FieldKeyMsg:  "message",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	var writers []io.Writer
	if c.Output == "file" || c.Output == "both" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(c.Path, name+".log"),
			MaxSize:    c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
			MaxAge:     c.MaxAgeDays,
			Compress:   c.Compress,
		})
	}
	if c.Output != "file" {
		writers = append(writers, os.Stdout)
	}
	l.SetOutput(io.MultiWriter(writers...))

	return l
}

// WithContext returns an app log entry carrying the request id and actor stored on ctx.
func WithContext(ctx context.Context) *logrus.Entry {
	return withContext(App(), ctx)
}

// AuditEntry is WithContext for the audit logger.
func AuditEntry(ctx context.Context) *logrus.Entry {
	return withContext(Audit(), ctx)
}

func withContext(l *logrus.Logger, ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(l)
	if ctx == nil {
		return entry
	}
	entry = entry.WithContext(ctx)
	if id := common.RequestIDFromContext(ctx); id != "" {
		entry = entry.WithField("request_id", id)
	}
	if actor, ok := common.ActorFromContext(ctx); ok {
		entry = entry.WithFields(logrus.Fields{
			"user_id": actor.UserID,
			"role":    actor.Role,
		})
	}
	return entry
}
