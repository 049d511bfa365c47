// Package logger provides the process-wide structured logger. The sink is
// chosen once at startup: inside Azure Functions everything goes to stderr
// for the platform to collect, locally a session log file can be added.
// Nothing is ever written to stdout, which belongs to the stdio transport.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects the log level and sink.
type Options struct {
	// Level is one of debug, info, warn, error
	Level string
	// Dir enables a session log file in this directory (local runs only)
	Dir string
}

var (
	mu      sync.RWMutex
	sugared = zap.NewNop().Sugar()
	logFile string
)

// functionsEnvVars are set by the Azure Functions host.
var functionsEnvVars = []string{
	"AZURE_FUNCTIONS_ENVIRONMENT",
	"WEBSITE_SITE_NAME",
	"FUNCTIONS_WORKER_RUNTIME",
}

// IsFunctionsEnvironment reports whether the process runs under the Azure
// Functions host.
func IsFunctionsEnvironment() bool {
	for _, name := range functionsEnvVars {
		if _, ok := os.LookupEnv(name); ok {
			return true
		}
	}
	return false
}

// ParseLevel maps a level name to a zap level. Unknown names are an error.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
}

// Init installs the process logger. The returned function flushes and closes
// the sinks.
func Init(opts Options) (func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if suppressed() && level < zapcore.WarnLevel {
		level = zapcore.WarnLevel
	}
	enabler := zap.NewAtomicLevelAt(level)

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var (
		cores   []zapcore.Core
		closers []func() error
		path    string
	)

	if IsFunctionsEnvironment() {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.Lock(os.Stderr), enabler))
	} else {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stderr), enabler))
		if opts.Dir != "" {
			f, p, err := openSessionFile(opts.Dir, time.Now())
			if err != nil {
				return nil, err
			}
			path = p
			closers = append(closers, f.Close)
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(f), enabler))
		}
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))

	mu.Lock()
	sugared = l.Sugar()
	logFile = path
	mu.Unlock()

	return func() error {
		_ = l.Sync()
		for _, c := range closers {
			if err := c(); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

// SetLogger replaces the process logger, mainly for tests.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	sugared = l.WithOptions(zap.AddCallerSkip(1)).Sugar()
	logFile = ""
}

// File returns the session log file path, or "" when logging to stderr only.
func File() string {
	mu.RLock()
	defer mu.RUnlock()
	return logFile
}

func openSessionFile(dir string, now time.Time) (*os.File, string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, "", fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("ai4ops_%s.log", now.Format("20060102_150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 -- path built from operator-supplied log dir
	if err != nil {
		return nil, "", fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return f, path, nil
}

func suppressed() bool {
	v, err := strconv.ParseBool(os.Getenv("SUPPRESS_MCP_LOGGING"))
	return err == nil && v
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugared
}

// Debugf logs at debug level.
func Debugf(format string, args ...any) { current().Debugf(format, args...) }

// Infof logs at info level.
func Infof(format string, args ...any) { current().Infof(format, args...) }

// Warnf logs at warn level.
func Warnf(format string, args ...any) { current().Warnf(format, args...) }

// Errorf logs at error level.
func Errorf(format string, args ...any) { current().Errorf(format, args...) }

// Infow logs a message with structured key/value pairs.
func Infow(msg string, keysAndValues ...any) { current().Infow(msg, keysAndValues...) }
