package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/natefinch/lumberjack.v2"

	"blurcam/internal/config"
)

// Logger provides leveled logging (debug/info/warning/error) to rotated files and stdout/stderr.
type Logger struct {
	sugar  *zap.SugaredLogger
	logDir string
}

// NewLogger creates a Logger writing to the console and to one rotated file per level
// under the configured log directory. If the directory cannot be created the logger
// keeps console output only.
func NewLogger(config *config.Config) *Logger {
	level := zapcore.InfoLevel
	if config.Debug {
		level = zapcore.DebugLevel
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig(true)), zapcore.Lock(os.Stdout), between(level, zapcore.WarnLevel)),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig(true)), zapcore.Lock(os.Stderr), atLeast(zapcore.ErrorLevel)),
	}

	dirErr := os.MkdirAll(config.LogDirectory, 0o755)
	if dirErr == nil {
		fileEncoder := zapcore.NewConsoleEncoder(encoderConfig(false))
		cores = append(cores,
			zapcore.NewCore(fileEncoder, zapcore.AddSync(openLogFile(config.LogDirectory, "info.log")), between(level, zapcore.InfoLevel)),
			zapcore.NewCore(fileEncoder, zapcore.AddSync(openLogFile(config.LogDirectory, "warning.log")), between(zapcore.WarnLevel, zapcore.WarnLevel)),
			zapcore.NewCore(fileEncoder, zapcore.AddSync(openLogFile(config.LogDirectory, "error.log")), atLeast(zapcore.ErrorLevel)),
		)
	}

	l := &Logger{
		sugar:  zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).Sugar(),
		logDir: config.LogDirectory,
	}
	if dirErr != nil {
		l.Warning("Failed to create log directory %s, logging to console only: %v", config.LogDirectory, dirErr)
	}
	return l
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// NewObserved returns a Logger that records entries in memory, for tests.
func NewObserved() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{sugar: zap.New(core).Sugar()}, logs
}

func encoderConfig(color bool) zapcore.EncoderConfig {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if color {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg
}

// openLogFile returns a size-rotated writer for a log file.
func openLogFile(dir, filename string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, filename),
		MaxSize:    10,
		MaxBackups: 3,
		Compress:   true,
	}
}

func between(lo, hi zapcore.Level) zap.LevelEnablerFunc {
	return func(l zapcore.Level) bool { return l >= lo && l <= hi }
}

func atLeast(lo zapcore.Level) zap.LevelEnablerFunc {
	return func(l zapcore.Level) bool { return l >= lo }
}

// With returns a child logger carrying an extra key/value pair on every entry.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(key, value), logDir: l.logDir}
}

// Named returns a child logger with the given name segment appended.
func (l *Logger) Named(name string) *Logger {
	return &Logger{sugar: l.sugar.Named(name), logDir: l.logDir}
}

// Debug writes a formatted debug-level log entry.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// CleanLogs truncates one of the per-level log files.
func (l *Logger) CleanLogs(fileName string) error {
	if l.logDir == "" {
		return os.ErrNotExist
	}
	if err := os.Truncate(filepath.Join(l.logDir, fileName), 0); err != nil {
		l.Error("Error clearing %s: %v", fileName, err)
		return err
	}
	l.Info("Log file %s has been cleared.", fileName)
	return nil
}

// LogDir returns the directory holding the per-level log files.
func (l *Logger) LogDir() string {
	return l.logDir
}
