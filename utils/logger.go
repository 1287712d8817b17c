package utils

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log  *zap.Logger
	once sync.Once
)

// DefaultLogFile receives a copy of everything written to stdout
const DefaultLogFile = "arbbot.log"

type LoggerConfig struct {
	Debug bool
	// File is an extra output path; empty logs to stdout only
	File string
}

// NewLogger builds a production JSON logger with ISO8601 timestamps
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if cfg.Debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	if cfg.File != "" {
		config.OutputPaths = append(config.OutputPaths, cfg.File)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.StacktraceKey = "stacktrace"

	return config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
}

// InitLogger initializes the global logger instance. Only the first call
// takes effect.
func InitLogger(cfg LoggerConfig) *zap.Logger {
	once.Do(func() {
		logger, err := NewLogger(cfg)
		if err != nil {
			panic(err)
		}
		log = logger
	})

	return log
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if log == nil {
		return InitLogger(LoggerConfig{File: DefaultLogFile})
	}
	return log
}

// CleanupLogger flushes any buffered log entries
func CleanupLogger() {
	if log != nil {
		_ = log.Sync()
	}
}
