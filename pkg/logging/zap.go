package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ZapConfig defines the zap backend configuration
type ZapConfig struct {
	Level  string `yaml:"level,omitempty"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format,omitempty"` // "json", "console"
	Output string `yaml:"output,omitempty"` // "stdout", "stderr"
	File   string `yaml:"file,omitempty"`   // optional rolling log file, written in addition to Output

	MaxSizeMB  int  `yaml:"max_size_mb,omitempty"`
	MaxBackups int  `yaml:"max_backups,omitempty"`
	MaxAgeDays int  `yaml:"max_age_days,omitempty"`
	Compress   bool `yaml:"compress,omitempty"`
}

// DefaultZapConfig keeps stdout free for the probe report.
func DefaultZapConfig() ZapConfig {
	return ZapConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 14,
	}
}

// NewZapLogger builds a Logger on top of zap. The returned closer flushes the
// logger and releases the log file, if any.
func NewZapLogger(prefix string, config ZapConfig) (Logger, func() error, error) {
	zapLogger, closer, err := createZapLogger(config)
	if err != nil {
		return nil, nil, err
	}
	sugar := zapLogger.Sugar()

	logger := NewLogger(prefix, LogFuncs{
		Debugf: sugar.Debugf,
		Infof:  sugar.Infof,
		Warnf:  sugar.Warnf,
		Errorf: sugar.Errorf,
	})
	return logger, closer, nil
}

func createZapLogger(config ZapConfig) (*zap.Logger, func() error, error) {
	level, err := getLevelFromString(config.Level)
	if err != nil {
		return nil, nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	switch config.Format {
	case "console", "":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, nil, fmt.Errorf("invalid log format: %s", config.Format)
	}

	var syncers []zapcore.WriteSyncer
	switch config.Output {
	case "stderr", "":
		syncers = append(syncers, zapcore.Lock(os.Stderr))
	case "stdout":
		syncers = append(syncers, zapcore.Lock(os.Stdout))
	case "none":
	default:
		return nil, nil, fmt.Errorf("invalid log output: %s", config.Output)
	}

	var rolling *lumberjack.Logger
	if config.File != "" {
		if err := os.MkdirAll(filepath.Dir(config.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rolling = &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAgeDays,
			Compress:   config.Compress,
		}
		syncers = append(syncers, zapcore.AddSync(rolling))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(syncers...), level)
	logger := zap.New(core)

	closer := func() error {
		// Sync of a terminal returns EINVAL on Linux.
		_ = logger.Sync()
		if rolling != nil {
			return rolling.Close()
		}
		return nil
	}
	return logger, closer, nil
}

// zap v1.20 predates zapcore.ParseLevel.
func getLevelFromString(levelStr string) (zapcore.Level, error) {
	switch levelStr {
	case "debug":
		return zap.DebugLevel, nil
	case "info", "":
		return zap.InfoLevel, nil
	case "warn":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("invalid log level: %s", levelStr)
	}
}
