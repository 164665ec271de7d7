package config

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ConsoleLogConfig configures console output.
type ConsoleLogConfig struct {
	Level string `yaml:"level"` // none, normal or debug
}

// FileLogConfig configures the rotated log file.
type FileLogConfig struct {
	Level      string `yaml:"level"` // none, normal or debug
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// LoggingConfig holds both log destinations.
type LoggingConfig struct {
	Console ConsoleLogConfig `yaml:"console"`
	File    FileLogConfig    `yaml:"file"`
}

func minLevel(level string) (zapcore.Level, bool) {
	switch level {
	case "normal":
		return zapcore.InfoLevel, true
	case "debug":
		return zapcore.DebugLevel, true
	default:
		return 0, false
	}
}

// Prepare returns the program logger. Console output goes to stderr so
// decoded records can be written to stdout.
func (conf *LoggingConfig) Prepare() (*zap.Logger, error) {
	return conf.prepare(os.Stderr, nil)
}

// prepare builds the logger. A nil file writer opens the configured
// rotating log file.
func (conf *LoggingConfig) prepare(console io.Writer, file io.Writer) (*zap.Logger, error) {
	var cores []zapcore.Core

	if lvl, ok := minLevel(conf.Console.Level); ok {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeCaller = nil
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(ec), zapcore.AddSync(console), lvl))
	}

	if lvl, ok := minLevel(conf.File.Level); ok {
		if file == nil {
			file = &lumberjack.Logger{
				Filename:   conf.File.Path,
				MaxSize:    conf.File.MaxSizeMB,
				MaxAge:     conf.File.MaxAgeDays,
				MaxBackups: conf.File.MaxBackups,
				Compress:   conf.File.Compress,
			}
		}
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(ec), zapcore.AddSync(file), lvl))
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}
