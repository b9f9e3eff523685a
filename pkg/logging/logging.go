package logging

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogFileSizeMB = 20
	maxLogBackups    = 3
)

type Options struct {
	// Level is one of debug, info, warn or error.
	Level string
	// File, when set, makes the logger additionally write JSON records to a rotated file.
	File string
	// Verbose lowers the level to debug regardless of Level.
	Verbose bool
}

// New builds the logger used by every component: a development console logger on stderr,
// teed into a lumberjack-rotated JSON file when Options.File is set.
func New(opts Options) (*zap.SugaredLogger, error) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, errors.Wrapf(err, "invalid log level %q", opts.Level)
		}
	}
	if opts.Verbose {
		level.SetLevel(zap.DebugLevel)
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stderr), level),
	}

	if opts.File != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(RotatingFile(opts.File)),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...), zap.Development()).Sugar(), nil
}

// RotatingFile returns the lumberjack writer backing the file core.
func RotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxLogFileSizeMB,
		MaxBackups: maxLogBackups,
	}
}
