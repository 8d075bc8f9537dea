// Package logger builds the process-wide zap logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level string
	Dev   bool
	// File enables a rotated JSON log file in addition to stdout. The name
	// gets a .%Y%m%d suffix per rotation and File itself links to the
	// current one.
	File       string
	MaxAge     time.Duration
	RotateTime time.Duration
}

func levelFromString(l string) zapcore.Level {
	switch strings.ToLower(l) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init returns a console logger in dev mode and a JSON logger otherwise.
func Init(cfg Config) (*zap.Logger, error) {
	lvl := levelFromString(cfg.Level)
	if cfg.Dev {
		c := zap.NewDevelopmentConfig()
		c.Level = zap.NewAtomicLevelAt(lvl)
		return c.Build()
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), lvl)}
	if cfg.File != "" {
		w, err := rotatingWriter(cfg)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(w), lvl))
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

func rotatingWriter(cfg Config) (io.Writer, error) {
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	rotate := cfg.RotateTime
	if rotate <= 0 {
		rotate = 24 * time.Hour
	}

	abs, err := filepath.Abs(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("log file path: %w", err)
	}

	w, err := rotatelogs.New(
		abs+".%Y%m%d",
		rotatelogs.WithLinkName(abs),
		rotatelogs.WithMaxAge(maxAge),
		rotatelogs.WithRotationTime(rotate),
	)
	if err != nil {
		return nil, fmt.Errorf("open rotating log: %w", err)
	}
	return w, nil
}
