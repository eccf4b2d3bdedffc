package logger

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var base *zap.SugaredLogger

func Init() {
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}
	logPath := filepath.Join(logDir, "app.log")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		logPath = "app.log"
	}

	fileSink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), fileSink, zapcore.InfoLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.AddSync(os.Stdout), zapcore.DebugLevel),
	)

	base = zap.New(core).Sugar()
}

// Named returns a logger scoped to one component, e.g. "submission_service".
func Named(source string) *zap.SugaredLogger {
	if base == nil {
		Init()
	}
	return base.With("source", source)
}

func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}
