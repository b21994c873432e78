// Package logger provides opinionated logging capabilities for graphchat
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func NewLogger(debug bool) *zap.Logger {
	return New(WithDebug(debug), WithCaller(true))
}

func NewLoggerWithWriters(debug bool, writers ...io.Writer) *zap.Logger {
	return New(WithDebug(debug), WithCaller(true), WithWriters(writers...))
}

// New builds a zap logger from the given options. Console output with
// colored levels is the default; WithJSON switches to the JSON encoder for
// service logs shipped elsewhere.
func New(opts ...Option) *zap.Logger {
	c := &config{level: zap.InfoLevel}
	for _, opt := range opts {
		opt(c)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if c.json {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	writers := c.writers
	if len(writers) == 0 {
		writers = []io.Writer{os.Stdout}
	}

	syncers := make([]zapcore.WriteSyncer, 0, len(writers))
	for _, writer := range writers {
		syncers = append(syncers, zapcore.AddSync(writer))
	}

	core := zapcore.NewCore(
		encoder,
		zapcore.NewMultiWriteSyncer(syncers...),
		c.level,
	)

	zopts := []zap.Option{}
	if c.caller {
		zopts = append(zopts, zap.AddCaller())
	}

	return zap.New(core, zopts...)
}

// Multi tees every entry to all of the given loggers' cores.
func Multi(loggers ...*zap.Logger) *zap.Logger {
	cores := make([]zapcore.Core, 0, len(loggers))
	for _, l := range loggers {
		cores = append(cores, l.Core())
	}
	return zap.New(zapcore.NewTee(cores...))
}
