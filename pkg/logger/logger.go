// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package logger

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogInit writes JSON to fp and human-readable lines to console.
// A nil fp logs to console only.
func LogInit(fp io.Writer, console io.Writer, dbg bool) *zap.Logger {
	pe := zap.NewProductionEncoderConfig()
	fileEncoder := zapcore.NewJSONEncoder(pe)
	pe.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(pe)
	var level zapcore.Level
	if dbg {
		level = zap.DebugLevel
	} else {
		level = zap.InfoLevel
	}
	cores := []zapcore.Core{zapcore.NewCore(consoleEncoder, zapcore.AddSync(console), level)}
	if fp != nil {
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(fp), level))
	}
	return zap.New(zapcore.NewTee(cores...))
}

// Open creates dir if needed and returns a logger that also appends to dir/name.
// An empty dir disables the log file. The returned func closes the file.
func Open(dir, name string, dbg bool) (*zap.Logger, func(), error) {
	if dir == "" || name == "" {
		return LogInit(nil, os.Stderr, dbg), func() {}, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, err
	}
	fp, err := os.OpenFile(filepath.Join(dir, name), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, nil, err
	}
	l := LogInit(fp, os.Stderr, dbg)
	return l, func() {
		_ = l.Sync()
		fp.Close()
	}, nil
}
