// Copyright (c) 2023-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is a minimal logging interface shared by every package in the
// service. Keeping it small lets tests substitute a no-op implementation
// without pulling in a logging backend.
type Logger interface {
	Debug(msg string, keyValuePairs ...any)
	Info(msg string, keyValuePairs ...any)
	Warn(msg string, keyValuePairs ...any)
	Error(msg string, keyValuePairs ...any)
}

// logrusAdapter adapts a logrus.Logger to the minimal Logger interface.
type logrusAdapter struct {
	logger *logrus.Logger
}

// New creates a Logger backed by logrus with the given level and format.
// Level parsing errors fall back to info rather than failing startup.
func New(level string, jsonFormat bool, out io.Writer) Logger {
	backend := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	backend.SetOutput(out)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	backend.SetLevel(parsed)

	if jsonFormat {
		backend.SetFormatter(&logrus.JSONFormatter{})
	} else {
		backend.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &logrusAdapter{logger: backend}
}

// NewNop returns a Logger that discards everything. Useful in tests.
func NewNop() Logger {
	backend := logrus.New()
	backend.SetOutput(io.Discard)
	return &logrusAdapter{logger: backend}
}

func (a *logrusAdapter) Debug(msg string, keyValuePairs ...any) {
	a.logger.WithFields(keyValuePairsToFields(keyValuePairs)).Debug(msg)
}

func (a *logrusAdapter) Info(msg string, keyValuePairs ...any) {
	a.logger.WithFields(keyValuePairsToFields(keyValuePairs)).Info(msg)
}

func (a *logrusAdapter) Warn(msg string, keyValuePairs ...any) {
	a.logger.WithFields(keyValuePairsToFields(keyValuePairs)).Warn(msg)
}

func (a *logrusAdapter) Error(msg string, keyValuePairs ...any) {
	a.logger.WithFields(keyValuePairsToFields(keyValuePairs)).Error(msg)
}

// keyValuePairsToFields converts alternating key-value pairs to logrus fields.
// Keys that are not strings are stringified rather than dropped so that a
// malformed call site still surfaces its data.
func keyValuePairsToFields(keyValuePairs []any) logrus.Fields {
	fields := make(logrus.Fields, len(keyValuePairs)/2)
	for i := 0; i < len(keyValuePairs)-1; i += 2 {
		key, ok := keyValuePairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keyValuePairs[i])
		}
		fields[key] = keyValuePairs[i+1]
	}
	return fields
}
