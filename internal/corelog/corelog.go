// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of katcpd.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package corelog is the process-wide logger. It carries the KATCP
// logger bridge's exact 8-level ordered set and, alongside plain
// leveled writing, lets other packages register hooks that see every
// logged line regardless of whether its writer is discarded -- the
// bridge in internal/logger uses this instead of re-parsing output.
package corelog

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Level is one of the eight KATCP log-level names, in strictly
// increasing severity order.
type Level int

const (
	All Level = iota
	Trace
	Debug
	Info
	Warn
	Error
	Fatal
	Off
)

var levelNames = [...]string{"all", "trace", "debug", "info", "warn", "error", "fatal", "off"}

func (l Level) String() string {
	if int(l) < 0 || int(l) >= len(levelNames) {
		return "unknown"
	}
	return levelNames[l]
}

// ParseLevel parses a wire-formatted level name, as used by ?log-level.
func ParseLevel(name string) (Level, error) {
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("corelog: invalid log level %q", name)
}

var levelPrefixes = [...]string{
	All:   "<7>[ALL]     ",
	Trace: "<7>[TRACE]   ",
	Debug: "<7>[DEBUG]   ",
	Info:  "<6>[INFO]    ",
	Warn:  "<4>[WARNING] ",
	Error: "<3>[ERROR]   ",
	Fatal: "<2>[FATAL]   ",
}

var writers [Off]io.Writer
var loggers [Off]*log.Logger

func init() {
	for l := All; l < Off; l++ {
		if l >= threshold {
			writers[l] = os.Stderr
		} else {
			writers[l] = io.Discard
		}
		loggers[l] = log.New(writers[l], levelPrefixes[l], 0)
	}
}

var (
	mu        sync.Mutex
	threshold = Warn
	hooks     []func(level Level, msg string)
)

// SetLevel sets the minimum level written to the process output.
// Levels below threshold are discarded from the writer side but still
// reach every registered hook -- the logger bridge applies its own,
// client-visible threshold independently.
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	threshold = level
	for l := All; l < Off; l++ {
		if l >= threshold {
			writers[l] = os.Stderr
		} else {
			writers[l] = io.Discard
		}
		loggers[l] = log.New(writers[l], levelPrefixes[l], 0)
	}
}

// GetLevel returns the current process-output threshold.
func GetLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return threshold
}

// Hook registers fn to be called with every logged message, regardless
// of the process-output threshold.
func Hook(fn func(level Level, msg string)) {
	mu.Lock()
	defer mu.Unlock()
	hooks = append(hooks, fn)
}

func output(level Level, msg string) {
	mu.Lock()
	logger := loggers[level]
	snapshot := append([]func(Level, string){}, hooks...)
	mu.Unlock()

	logger.Output(3, msg)
	for _, h := range snapshot {
		h(level, msg)
	}
}

func Tracef(format string, v ...any) { output(Trace, fmt.Sprintf(format, v...)) }
func Debugf(format string, v ...any) { output(Debug, fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { output(Info, fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { output(Warn, fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { output(Error, fmt.Sprintf(format, v...)) }

// Fatalf logs at Fatal and terminates the process, mirroring the
// teacher's pkg/log.Fatalf.
func Fatalf(format string, v ...any) {
	output(Fatal, fmt.Sprintf(format, v...))
	os.Exit(1)
}

// RawLog writes msg to the process output at level without invoking any
// registered hook. internal/logger uses this for device-originated log
// calls that already know their own destination name and will mass-
// inform it themselves -- routing those through output would also fire
// every ambient hook a second time.
func RawLog(level Level, msg string) {
	mu.Lock()
	logger := loggers[level]
	mu.Unlock()
	logger.Output(3, msg)
}
