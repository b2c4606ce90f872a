// Copyright The cachetopo Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides source-tagged leveled logging on top of klog.
package log

import (
	"fmt"
	"sync"

	"k8s.io/klog/v2"
)

// Level describes the severity of a log message.
type Level int

const (
	// LevelDebug is the severity for debug messages.
	LevelDebug Level = iota
	// LevelInfo is the severity for informational messages.
	LevelInfo
	// LevelWarn is the severity for warnings.
	LevelWarn
	// LevelError is the severity for errors.
	LevelError
)

// Logger is the interface for producing log messages for a source.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	// Block logs a multiline message with a per-line prefix.
	Block(fn func(string, ...interface{}), prefix string, format string, args ...interface{})
	// DebugEnabled tells if debug messages for this source are enabled.
	DebugEnabled() bool
	// EnableDebug enables or disables debug messages for this source.
	EnableDebug(bool) bool
	// Source returns the source of this Logger.
	Source() string
}

type logger struct {
	source string
}

type logging struct {
	sync.RWMutex
	loggers map[string]logger
	dbgmap  srcmap
}

var log = &logging{
	loggers: make(map[string]logger),
	dbgmap:  make(srcmap),
}

const defaultSource = "default"

// NewLogger creates a Logger for the given source.
func NewLogger(source string) Logger {
	log.Lock()
	defer log.Unlock()
	return log.get(source)
}

// Get is an alias for NewLogger.
func Get(source string) Logger {
	return NewLogger(source)
}

// Default returns the default Logger.
func Default() Logger {
	return NewLogger(defaultSource)
}

// EnableDebug enables or disables debug messages for the given source,
// returning the previous setting.
func EnableDebug(source string, enabled bool) bool {
	log.Lock()
	defer log.Unlock()

	previous := log.dbgmap[source]
	log.dbgmap[source] = enabled

	return previous
}

// SetDebug replaces the per-source debug settings wholesale.
func SetDebug(settings map[string]bool) {
	log.Lock()
	defer log.Unlock()

	log.dbgmap = make(srcmap, len(settings))
	for source, enabled := range settings {
		log.dbgmap[source] = enabled
	}
}

func (l *logging) get(source string) logger {
	if lgr, ok := l.loggers[source]; ok {
		return lgr
	}

	lgr := logger{source: source}
	l.loggers[source] = lgr

	return lgr
}

func (l *logging) debugging(source string) bool {
	l.RLock()
	defer l.RUnlock()

	if enabled, ok := l.dbgmap[source]; ok {
		return enabled
	}
	return l.dbgmap["*"]
}

func (l logger) prefix(format string) string {
	return "[" + l.source + "] " + format
}

func (l logger) Debug(format string, args ...interface{}) {
	if !log.debugging(l.source) {
		return
	}
	klog.InfoDepth(1, fmt.Sprintf("D: "+l.prefix(format), args...))
}

func (l logger) Info(format string, args ...interface{}) {
	klog.InfoDepth(1, fmt.Sprintf(l.prefix(format), args...))
}

func (l logger) Warn(format string, args ...interface{}) {
	klog.WarningDepth(1, fmt.Sprintf(l.prefix(format), args...))
}

func (l logger) Error(format string, args ...interface{}) {
	klog.ErrorDepth(1, fmt.Sprintf(l.prefix(format), args...))
}

func (l logger) Block(fn func(string, ...interface{}), prefix string, format string, args ...interface{}) {
	for _, line := range splitLines(fmt.Sprintf(format, args...)) {
		fn("%s%s", prefix, line)
	}
}

func (l logger) DebugEnabled() bool {
	return log.debugging(l.source)
}

func (l logger) EnableDebug(enabled bool) bool {
	return EnableDebug(l.source, enabled)
}

func (l logger) Source() string {
	return l.source
}

func splitLines(msg string) []string {
	var lines []string

	begin := 0
	for i := 0; i < len(msg); i++ {
		if msg[i] == '\n' {
			lines = append(lines, msg[begin:i])
			begin = i + 1
		}
	}
	if begin < len(msg) {
		lines = append(lines, msg[begin:])
	}
	if len(lines) == 0 {
		lines = []string{""}
	}

	return lines
}

func loggerError(format string, args ...interface{}) error {
	return fmt.Errorf("logger: "+format, args...)
}
