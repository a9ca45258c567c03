// Copyright 2019-2020 Intel Corporation. All Rights Reserved.
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

package log

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Level describes the severity of log messages.
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
	// LevelPanic is the severity for panic messages.
	LevelPanic
	// LevelFatal is the severity for fatal errors.
	LevelFatal
	// levelHighest is the highest externally visible level
	levelHighest
)

// Logger is the interface for producing log messages for/from a particular source.
type Logger interface {
	// Debug formats and emits a debug message.
	Debug(format string, args ...interface{})
	// Info formats and emits an informational message.
	Info(format string, args ...interface{})
	// Warn formats and emits a warning message.
	Warn(format string, args ...interface{})
	// Error formats and emits an error message.
	Error(format string, args ...interface{})
	// Panic formats and emits an error message then panics with the same.
	Panic(format string, args ...interface{})
	// Fatal formats and emits an error message and os.Exit()'s with status 1.
	Fatal(format string, args ...interface{})

	// DebugBlock formats and emits a multiline debug message.
	DebugBlock(prefix string, format string, args ...interface{})
	// InfoBlock formats and emits a multiline information message.
	InfoBlock(prefix string, format string, args ...interface{})
	// WarnBlock formats and emits a multiline warning message.
	WarnBlock(prefix string, format string, args ...interface{})
	// ErrorBlock formats and emits a multiline error message.
	ErrorBlock(prefix string, format string, args ...interface{})

	// EnableDebug enables debug messages for this Logger.
	EnableDebug(bool) bool
	// DebugEnabled checks if debug messages are enabled for this Logger.
	DebugEnabled() bool

	// Source returns the source name of this Logger.
	Source() string
}

// logging is the runtime state of all loggers.
type logging struct {
	sync.RWMutex
	level   Level                // lowest unsuppressed severity
	active  Backend              // active backend
	backend map[string]BackendFn // registered backends
	loggers map[string]*logger   // loggers by source
	debug   srcmap               // debugging state by source
	forced  bool                 // forced full debugging
	align   int                  // longest source name seen
}

var log = &logging{
	level:   DefaultLevel,
	backend: make(map[string]BackendFn),
	loggers: make(map[string]*logger),
	debug:   make(srcmap),
}

// logger implements Logger for a single source.
type logger struct {
	source string
	debug  bool
}

// NewLogger returns the logger for the given source, creating it if necessary.
func NewLogger(source string) Logger {
	return log.get(source)
}

// Get is an alias for NewLogger.
func Get(source string) Logger {
	return log.get(source)
}

func (l *logging) get(source string) *logger {
	source = strings.Trim(source, "[] ")

	l.Lock()
	defer l.Unlock()

	if lg, ok := l.loggers[source]; ok {
		return lg
	}

	lg := &logger{
		source: source,
		debug:  l.debug.enabled(source),
	}
	l.loggers[source] = lg

	if len(source) > l.align {
		l.align = len(source)
		if l.active != nil {
			l.active.SetSourceAlignment(l.align)
		}
	}

	return lg
}

// backendLocked returns the active backend, activating the default one if necessary.
func (l *logging) backendLocked() Backend {
	if l.active == nil {
		if fn, ok := l.backend[FmtBackendName]; ok {
			l.active = fn()
		} else {
			l.active = &fmtBackend{out: os.Stdout}
		}
		l.active.SetSourceAlignment(l.align)
	}
	return l.active
}

// setLevel sets the lowest unsuppressed severity level.
func (l *logging) setLevel(level Level) {
	l.level = level
}

// setBackend activates the named backend.
func (l *logging) setBackend(name string) error {
	if l.active != nil && l.active.Name() == name {
		return nil
	}

	fn, ok := l.backend[name]
	if !ok {
		return loggerError("unknown logger backend %q", name)
	}

	if l.active != nil {
		l.active.Stop()
	}
	l.active = fn()
	l.active.SetSourceAlignment(l.align)

	return nil
}

// update refreshes the debugging state of existing loggers.
func (l *logging) update() {
	for src, lg := range l.loggers {
		lg.debug = l.debug.enabled(src)
	}
}

// emit checks if a message of the given level passes and returns the backend for it.
func (lg *logger) emit(level Level) (Backend, bool) {
	log.Lock()
	defer log.Unlock()

	switch {
	case level == LevelDebug:
		if !lg.debug && !log.forced {
			return nil, false
		}
	case level < log.level && level < LevelPanic:
		return nil, false
	}

	return log.backendLocked(), true
}

// Debug logs a debug message.
func (lg *logger) Debug(format string, args ...interface{}) {
	if b, ok := lg.emit(LevelDebug); ok {
		b.Log(LevelDebug, lg.source, format, args...)
	}
}

// Info logs an informational message.
func (lg *logger) Info(format string, args ...interface{}) {
	if b, ok := lg.emit(LevelInfo); ok {
		b.Log(LevelInfo, lg.source, format, args...)
	}
}

// Warn logs a warning message.
func (lg *logger) Warn(format string, args ...interface{}) {
	if b, ok := lg.emit(LevelWarn); ok {
		b.Log(LevelWarn, lg.source, format, args...)
	}
}

// Error logs an error message.
func (lg *logger) Error(format string, args ...interface{}) {
	if b, ok := lg.emit(LevelError); ok {
		b.Log(LevelError, lg.source, format, args...)
	}
}

// Fatal logs a fatal error message and os.Exit(1)'s.
func (lg *logger) Fatal(format string, args ...interface{}) {
	b, _ := lg.emit(LevelFatal)
	b.Log(LevelFatal, lg.source, format, args...)
	b.Sync()

	os.Exit(1)
}

// Panic logs a panic message and panic()'s.
func (lg *logger) Panic(format string, args ...interface{}) {
	b, _ := lg.emit(LevelPanic)
	b.Log(LevelPanic, lg.source, format, args...)
	b.Sync()

	panic(fmt.Sprintf(lg.source+": "+format, args...))
}

// DebugBlock logs a multi-line debug message.
func (lg *logger) DebugBlock(prefix string, format string, args ...interface{}) {
	if b, ok := lg.emit(LevelDebug); ok {
		b.Block(LevelDebug, lg.source, prefix, format, args...)
	}
}

// InfoBlock logs a multi-line informational message.
func (lg *logger) InfoBlock(prefix string, format string, args ...interface{}) {
	if b, ok := lg.emit(LevelInfo); ok {
		b.Block(LevelInfo, lg.source, prefix, format, args...)
	}
}

// WarnBlock logs a multi-line warning message.
func (lg *logger) WarnBlock(prefix string, format string, args ...interface{}) {
	if b, ok := lg.emit(LevelWarn); ok {
		b.Block(LevelWarn, lg.source, prefix, format, args...)
	}
}

// ErrorBlock logs a multi-line error message.
func (lg *logger) ErrorBlock(prefix string, format string, args ...interface{}) {
	if b, ok := lg.emit(LevelError); ok {
		b.Block(LevelError, lg.source, prefix, format, args...)
	}
}

// EnableDebug enables/disables debug logging for this logger.
func (lg *logger) EnableDebug(state bool) bool {
	log.Lock()
	defer log.Unlock()

	old := lg.debug
	lg.debug = state
	log.debug[lg.source] = state

	return old
}

// DebugEnabled checks debug logging is enabled for this logger.
func (lg *logger) DebugEnabled() bool {
	log.RLock()
	defer log.RUnlock()

	return lg.debug || log.forced
}

// Source returns the source for the given logger.
func (lg *logger) Source() string {
	return lg.source
}

// SetLevel sets the lowest severity level of messages to pass through.
func SetLevel(level Level) {
	log.Lock()
	defer log.Unlock()
	log.setLevel(level)
}

// SetBackend activates the named logger backend.
func SetBackend(name string) error {
	log.Lock()
	defer log.Unlock()
	return log.setBackend(name)
}

// Flush waits for all messages of the active backend to get emitted.
func Flush() {
	log.Lock()
	b := log.backendLocked()
	log.Unlock()
	b.Sync()
}

func loggerError(format string, args ...interface{}) error {
	return fmt.Errorf("logger: "+format, args...)
}
