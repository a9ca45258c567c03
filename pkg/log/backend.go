// Copyright 2023 Intel Corporation. All Rights Reserved.
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
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Backend formats and emits log messages on behalf of Loggers.
type Backend interface {
	// Name returns the name the backend is registered with.
	Name() string
	// Log emits a message of the given severity from source.
	Log(level Level, source, format string, args ...interface{})
	// Block emits a multi-line message, prefixing each line.
	Block(level Level, source, prefix, format string, args ...interface{})
	// Sync flushes any buffered messages.
	Sync()
	// Stop flushes and releases the backend.
	Stop()
	// SetSourceAlignment sets the width sources are centered to.
	SetSourceAlignment(width int)
}

// BackendFn creates a Backend.
type BackendFn func() Backend

// RegisterBackend makes a backend selectable by name.
func RegisterBackend(name string, fn BackendFn) {
	log.Lock()
	defer log.Unlock()
	log.backend[name] = fn
}

// FmtBackendName is the name of the plain text backend writing to stdout.
const FmtBackendName = "fmt"

var fmtTags = map[Level]string{
	LevelDebug: "D:",
	LevelInfo:  "I:",
	LevelWarn:  "W:",
	LevelError: "E:",
	LevelFatal: "FATAL ERROR:",
	LevelPanic: "PANIC:",
}

type fmtBackend struct {
	sync.Mutex
	out   io.Writer
	align int
}

func (*fmtBackend) Name() string { return FmtBackendName }

func (f *fmtBackend) Log(level Level, source, format string, args ...interface{}) {
	f.emit(level, source, "", fmt.Sprintf(format, args...))
}

func (f *fmtBackend) Block(level Level, source, prefix, format string, args ...interface{}) {
	f.emit(level, source, prefix, fmt.Sprintf(format, args...))
}

func (f *fmtBackend) Sync() {
	f.Lock()
	defer f.Unlock()
	if s, ok := f.out.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
}

func (f *fmtBackend) Stop() { f.Sync() }

func (f *fmtBackend) SetSourceAlignment(width int) {
	f.Lock()
	defer f.Unlock()
	f.align = width
}

// sourceTag returns source in brackets, centered within the alignment width.
func (f *fmtBackend) sourceTag(source string) string {
	pad := f.align - len(source)
	if pad <= 0 {
		return "[" + source + "]"
	}
	right := pad / 2
	left := pad - right
	return "[" + strings.Repeat(" ", left) + source + strings.Repeat(" ", right) + "]"
}

func (f *fmtBackend) emit(level Level, source, prefix, msg string) {
	f.Lock()
	defer f.Unlock()

	tag := fmtTags[level] + " " + f.sourceTag(source) + " " + prefix
	scanner := bufio.NewScanner(strings.NewReader(msg))
	lines := 0
	for scanner.Scan() {
		fmt.Fprintln(f.out, tag+scanner.Text())
		lines++
	}
	if lines == 0 {
		fmt.Fprintln(f.out, tag)
	}
}

func init() {
	RegisterBackend(FmtBackendName, func() Backend {
		return &fmtBackend{out: os.Stdout}
	})
}
