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
	"flag"
	"sort"
	"strings"
)

const (
	// DefaultLevel is the default logging severity level.
	DefaultLevel = LevelInfo
	// command-line argument prefix.
	optPrefix = "logger"
	// Flag for enabling/disabling debug logging for sources.
	optDebug = optPrefix + "-debug"
	// Flag for selecting logging level.
	optLevel = optPrefix + "-level"
	// Flag for selecting logging backend.
	optLogger = optPrefix
)

// srcmap tracks debugging settings for sources.
type srcmap map[string]bool

// levelFlag is the flag.Value for the logging severity level.
type levelFlag struct{}

// backendFlag is the flag.Value for the active backend.
type backendFlag struct{}

// debugFlag is the flag.Value for the per-source debugging state.
type debugFlag struct{}

var levelNames = map[string]Level{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warning": LevelWarn,
	"error":   LevelError,
	"panic":   LevelPanic,
	"fatal":   LevelFatal,
}

// ParseLevel parses the given level name.
func ParseLevel(value string) (Level, error) {
	level, ok := levelNames[strings.ToLower(value)]
	if !ok {
		if strings.ToLower(value) == "warn" {
			return LevelWarn, nil
		}
		return LevelInfo, loggerError("invalid logging level %q", value)
	}
	return level, nil
}

// String returns the name of the level.
func (l Level) String() string {
	for name, level := range levelNames {
		if level == l {
			return name
		}
	}
	return "info"
}

// Set sets the level from the given name.
func (l *Level) Set(value string) error {
	level, err := ParseLevel(value)
	if err != nil {
		return err
	}
	*l = level
	return nil
}

func (levelFlag) Set(value string) error {
	level, err := ParseLevel(value)
	if err != nil {
		return err
	}
	SetLevel(level)
	return nil
}

func (levelFlag) String() string {
	log.RLock()
	defer log.RUnlock()
	return log.level.String()
}

func (backendFlag) Set(value string) error {
	return SetBackend(value)
}

func (backendFlag) String() string {
	log.RLock()
	defer log.RUnlock()
	if log.active == nil {
		return FmtBackendName
	}
	return log.active.Name()
}

// Set updates debugging state from a spec like "on:cache,sampler,off:http".
func (debugFlag) Set(value string) error {
	log.Lock()
	defer log.Unlock()

	if err := log.debug.parse(value); err != nil {
		return err
	}
	log.update()

	return nil
}

func (debugFlag) String() string {
	log.RLock()
	defer log.RUnlock()
	return log.debug.String()
}

// EnableDebug sets debugging state using a spec like the -logger-debug flag.
func EnableDebug(spec string) error {
	return debugFlag{}.Set(spec)
}

// parse parses the given spec and updates the srcmap accordingly.
func (m srcmap) parse(value string) error {
	prev := ""
	for _, entry := range strings.Split(value, ",") {
		if entry == "" {
			continue
		}
		state, src := "", ""
		statesrc := strings.Split(entry, ":")
		switch len(statesrc) {
		case 2:
			state, src = statesrc[0], statesrc[1]
		case 1:
			state, src = "", statesrc[0]
		default:
			return loggerError("invalid state spec %q in source map", entry)
		}

		if state != "" {
			prev = state
		} else {
			state = prev
			if state == "" {
				state = "on"
			}
		}
		if src == "all" {
			src = "*"
		}

		switch strings.ToLower(state) {
		case "on", "true", "enable", "enabled":
			m[src] = true
		case "off", "false", "disable", "disabled":
			m[src] = false
		default:
			return loggerError("invalid state %q in source map", state)
		}
	}
	return nil
}

// enabled checks if the source is enabled in the srcmap.
func (m srcmap) enabled(source string) bool {
	if state, ok := m[source]; ok {
		return state
	}
	if state, ok := m["*"]; ok {
		return state
	}
	return false
}

// String returns a string representation of the srcmap.
func (m srcmap) String() string {
	on, off := []string{}, []string{}
	for src, state := range m {
		if state {
			on = append(on, src)
		} else {
			off = append(off, src)
		}
	}
	sort.Strings(on)
	sort.Strings(off)

	switch {
	case len(on) == 0 && len(off) == 0:
		return ""
	case len(off) == 0:
		return "on:" + strings.Join(on, ",")
	case len(on) == 0:
		return "off:" + strings.Join(off, ",")
	}
	return "on:" + strings.Join(on, ",") + ",off:" + strings.Join(off, ",")
}

// Register us for command line parsing.
func init() {
	flag.Var(backendFlag{}, optLogger,
		"logger backend to use (fmt, klog).")
	flag.Var(levelFlag{}, optLevel,
		"lowest severity level to pass through (info, warning, error)")
	flag.Var(debugFlag{}, optDebug,
		"comma-separated list of source names to enable debug messages for.\n"+
			"Specify '*' or 'all' to enable all sources.\n"+
			"Prefix a source or list with 'off:' to disable, which is also the default state.")
}
