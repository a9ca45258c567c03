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

package config

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// Collection modes.
const (
	// ModeSingle measures all matching processes as one group.
	ModeSingle = "single"
	// ModeMultiple measures each matching process as its own group.
	ModeMultiple = "multiple"
	// ModeCallsign measures worker processes by their -C argument.
	ModeCallsign = "callsign"
	// ModeClassName measures worker processes by their -c argument.
	ModeClassName = "classname"
)

// Modes lists all known collection modes.
var Modes = []string{ModeSingle, ModeMultiple, ModeCallsign, ModeClassName}

const (
	// DefaultWorkerName is the worker executable inspected in callsign and classname modes.
	DefaultWorkerName = "WPEProcess"
	// DefaultMaxWriteFailures is the default number of tolerated consecutive write failures.
	DefaultMaxWriteFailures = 5
)

// ErrInvalidConfig is matched by all configuration validation errors.
var ErrInvalidConfig = errors.New("invalid configuration")

// Error is a configuration error.
type Error struct {
	msg string
}

func (e *Error) Error() string {
	return e.msg
}

// Is makes every configuration error match ErrInvalidConfig.
func (e *Error) Is(target error) bool {
	return target == ErrInvalidConfig
}

func configError(format string, args ...interface{}) error {
	return &Error{msg: "config: " + fmt.Sprintf(format, args...)}
}

// Config is the configuration of the resource monitor.
type Config struct {
	// Path of the binary log.
	Path string `json:"path"`
	// Interval between samples, in seconds.
	Interval uint32 `json:"interval"`
	// Mode of process collection.
	Mode string `json:"mode"`
	// ParentName is the process name, callsign or class name to monitor.
	ParentName string `json:"parent-name"`
	// WorkerName is the worker executable inspected in callsign and classname modes.
	WorkerName string `json:"worker-name,omitempty"`
	// MaxWriteFailures stops sampling after this many consecutive
	// failed log writes. 0 never stops.
	MaxWriteFailures *int `json:"max-write-failures,omitempty"`
	// PageFrames overrides the detected physical page count.
	PageFrames uint64 `json:"page-frames,omitempty"`
	// HTTPEndpoint is the address to serve reports and metrics on.
	HTTPEndpoint string `json:"http-endpoint,omitempty"`
	// PidFile is the path to write our process ID to.
	PidFile string `json:"pid-file,omitempty"`
}

// Load reads configuration from the given YAML or JSON file.
func Load(path string) (*Config, error) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, configError("failed to read configuration file %s: %v", path, err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, errors.WithMessagef(err, "configuration file %s", path)
	}
	return cfg, nil
}

// Parse parses the given YAML or JSON configuration data.
func Parse(raw []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.UnmarshalStrict(raw, cfg); err != nil {
		return nil, configError("failed to parse configuration: %v", err)
	}
	return cfg, nil
}

// SetDefaults fills in unset optional values.
func (c *Config) SetDefaults() {
	if c.WorkerName == "" {
		c.WorkerName = DefaultWorkerName
	}
	if c.MaxWriteFailures == nil {
		n := DefaultMaxWriteFailures
		c.MaxWriteFailures = &n
	}
}

// Validate checks the configuration, returning all problems found.
func (c *Config) Validate() error {
	var errs *multierror.Error

	if c.Path == "" {
		errs = multierror.Append(errs, configError("missing log path"))
	}
	if c.Interval == 0 {
		errs = multierror.Append(errs, configError("missing or zero sampling interval"))
	}
	if !IsValidMode(c.Mode) {
		errs = multierror.Append(errs,
			configError("invalid collection mode %q, expected one of %s",
				c.Mode, strings.Join(Modes, ", ")))
	}
	if c.ParentName == "" {
		errs = multierror.Append(errs, configError("missing parent name"))
	}
	if c.MaxWriteFailures != nil && *c.MaxWriteFailures < 0 {
		errs = multierror.Append(errs,
			configError("invalid max-write-failures %d", *c.MaxWriteFailures))
	}

	return errs.ErrorOrNil()
}

// SampleInterval returns the sampling interval as a time.Duration.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// WriteFailureLimit returns the effective write failure limit.
func (c *Config) WriteFailureLimit() int {
	if c.MaxWriteFailures == nil {
		return DefaultMaxWriteFailures
	}
	return *c.MaxWriteFailures
}

// String returns the configuration as YAML.
func (c *Config) String() string {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(raw)
}

// IsValidMode checks if mode is a known collection mode.
func IsValidMode(mode string) bool {
	for _, m := range Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// Flags holds configuration overrides given on the command line.
type Flags struct {
	ConfigFile       string
	path             string
	interval         uint32
	mode             string
	name             string
	worker           string
	http             string
	pidFile          string
	maxWriteFailures int
}

// Register registers the configuration flags in the given flag set.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.ConfigFile, "config", "", "configuration file (YAML or JSON)")
	fs.StringVar(&f.path, "path", "", "binary log output path")
	fs.Var((*secondsValue)(&f.interval), "interval", "sampling interval in seconds")
	fs.StringVar(&f.mode, "mode", "", "collection mode, one of "+strings.Join(Modes, ", "))
	fs.StringVar(&f.name, "name", "", "process name, callsign or class name to monitor")
	fs.StringVar(&f.worker, "worker", "", "worker executable for callsign and classname modes")
	fs.StringVar(&f.http, "http", "", "address to serve reports and metrics on")
	fs.StringVar(&f.pidFile, "pidfile", "", "PID file path")
	fs.IntVar(&f.maxWriteFailures, "max-write-failures", DefaultMaxWriteFailures,
		"stop after this many consecutive log write failures, 0 for never")
}

// Apply overrides cfg with the flags explicitly set in fs.
func (f *Flags) Apply(fs *flag.FlagSet, cfg *Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "path":
			cfg.Path = f.path
		case "interval":
			cfg.Interval = f.interval
		case "mode":
			cfg.Mode = f.mode
		case "name":
			cfg.ParentName = f.name
		case "worker":
			cfg.WorkerName = f.worker
		case "http":
			cfg.HTTPEndpoint = f.http
		case "pidfile":
			cfg.PidFile = f.pidFile
		case "max-write-failures":
			n := f.maxWriteFailures
			cfg.MaxWriteFailures = &n
		}
	})
}

// secondsValue is a flag.Value for a whole number of seconds that fits
// the uint32 interval field.
type secondsValue uint32

func (s *secondsValue) Set(value string) error {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return configError("invalid interval %q, expecting 0 to %d seconds", value, uint32(math.MaxUint32))
	}
	*s = secondsValue(n)
	return nil
}

func (s *secondsValue) String() string {
	if s == nil {
		return "0"
	}
	return strconv.FormatUint(uint64(*s), 10)
}

// Resolve loads the configuration file, if any, applies the overrides in fs,
// fills in defaults and validates the result.
func (f *Flags) Resolve(fs *flag.FlagSet) (*Config, error) {
	cfg := &Config{}
	if f.ConfigFile != "" {
		var err error
		if cfg, err = Load(f.ConfigFile); err != nil {
			return nil, err
		}
	}
	f.Apply(fs, cfg)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
