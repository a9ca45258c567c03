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

package monitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/intel/resource-monitor/pkg/binlog"
	"github.com/intel/resource-monitor/pkg/config"
	logger "github.com/intel/resource-monitor/pkg/log"
	"github.com/intel/resource-monitor/pkg/pagemap"
	"github.com/intel/resource-monitor/pkg/report"
)

var log = logger.NewLogger("monitor")

// Monitor periodically measures the memory of a set of processes and
// logs the results.
type Monitor struct {
	sync.Mutex
	cfg       *config.Config
	mode      CollectMode
	sys       System
	now       func() time.Time
	interval  time.Duration
	pageCount uint64
	groups    selector
	registry  *Registry
	measurer  *measurer
	writer    *binlog.Writer
	sampler   *Sampler
	last      *binlog.Sample
	warn      logger.Logger
}

// Option is an option for a Monitor.
type Option func(*Monitor) error

// WithSystem sets the System to take measurements from.
func WithSystem(sys System) Option {
	return func(m *Monitor) error {
		m.sys = sys
		return nil
	}
}

// WithClock sets the function used to get the sample timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) error {
		m.now = now
		return nil
	}
}

// WithInterval overrides the configured sampling interval.
func WithInterval(interval time.Duration) Option {
	return func(m *Monitor) error {
		if interval <= 0 {
			return monitorError("invalid sampling interval %v", interval)
		}
		m.interval = interval
		return nil
	}
}

// New creates a monitor for the given configuration.
func New(cfg *config.Config, options ...Option) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := ParseCollectMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	worker := cfg.WorkerName
	if worker == "" {
		worker = config.DefaultWorkerName
	}
	groups, err := newSelector(mode, cfg.ParentName, worker)
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		cfg:      cfg,
		mode:     mode,
		now:      time.Now,
		interval: cfg.SampleInterval(),
		groups:   groups,
		registry: NewRegistry(),
		warn:     logger.RateLimit(log, logger.Interval(time.Minute)),
	}
	for _, o := range options {
		if err := o(m); err != nil {
			return nil, err
		}
	}
	if m.sys == nil {
		m.sys = NewSystem("")
	}

	m.pageCount = cfg.PageFrames
	if m.pageCount == 0 {
		if m.pageCount, err = pagemap.PhysicalPageCount(); err != nil {
			return nil, monitorError("failed to get physical page count: %v", err)
		}
	}
	m.measurer = newMeasurer(m.sys, m.pageCount)

	log.Info("monitoring %q in %s mode, %d physical pages, interval %v",
		cfg.ParentName, mode, m.pageCount, m.interval)

	return m, nil
}

// Start creates the log and starts sampling.
func (m *Monitor) Start() error {
	m.Lock()
	defer m.Unlock()

	if m.sampler != nil {
		return monitorError("monitor already started")
	}

	w, err := binlog.Create(m.cfg.Path)
	if err != nil {
		return err
	}
	m.writer = w
	m.sampler = NewSampler(m.collect, w, Options{
		Interval:         m.interval,
		MaxWriteFailures: m.cfg.WriteFailureLimit(),
		Now:              m.now,
	})
	if err := m.sampler.Start(); err != nil {
		w.Close()
		return err
	}

	log.Info("logging samples to %s", m.cfg.Path)
	return nil
}

// Stop stops sampling and closes the log.
func (m *Monitor) Stop() {
	m.Lock()
	sampler, writer := m.sampler, m.writer
	m.Unlock()

	if sampler == nil {
		return
	}
	sampler.Stop()
	if err := writer.Close(); err != nil {
		log.Error("failed to close %s: %v", m.cfg.Path, err)
	}
}

// Done returns a channel closed when sampling has stopped.
func (m *Monitor) Done() <-chan struct{} {
	m.Lock()
	defer m.Unlock()
	if m.sampler == nil {
		return nil
	}
	return m.sampler.Done()
}

// Err returns the error that stopped sampling, if any.
func (m *Monitor) Err() error {
	m.Lock()
	defer m.Unlock()
	if m.sampler == nil {
		return nil
	}
	return m.sampler.Err()
}

// collect takes one sample of all monitored groups. It reuses the bitmaps
// of the measurer, so only the sampler goroutine may call it.
func (m *Monitor) collect(now time.Time) *binlog.Sample {
	sample := &binlog.Sample{
		Timestamp: uint32(now.Unix()),
	}

	snap, err := m.sys.Snapshot()
	if err != nil {
		m.warn.Warn("failed to read process table: %v", err)
		return sample
	}

	for _, g := range m.groups(snap) {
		if m.registry.Register(g.label) {
			log.Info("tracking %s", g.label)
		}
		sample.Entries = append(sample.Entries, m.measurer.measure(snap, g))
	}

	if log.DebugEnabled() {
		for _, e := range sample.Entries {
			log.Debug("%s: vss %d, uss %d pages", e.Label, e.VSS, e.USS)
		}
	}

	m.Lock()
	m.last = sample
	m.Unlock()

	return sample
}

// CompileReport renders the log written so far as a tab-separated table.
func (m *Monitor) CompileReport() (string, error) {
	return report.CompileFile(m.cfg.Path, m.registry.Labels())
}

// Registry returns the label registry of the monitor.
func (m *Monitor) Registry() *Registry {
	return m.registry
}

// Mode returns the collection mode of the monitor.
func (m *Monitor) Mode() CollectMode {
	return m.mode
}

// PageCount returns the number of physical pages the bitmaps were sized for.
func (m *Monitor) PageCount() uint64 {
	return m.pageCount
}

// LastSample returns the most recent sample, or nil.
func (m *Monitor) LastSample() *binlog.Sample {
	m.Lock()
	defer m.Unlock()
	return m.last
}

// Stats returns the number of written samples and failed writes.
func (m *Monitor) Stats() (samples, failures uint64) {
	m.Lock()
	sampler := m.sampler
	m.Unlock()
	if sampler == nil {
		return 0, 0
	}
	return sampler.Samples(), sampler.WriteFailures()
}

func monitorError(format string, args ...interface{}) error {
	return fmt.Errorf("monitor: "+format, args...)
}
