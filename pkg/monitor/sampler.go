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
	"sync"
	"sync/atomic"
	"time"

	"github.com/intel/resource-monitor/pkg/binlog"
	logger "github.com/intel/resource-monitor/pkg/log"
)

// State is the lifecycle state of a Sampler.
type State int32

const (
	// StateIdle is the state of a sampler that has not been started.
	StateIdle State = iota
	// StateRunning is the state of an active sampler.
	StateRunning
	// StateStopping is the state of a sampler asked to stop.
	StateStopping
	// StateStopped is the state of a sampler that has exited.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return "<unknown sampler state>"
}

// TickFunc takes one sample.
type TickFunc func(now time.Time) *binlog.Sample

// LogWriter persists samples.
type LogWriter interface {
	Append(*binlog.Sample) error
}

// Options control sampling.
type Options struct {
	// Interval between samples.
	Interval time.Duration
	// MaxWriteFailures stops sampling after this many consecutive write
	// failures. 0 never stops.
	MaxWriteFailures int
	// Now returns the current time.
	Now func() time.Time
}

// Sampler takes a sample once per interval and writes it to a log. The
// first sample is taken immediately when started.
type Sampler struct {
	samples uint64 // accessed atomically, keep 64-bit aligned
	failed  uint64 // ditto

	sync.Mutex
	opts     Options
	tick     TickFunc
	writer   LogWriter
	state    State
	stopC    chan struct{}
	doneC    chan struct{}
	err      error
	failures int
	warn     logger.Logger
}

// NewSampler creates a sampler writing samples taken by tick to w.
func NewSampler(tick TickFunc, w LogWriter, opts Options) *Sampler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Sampler{
		opts:   opts,
		tick:   tick,
		writer: w,
		stopC:  make(chan struct{}),
		doneC:  make(chan struct{}),
		warn:   logger.RateLimit(log, logger.Interval(time.Minute)),
	}
}

// Start starts sampling in the background.
func (s *Sampler) Start() error {
	s.Lock()
	defer s.Unlock()

	if s.state != StateIdle {
		return monitorError("can't start sampler in state %s", s.state)
	}
	if s.opts.Interval <= 0 {
		return monitorError("invalid sampling interval %v", s.opts.Interval)
	}

	s.state = StateRunning
	go s.run()

	return nil
}

// Stop stops sampling and waits for the sampler to exit. A sample being
// taken is completed and written first.
func (s *Sampler) Stop() {
	s.Lock()
	switch s.state {
	case StateIdle:
		s.state = StateStopped
		close(s.doneC)
		s.Unlock()
		return
	case StateRunning:
		s.state = StateStopping
		close(s.stopC)
	}
	s.Unlock()

	<-s.doneC
}

// Done returns a channel that is closed once the sampler has exited.
func (s *Sampler) Done() <-chan struct{} {
	return s.doneC
}

// Err returns the error that made the sampler give up, if any.
func (s *Sampler) Err() error {
	s.Lock()
	defer s.Unlock()
	return s.err
}

// State returns the current state of the sampler.
func (s *Sampler) State() State {
	s.Lock()
	defer s.Unlock()
	return s.state
}

// Samples returns the number of samples written.
func (s *Sampler) Samples() uint64 {
	return atomic.LoadUint64(&s.samples)
}

// WriteFailures returns the total number of failed writes.
func (s *Sampler) WriteFailures() uint64 {
	return atomic.LoadUint64(&s.failed)
}

func (s *Sampler) run() {
	log.Debug("sampler running with interval %v", s.opts.Interval)

	defer func() {
		s.Lock()
		s.state = StateStopped
		s.Unlock()
		close(s.doneC)
		log.Debug("sampler stopped")
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-s.stopC:
			return
		case <-timer.C:
		}

		select {
		case <-s.stopC:
			return
		default:
		}

		if err := s.sampleOnce(); err != nil {
			log.Error("%v", err)
			s.Lock()
			s.err = err
			s.Unlock()
			return
		}

		timer.Reset(s.opts.Interval)
	}
}

// sampleOnce takes and writes one sample. It returns an error once too
// many consecutive writes have failed.
func (s *Sampler) sampleOnce() error {
	sample := s.tick(s.opts.Now())

	if err := s.writer.Append(sample); err != nil {
		atomic.AddUint64(&s.failed, 1)
		s.failures++
		s.warn.Warn("failed to write sample: %v", err)
		if s.opts.MaxWriteFailures > 0 && s.failures >= s.opts.MaxWriteFailures {
			return monitorError("giving up after %d consecutive write failures: %v",
				s.failures, err)
		}
		return nil
	}

	s.failures = 0
	atomic.AddUint64(&s.samples, 1)
	return nil
}
