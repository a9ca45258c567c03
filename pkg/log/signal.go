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
	"os"
	"os/signal"
)

// debugToggle is the active debug toggling signal handler, if any.
var debugToggle *toggler

type toggler struct {
	sigC  chan os.Signal
	doneC chan struct{}
}

// ToggleDebug flips forced full debugging and returns the new state.
func ToggleDebug() bool {
	log.Lock()
	defer log.Unlock()
	log.forced = !log.forced
	return log.forced
}

// SetupDebugToggleSignal makes the given signals toggle forced full debugging.
// Any previously set up handler is replaced.
func SetupDebugToggleSignal(sigs ...os.Signal) {
	log.Lock()
	stopToggler()
	t := &toggler{
		sigC:  make(chan os.Signal, 1),
		doneC: make(chan struct{}),
	}
	debugToggle = t
	log.Unlock()

	signal.Notify(t.sigC, sigs...)
	go t.run()
}

// ClearDebugToggleSignal stops toggling debugging on signals.
func ClearDebugToggleSignal() {
	log.Lock()
	defer log.Unlock()
	stopToggler()
}

func (t *toggler) run() {
	for {
		select {
		case <-t.doneC:
			return
		case <-t.sigC:
			if ToggleDebug() {
				deflog.Warn("forced full debugging enabled")
			} else {
				deflog.Warn("forced full debugging disabled")
			}
		}
	}
}

// stopToggler must be called with log locked.
func stopToggler() {
	if debugToggle == nil {
		return
	}
	signal.Stop(debugToggle.sigC)
	close(debugToggle.doneC)
	debugToggle = nil
}
