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
	"github.com/intel/resource-monitor/pkg/config"
)

// CollectMode determines how monitored processes are grouped.
type CollectMode int

const (
	// CollectSingle measures all processes with the configured name as one group.
	CollectSingle CollectMode = iota
	// CollectMultiple measures each process with the configured name separately.
	CollectMultiple
	// CollectCallsign measures each worker process started with -C <name>.
	CollectCallsign
	// CollectClassName measures each worker process started with -c <name>.
	CollectClassName
)

var modeNames = map[CollectMode]string{
	CollectSingle:    config.ModeSingle,
	CollectMultiple:  config.ModeMultiple,
	CollectCallsign:  config.ModeCallsign,
	CollectClassName: config.ModeClassName,
}

// ParseCollectMode parses the given collection mode token.
func ParseCollectMode(value string) (CollectMode, error) {
	for mode, name := range modeNames {
		if name == value {
			return mode, nil
		}
	}
	return -1, monitorError("invalid collection mode %q", value)
}

// String returns the configuration token of the mode.
func (m CollectMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "<invalid collection mode>"
}

// workerFlag returns the worker argument a mode filters by.
func (m CollectMode) workerFlag() string {
	switch m {
	case CollectCallsign:
		return "-C"
	case CollectClassName:
		return "-c"
	}
	return ""
}
