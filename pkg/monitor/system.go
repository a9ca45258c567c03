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
	"github.com/intel/resource-monitor/pkg/pagemap"
	"github.com/intel/resource-monitor/pkg/procinfo"
)

// System provides the process table and the page frames of processes.
type System interface {
	// Snapshot returns the current process table.
	Snapshot() (*procinfo.Snapshot, error)
	// MarkPages marks the physical page frames mapped by the process.
	MarkPages(pid int, bm *pagemap.Bitmap) error
}

// host is the System of the running kernel.
type host struct {
	root   string
	reader *pagemap.Reader
}

// NewSystem returns the System for procfs mounted at procRoot.
func NewSystem(procRoot string) System {
	if procRoot == "" {
		procRoot = pagemap.DefaultProcRoot
	}
	return &host{
		root:   procRoot,
		reader: pagemap.NewReader(procRoot),
	}
}

func (h *host) Snapshot() (*procinfo.Snapshot, error) {
	return procinfo.NewSnapshot(h.root)
}

func (h *host) MarkPages(pid int, bm *pagemap.Bitmap) error {
	return h.reader.MarkProcess(pid, bm)
}
