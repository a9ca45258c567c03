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
	"strconv"

	"github.com/intel/resource-monitor/pkg/procinfo"
)

// group is a set of process trees measured together.
type group struct {
	label string
	roots []int
}

// members is the union of the process trees of a group.
type members struct {
	pids []int
	set  map[int]struct{}
}

func (g *group) members(snap *procinfo.Snapshot) *members {
	m := &members{set: map[int]struct{}{}}
	for _, root := range g.roots {
		for _, pid := range snap.Tree(root).Pids() {
			if _, ok := m.set[pid]; !ok {
				m.set[pid] = struct{}{}
				m.pids = append(m.pids, pid)
			}
		}
	}
	return m
}

func (m *members) contains(pid int) bool {
	_, ok := m.set[pid]
	return ok
}

// selector picks the groups to measure from a process table.
type selector func(snap *procinfo.Snapshot) []*group

// newSelector returns the group selector for the given mode.
func newSelector(mode CollectMode, name, worker string) (selector, error) {
	switch mode {
	case CollectSingle:
		return func(snap *procinfo.Snapshot) []*group {
			return selectSingle(snap, name)
		}, nil
	case CollectMultiple:
		return func(snap *procinfo.Snapshot) []*group {
			return selectMultiple(snap, name)
		}, nil
	case CollectCallsign, CollectClassName:
		flag := mode.workerFlag()
		return func(snap *procinfo.Snapshot) []*group {
			return selectWorkers(snap, worker, flag, name)
		}, nil
	}
	return nil, monitorError("invalid collection mode %d", mode)
}

func selectSingle(snap *procinfo.Snapshot, name string) []*group {
	procs := snap.FindByName(name)
	if len(procs) == 0 {
		return nil
	}
	g := &group{label: name}
	for _, p := range procs {
		g.roots = append(g.roots, p.Pid)
	}
	return []*group{g}
}

func selectMultiple(snap *procinfo.Snapshot, name string) []*group {
	var groups []*group
	for _, p := range snap.FindByName(name) {
		groups = append(groups, &group{
			label: pidLabel(name, p.Pid),
			roots: []int{p.Pid},
		})
	}
	return groups
}

func selectWorkers(snap *procinfo.Snapshot, worker, flag, name string) []*group {
	var groups []*group
	for _, p := range snap.FindByName(worker) {
		if value, ok := procinfo.ArgumentValue(p.Cmdline, flag); !ok || value != name {
			continue
		}
		groups = append(groups, &group{
			label: pidLabel(name, p.Pid),
			roots: []int{p.Pid},
		})
	}
	return groups
}

func pidLabel(name string, pid int) string {
	return name + " (" + strconv.Itoa(pid) + ")"
}
