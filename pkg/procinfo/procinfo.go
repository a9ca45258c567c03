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

package procinfo

import (
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/prometheus/procfs"

	logger "github.com/intel/resource-monitor/pkg/log"
)

var log = logger.NewLogger("procinfo")

// Process describes a single process at the time a Snapshot was taken.
type Process struct {
	Pid     int
	PPid    int
	Name    string   // basename of argv[0], or Comm without a command line
	Comm    string   // kernel command name
	Cmdline []string // may be empty for kernel threads and zombies
}

// Snapshot is an immutable view of the process table.
type Snapshot struct {
	procs    []Process
	byPid    map[int]int
	children map[int][]int
}

// NewSnapshot reads the process table from procfs mounted at root.
func NewSnapshot(root string) (*Snapshot, error) {
	if root == "" {
		root = procfs.DefaultMountPoint
	}
	fs, err := procfs.NewFS(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open procfs at %q", root)
	}
	all, err := fs.AllProcs()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list processes")
	}

	procs := make([]Process, 0, len(all))
	for _, p := range all {
		stat, err := p.Stat()
		if err != nil {
			// exited since listing
			log.Debug("skipping process %d: %v", p.PID, err)
			continue
		}
		cmdline, err := p.CmdLine()
		if err != nil {
			cmdline = nil
		}
		procs = append(procs, Process{
			Pid:     p.PID,
			PPid:    stat.PPID,
			Name:    processName(stat.Comm, cmdline),
			Comm:    stat.Comm,
			Cmdline: cmdline,
		})
	}

	return NewSnapshotFrom(procs), nil
}

// NewSnapshotFrom creates a Snapshot of the given processes.
func NewSnapshotFrom(procs []Process) *Snapshot {
	s := &Snapshot{
		procs:    make([]Process, len(procs)),
		byPid:    make(map[int]int, len(procs)),
		children: make(map[int][]int),
	}
	copy(s.procs, procs)
	sort.SliceStable(s.procs, func(i, j int) bool { return s.procs[i].Pid < s.procs[j].Pid })

	for idx, p := range s.procs {
		s.byPid[p.Pid] = idx
		if p.PPid != p.Pid {
			s.children[p.PPid] = append(s.children[p.PPid], p.Pid)
		}
	}
	return s
}

func processName(comm string, cmdline []string) string {
	if len(cmdline) > 0 && cmdline[0] != "" {
		return filepath.Base(cmdline[0])
	}
	return comm
}

// Processes returns all processes in the snapshot ordered by pid.
func (s *Snapshot) Processes() []Process {
	return s.procs
}

// Len returns the number of processes in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.procs)
}

// Lookup returns the process with the given pid.
func (s *Snapshot) Lookup(pid int) (Process, bool) {
	idx, ok := s.byPid[pid]
	if !ok {
		return Process{}, false
	}
	return s.procs[idx], true
}

// FindByName returns all processes whose name or command name is name.
func (s *Snapshot) FindByName(name string) []Process {
	var found []Process
	for _, p := range s.procs {
		if p.Name == name || p.Comm == name {
			found = append(found, p)
		}
	}
	return found
}

// Tree returns the process tree rooted at pid.
func (s *Snapshot) Tree(pid int) *Tree {
	t := &Tree{
		root: pid,
		pids: map[int]struct{}{},
	}
	queue := []int{pid}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if _, seen := t.pids[p]; seen {
			continue
		}
		t.pids[p] = struct{}{}
		t.order = append(t.order, p)
		queue = append(queue, s.children[p]...)
	}
	return t
}

// Tree is a process and all its transitive descendants.
type Tree struct {
	root  int
	pids  map[int]struct{}
	order []int
}

// Root returns the pid of the root process.
func (t *Tree) Root() int {
	return t.root
}

// Pids returns the pids of the tree in breadth-first order, root first.
func (t *Tree) Pids() []int {
	return t.order
}

// Contains checks if the process belongs to the tree.
func (t *Tree) Contains(pid int) bool {
	_, ok := t.pids[pid]
	return ok
}

// ArgumentValue returns the argument following the first occurrence of flag.
func ArgumentValue(cmdline []string, flag string) (string, bool) {
	for i, arg := range cmdline {
		if arg == flag {
			if i+1 < len(cmdline) {
				return cmdline[i+1], true
			}
			return "", false
		}
	}
	return "", false
}
