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
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/intel/resource-monitor/pkg/binlog"
	"github.com/intel/resource-monitor/pkg/pagemap"
	"github.com/intel/resource-monitor/pkg/procinfo"
)

// fakeSystem is an in-memory process table with per-process page frames.
type fakeSystem struct {
	sync.Mutex
	procs   []procinfo.Process
	pages   map[int][]uint64
	failing map[int]error
	snapErr error
	marked  []int
}

func newFakeSystem() *fakeSystem {
	return &fakeSystem{
		pages:   map[int][]uint64{},
		failing: map[int]error{},
	}
}

func (f *fakeSystem) add(pid, ppid int, name string, pages []uint64, args ...string) *fakeSystem {
	f.Lock()
	defer f.Unlock()
	cmdline := append([]string{"/usr/bin/" + name}, args...)
	f.procs = append(f.procs, procinfo.Process{
		Pid:     pid,
		PPid:    ppid,
		Name:    name,
		Comm:    name,
		Cmdline: cmdline,
	})
	f.pages[pid] = pages
	return f
}

func (f *fakeSystem) Snapshot() (*procinfo.Snapshot, error) {
	f.Lock()
	defer f.Unlock()
	if f.snapErr != nil {
		return nil, f.snapErr
	}
	return procinfo.NewSnapshotFrom(f.procs), nil
}

func (f *fakeSystem) MarkPages(pid int, bm *pagemap.Bitmap) error {
	f.Lock()
	defer f.Unlock()
	f.marked = append(f.marked, pid)
	if err, ok := f.failing[pid]; ok {
		return err
	}
	pages, ok := f.pages[pid]
	if !ok {
		return errors.Wrapf(&os.PathError{Op: "open", Path: "maps", Err: os.ErrNotExist},
			"failed to read maps of process %d", pid)
	}
	bm.Mark(pages...)
	return nil
}

// fakeWriter records appended samples, failing when asked to.
type fakeWriter struct {
	sync.Mutex
	samples []*binlog.Sample
	fail    func(n int) bool
	calls   int
}

func (w *fakeWriter) Append(s *binlog.Sample) error {
	w.Lock()
	defer w.Unlock()
	w.calls++
	if w.fail != nil && w.fail(w.calls) {
		return errors.New("disk full")
	}
	w.samples = append(w.samples, s)
	return nil
}

func (w *fakeWriter) written() []*binlog.Sample {
	w.Lock()
	defer w.Unlock()
	return append([]*binlog.Sample{}, w.samples...)
}

func (w *fakeWriter) attempts() int {
	w.Lock()
	defer w.Unlock()
	return w.calls
}
