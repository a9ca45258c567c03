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
	"math"
	"os"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/intel/resource-monitor/pkg/binlog"
	logger "github.com/intel/resource-monitor/pkg/log"
	"github.com/intel/resource-monitor/pkg/pagemap"
	"github.com/intel/resource-monitor/pkg/procinfo"
)

// measurer computes the virtual and unique set sizes of groups.
type measurer struct {
	sys    System
	ours   *pagemap.Bitmap
	others *pagemap.Bitmap
	warn   logger.Logger
}

func newMeasurer(sys System, pageCount uint64) *measurer {
	return &measurer{
		sys:    sys,
		ours:   pagemap.NewBitmap(pageCount),
		others: pagemap.NewBitmap(pageCount),
		warn:   logger.RateLimit(log, logger.Interval(time.Minute)),
	}
}

// measure returns the number of pages mapped by the group and the number
// of those that no process outside the group maps.
func (m *measurer) measure(snap *procinfo.Snapshot, g *group) binlog.Entry {
	m.ours.Clear()
	m.others.Clear()

	members := g.members(snap)
	for _, pid := range members.pids {
		m.mark(pid, m.ours)
	}
	for _, p := range snap.Processes() {
		if !members.contains(p.Pid) {
			m.mark(p.Pid, m.others)
		}
	}
	m.others.Complement()

	vss := m.ours.Count()
	uss, err := m.ours.CountMasked(m.others)
	if err != nil {
		log.Panic("%s: %v", g.label, err)
	}

	return binlog.Entry{
		Label: g.label,
		VSS:   clamp(vss),
		USS:   clamp(uss),
	}
}

func (m *measurer) mark(pid int, bm *pagemap.Bitmap) {
	err := m.sys.MarkPages(pid, bm)
	if err == nil {
		return
	}
	if processGone(err) {
		log.Debug("process %d is gone: %v", pid, err)
		return
	}
	m.warn.Warn("failed to read pages of process %d: %v", pid, err)
}

// processGone checks if err comes from a process that exited or has no
// address space left to read.
func processGone(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ESRCH)
}

func clamp(pages uint64) uint32 {
	if pages > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(pages)
}
