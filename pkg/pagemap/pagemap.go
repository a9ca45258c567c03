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

package pagemap

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// DefaultProcRoot is where procfs is normally mounted.
	DefaultProcRoot = "/proc"

	// pagemap entry layout, see Documentation/admin-guide/mm/pagemap.rst
	entrySize  = 8
	pfnMask    = uint64(1)<<55 - 1
	swappedBit = uint64(1) << 62
	presentBit = uint64(1) << 63

	// Entries read from pagemap per read(), 1 KiB at a time.
	readChunk = 128
)

// AddrRange is a virtual address range [Start, End) of a process.
type AddrRange struct {
	Start uint64
	End   uint64
}

// Pages returns the number of pages of the given size in the range.
func (r AddrRange) Pages(pageSize uint64) uint64 {
	if r.End <= r.Start {
		return 0
	}
	return (r.End - r.Start) / pageSize
}

// ParseMaps parses the content of /proc/<pid>/maps into address ranges.
func ParseMaps(data []byte) []AddrRange {
	ranges := []AddrRange{}
	for _, line := range strings.Split(string(data), "\n") {
		// Example of /proc/pid/maps lines:
		// 55d74cf13000-55d74cf14000 rw-p 00003000 fe:03 1194719   /usr/bin/python3.8
		// ffffffffff600000-ffffffffff601000 --xp 00000000 00:00 0  [vsyscall]
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) >= 6 && fields[5] == "[vsyscall]" {
			continue
		}
		dash := strings.IndexByte(fields[0], '-')
		if dash <= 0 {
			continue
		}
		start, err := strconv.ParseUint(fields[0][:dash], 16, 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseUint(fields[0][dash+1:], 16, 64)
		if err != nil || end <= start {
			continue
		}
		ranges = append(ranges, AddrRange{Start: start, End: end})
	}
	return ranges
}

// Reader marks the physical page frames mapped by processes into bitmaps.
// A Reader reuses its read buffer and must not be used concurrently.
type Reader struct {
	root     string
	pageSize uint64
	buf      []byte
}

// NewReader creates a Reader for procfs mounted at root.
func NewReader(root string) *Reader {
	if root == "" {
		root = DefaultProcRoot
	}
	return &Reader{
		root:     root,
		pageSize: uint64(os.Getpagesize()),
		buf:      make([]byte, readChunk*entrySize),
	}
}

// ReadMaps returns the address ranges of a process.
func (r *Reader) ReadMaps(pid int) ([]AddrRange, error) {
	data, err := os.ReadFile(r.path(pid, "maps"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read maps of process %d", pid)
	}
	return ParseMaps(data), nil
}

// MarkProcess marks every present physical page frame mapped by the
// process. Pages marked before an error stay marked. Processes without
// mappings, kernel threads among them, mark nothing.
func (r *Reader) MarkProcess(pid int, bm *Bitmap) error {
	ranges, err := r.ReadMaps(pid)
	if err != nil {
		return err
	}
	if len(ranges) == 0 {
		return nil
	}

	pm, err := os.Open(r.path(pid, "pagemap"))
	if err != nil {
		return errors.Wrapf(err, "failed to open pagemap of process %d", pid)
	}
	defer pm.Close()

	if err := r.markRanges(pm, ranges, bm); err != nil {
		return errors.Wrapf(err, "failed to read pagemap of process %d", pid)
	}
	return nil
}

// markRanges reads the pagemap entries of the given ranges from pm.
func (r *Reader) markRanges(pm io.ReaderAt, ranges []AddrRange, bm *Bitmap) error {
	for _, ar := range ranges {
		page := ar.Start / r.pageSize
		left := ar.Pages(r.pageSize)
		for left > 0 {
			want := uint64(readChunk)
			if want > left {
				want = left
			}
			buf := r.buf[:want*entrySize]
			n, err := pm.ReadAt(buf, int64(page*entrySize))
			got := uint64(n) / entrySize
			for i := uint64(0); i < got; i++ {
				markEntry(binary.LittleEndian.Uint64(buf[i*entrySize:]), bm)
			}
			if got < want {
				if err == nil || err == io.EOF {
					// the mapping shrunk or disappeared under us
					break
				}
				return err
			}
			page += got
			left -= got
		}
	}
	return nil
}

// markEntry marks the page frame of a single pagemap entry if it is resident.
func markEntry(entry uint64, bm *Bitmap) {
	if entry&presentBit == 0 || entry&swappedBit != 0 {
		return
	}
	// PFNs read as zero without CAP_SYS_ADMIN.
	if pfn := entry & pfnMask; pfn != 0 {
		bm.Set(pfn)
	}
}

func (r *Reader) path(pid int, entry string) string {
	return filepath.Join(r.root, strconv.Itoa(pid), entry)
}
