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
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testMaps = `55d74cf13000-55d74cf14000 rw-p 00003000 fe:03 1194719   /usr/bin/python3.8
7ffd1d2a1000-7ffd1d2c2000 rw-p 00000000 00:00 0                          [stack]
garbage line
ffffffffff600000-ffffffffff601000 --xp 00000000 00:00 0                  [vsyscall]
7ffd1d2c2000-7ffd1d2c1000 rw-p 00000000 00:00 0
`

func TestParseMaps(t *testing.T) {
	expected := []AddrRange{
		{Start: 0x55d74cf13000, End: 0x55d74cf14000},
		{Start: 0x7ffd1d2a1000, End: 0x7ffd1d2c2000},
	}
	if diff := cmp.Diff(expected, ParseMaps([]byte(testMaps))); diff != "" {
		t.Errorf("unexpected ranges (-want +got):\n%s", diff)
	}
	require.Equal(t, 0, len(ParseMaps(nil)))
}

func TestMarkEntry(t *testing.T) {
	tcases := []struct {
		name   string
		entry  uint64
		marked []uint64
	}{
		{name: "present", entry: presentBit | 17, marked: []uint64{17}},
		{name: "not present", entry: 17},
		{name: "swapped", entry: presentBit | swappedBit | 17},
		{name: "zero pfn", entry: presentBit},
		{name: "flag bits ignored", entry: presentBit | 1<<55 | 1<<61 | 42, marked: []uint64{42}},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			bm := NewBitmap(1024)
			markEntry(tc.entry, bm)
			require.Equal(t, uint64(len(tc.marked)), bm.Count())
			for _, pfn := range tc.marked {
				require.True(t, bm.IsSet(pfn))
			}
		})
	}
}

// pagemapImage creates a sparse pagemap image with the given entries by page index.
func pagemapImage(entries map[uint64]uint64) []byte {
	size := uint64(0)
	for page := range entries {
		if page+1 > size {
			size = page + 1
		}
	}
	buf := make([]byte, size*entrySize)
	for page, entry := range entries {
		binary.LittleEndian.PutUint64(buf[page*entrySize:], entry)
	}
	return buf
}

func TestMarkRanges(t *testing.T) {
	const pageSize = 4096
	r := &Reader{pageSize: pageSize, buf: make([]byte, readChunk*entrySize)}

	entries := map[uint64]uint64{
		2:   presentBit | 100,
		3:   presentBit | 101,
		4:   swappedBit | 102,
		300: presentBit | 300,
		301: presentBit | 301,
		302: presentBit | 302,
	}
	ranges := []AddrRange{
		{Start: 2 * pageSize, End: 5 * pageSize},
		// spans several read chunks
		{Start: 10 * pageSize, End: 302 * pageSize},
		// runs past the end of the image
		{Start: 302 * pageSize, End: 1000 * pageSize},
	}

	bm := NewBitmap(1024)
	require.Nil(t, r.markRanges(bytes.NewReader(pagemapImage(entries)), ranges, bm))
	for _, pfn := range []uint64{100, 101, 300, 301, 302} {
		require.True(t, bm.IsSet(pfn), "pfn %d", pfn)
	}
	require.False(t, bm.IsSet(102))
	require.Equal(t, uint64(5), bm.Count())
}

func TestMarkProcess(t *testing.T) {
	pageSize := uint64(os.Getpagesize())
	root := t.TempDir()
	dir := filepath.Join(root, strconv.Itoa(42))
	require.Nil(t, os.MkdirAll(dir, 0755))

	maps := "0-" + strconv.FormatUint(4*pageSize, 16) + " r--p 00000000 00:00 0\n"
	require.Nil(t, os.WriteFile(filepath.Join(dir, "maps"), []byte(maps), 0644))
	image := pagemapImage(map[uint64]uint64{
		0: presentBit | 7,
		3: presentBit | 9,
	})
	require.Nil(t, os.WriteFile(filepath.Join(dir, "pagemap"), image, 0644))

	r := NewReader(root)
	bm := NewBitmap(64)
	require.Nil(t, r.MarkProcess(42, bm))
	require.True(t, bm.IsSet(7))
	require.True(t, bm.IsSet(9))
	require.Equal(t, uint64(2), bm.Count())

	require.NotNil(t, r.MarkProcess(43, bm))
}

func TestMarkProcessWithoutMappings(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, strconv.Itoa(2))
	require.Nil(t, os.MkdirAll(dir, 0755))
	// kernel threads have an empty maps and no readable pagemap
	require.Nil(t, os.WriteFile(filepath.Join(dir, "maps"), nil, 0644))

	bm := NewBitmap(64)
	require.Nil(t, NewReader(root).MarkProcess(2, bm))
	require.Equal(t, uint64(0), bm.Count())
}
