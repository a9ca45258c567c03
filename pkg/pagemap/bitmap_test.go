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
	"math/bits"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestNewBitmapSizing(t *testing.T) {
	tcases := []struct {
		name     string
		pages    uint64
		capacity uint64
	}{
		{name: "empty", pages: 0, capacity: 0},
		{name: "one page", pages: 1, capacity: 64},
		{name: "exact words", pages: 640, capacity: 11 * 64},
		{name: "partial word", pages: 641, capacity: 12 * 64},
		{name: "below margin", pages: 9 * 64, capacity: 9 * 64},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.capacity, NewBitmap(tc.pages).Capacity())
		})
	}
}

func TestSetAndClear(t *testing.T) {
	bm := NewBitmap(1024)
	pfns := []uint64{0, 1, 63, 64, 65, 1023}

	bm.Mark(pfns...)
	for _, pfn := range pfns {
		require.True(t, bm.IsSet(pfn), "pfn %d", pfn)
	}
	require.False(t, bm.IsSet(2))
	require.Equal(t, uint64(len(pfns)), bm.Count())

	// marking again is idempotent
	bm.Mark(pfns...)
	require.Equal(t, uint64(len(pfns)), bm.Count())

	bm.Clear()
	require.Equal(t, uint64(0), bm.Count())
	for _, pfn := range pfns {
		require.False(t, bm.IsSet(pfn), "pfn %d", pfn)
	}
}

func TestOutOfRange(t *testing.T) {
	bm := NewBitmap(128)
	require.False(t, bm.Set(bm.Capacity()))
	require.False(t, bm.Set(1<<40))
	require.False(t, bm.IsSet(1<<40))
	require.True(t, bm.Set(bm.Capacity()-1))
	require.Equal(t, uint64(1), bm.Count())
}

func TestComplement(t *testing.T) {
	bm := NewBitmap(4096)
	bm.Mark(3, 100, 4000)
	orig := NewBitmap(4096)
	orig.Mark(3, 100, 4000)

	bm.Complement()
	require.Equal(t, bm.Capacity()-3, bm.Count())
	require.False(t, bm.IsSet(100))
	require.True(t, bm.IsSet(101))

	bm.Complement()
	require.True(t, bm.Equal(orig))
}

func TestCountMasked(t *testing.T) {
	const pages = 1 << 16
	rng := rand.New(rand.NewSource(1))

	for round := 0; round < 10; round++ {
		a := NewBitmap(pages)
		b := NewBitmap(pages)
		for i := 0; i < 5000; i++ {
			a.Set(uint64(rng.Int63n(pages)))
			b.Set(uint64(rng.Int63n(pages)))
		}

		expected := 0
		for i := range a.words {
			expected += bits.OnesCount64(a.words[i] & b.words[i])
		}
		count, err := a.CountMasked(b)
		require.Nil(t, err)
		require.Equal(t, uint64(expected), count)

		// ours minus others through the complemented mask
		b.Complement()
		diff, err := a.CountMasked(b)
		require.Nil(t, err)
		require.Equal(t, a.Count()-uint64(expected), diff)
	}
}

func TestCountMaskedSizeMismatch(t *testing.T) {
	_, err := NewBitmap(64).CountMasked(NewBitmap(6400))
	require.NotNil(t, err)
	require.True(t, errors.Is(err, ErrSizeMismatch))
}
