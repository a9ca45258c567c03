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

	"github.com/pkg/errors"
)

const (
	// wordBits is the number of page frames tracked by a single bitmap word.
	wordBits = 64
	// marginDivisor sets the extra capacity allocated on top of the
	// physical page count: Linux does not count the lowest page frames
	// it reserves for itself, but still reports the highest ones.
	marginDivisor = 10
)

// ErrSizeMismatch is returned when bitmaps of different capacity are combined.
var ErrSizeMismatch = errors.New("pagemap: bitmap size mismatch")

// Bitmap is a fixed-capacity set of physical page frame numbers.
type Bitmap struct {
	words []uint64
}

// NewBitmap creates a bitmap for pageCount physical pages, plus margin.
func NewBitmap(pageCount uint64) *Bitmap {
	words := pageCount / wordBits
	if pageCount%wordBits != 0 {
		words++
	}
	words += words / marginDivisor
	return &Bitmap{
		words: make([]uint64, words),
	}
}

// Capacity returns the number of page frames the bitmap can hold.
func (b *Bitmap) Capacity() uint64 {
	return uint64(len(b.words)) * wordBits
}

// Set marks a page frame. Frames beyond capacity are ignored and false is returned.
func (b *Bitmap) Set(pfn uint64) bool {
	idx := pfn / wordBits
	if idx >= uint64(len(b.words)) {
		return false
	}
	b.words[idx] |= 1 << (pfn % wordBits)
	return true
}

// Mark marks all given page frames, silently ignoring the ones out of range.
func (b *Bitmap) Mark(pfns ...uint64) {
	for _, pfn := range pfns {
		b.Set(pfn)
	}
}

// IsSet checks if the page frame is marked.
func (b *Bitmap) IsSet(pfn uint64) bool {
	idx := pfn / wordBits
	if idx >= uint64(len(b.words)) {
		return false
	}
	return b.words[idx]&(1<<(pfn%wordBits)) != 0
}

// Clear unmarks all page frames.
func (b *Bitmap) Clear() {
	for i := range b.words {
		b.words[i] = 0
	}
}

// Complement inverts every bit of the bitmap in place.
func (b *Bitmap) Complement() {
	for i := range b.words {
		b.words[i] = ^b.words[i]
	}
}

// Count returns the number of marked page frames.
func (b *Bitmap) Count() uint64 {
	count := 0
	for _, w := range b.words {
		count += bits.OnesCount64(w)
	}
	return uint64(count)
}

// CountMasked returns the number of page frames marked both in b and mask.
func (b *Bitmap) CountMasked(mask *Bitmap) (uint64, error) {
	if len(mask.words) != len(b.words) {
		return 0, errors.Wrapf(ErrSizeMismatch, "capacity %d vs. %d",
			b.Capacity(), mask.Capacity())
	}
	count := 0
	for i, w := range b.words {
		count += bits.OnesCount64(w & mask.words[i])
	}
	return uint64(count), nil
}

// Equal checks if two bitmaps have the same capacity and content.
func (b *Bitmap) Equal(o *Bitmap) bool {
	if len(b.words) != len(o.words) {
		return false
	}
	for i, w := range b.words {
		if o.words[i] != w {
			return false
		}
	}
	return true
}
