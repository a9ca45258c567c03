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

// Package binlog reads and writes the sample log, a plain concatenation of
// records. Every integer is a little-endian uint32:
//
//	record: timestamp (Unix seconds), entry count, entries...
//	entry:  label length, label bytes, vss pages, uss pages
//
// Labels are limited to MaxNameLength bytes. The writer refuses longer
// ones, and the decoder stops at a record claiming one, the same way it
// stops at a torn trailing record. Logs written by other producers must
// keep to this limit to be read in full.
package binlog

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const (
	// MaxNameLength is the longest label in bytes that a record may carry.
	MaxNameLength = 64 * 1024

	headerSize     = 8 // timestamp, entry count
	entryFixedSize = 12
)

// ErrNameTooLong is returned when encoding an entry with an oversized label.
var ErrNameTooLong = errors.New("binlog: label too long")

// Entry is the measurement of a single process group.
type Entry struct {
	Label string
	VSS   uint32
	USS   uint32
}

// Sample is the set of measurements taken during one tick.
type Sample struct {
	Timestamp uint32
	Entries   []Entry
}

// Size returns the encoded size of the sample in bytes.
func (s *Sample) Size() int {
	size := headerSize
	for _, e := range s.Entries {
		size += entryFixedSize + len(e.Label)
	}
	return size
}

// AppendRecord appends the wire encoding of the sample to buf.
func AppendRecord(buf []byte, s *Sample) ([]byte, error) {
	le := binary.LittleEndian
	var word [4]byte

	put := func(v uint32) {
		le.PutUint32(word[:], v)
		buf = append(buf, word[:]...)
	}

	put(s.Timestamp)
	put(uint32(len(s.Entries)))
	for _, e := range s.Entries {
		if len(e.Label) > MaxNameLength {
			return nil, errors.Wrapf(ErrNameTooLong, "%d bytes", len(e.Label))
		}
		put(uint32(len(e.Label)))
		buf = append(buf, e.Label...)
		put(e.VSS)
		put(e.USS)
	}
	return buf, nil
}

// Decoder reads samples from a binary log. Any short read ends the stream.
type Decoder struct {
	r         *bufio.Reader
	truncated bool
	err       error
	word      [4]byte
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r: bufio.NewReader(r),
	}
}

// Next decodes the next sample. It returns false once the stream ends.
func (d *Decoder) Next() (*Sample, bool) {
	if d.err != nil || d.truncated {
		return nil, false
	}

	ts, err := d.uint32()
	if err != nil {
		// a clean EOF here is the regular end of the log
		d.stop(err, err != io.EOF)
		return nil, false
	}

	s := &Sample{Timestamp: ts}
	count, err := d.uint32()
	if err != nil {
		d.stop(err, true)
		return nil, false
	}

	for i := uint32(0); i < count; i++ {
		length, err := d.uint32()
		if err != nil {
			d.stop(err, true)
			return nil, false
		}
		if length > MaxNameLength {
			d.truncated = true
			return nil, false
		}
		name := make([]byte, length)
		if _, err := io.ReadFull(d.r, name); err != nil {
			d.stop(err, true)
			return nil, false
		}
		vss, err := d.uint32()
		if err != nil {
			d.stop(err, true)
			return nil, false
		}
		uss, err := d.uint32()
		if err != nil {
			d.stop(err, true)
			return nil, false
		}
		s.Entries = append(s.Entries, Entry{Label: string(name), VSS: vss, USS: uss})
	}

	return s, true
}

// Truncated returns true if decoding stopped at an incomplete or corrupted record.
func (d *Decoder) Truncated() bool {
	return d.truncated
}

// Err returns the read error, other than a short read, that ended decoding.
func (d *Decoder) Err() error {
	return d.err
}

func (d *Decoder) uint32() (uint32, error) {
	if _, err := io.ReadFull(d.r, d.word[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(d.word[:]), nil
}

func (d *Decoder) stop(err error, truncated bool) {
	d.truncated = truncated
	if err != io.EOF && err != io.ErrUnexpectedEOF {
		d.err = errors.Wrap(err, "binlog: read failed")
		d.truncated = true
	}
}
