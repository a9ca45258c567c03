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

package binlog

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// Writer appends samples to a binary log file, one complete record at a time.
type Writer struct {
	sync.Mutex
	path string
	file *os.File
	size int64
	buf  []byte
}

// Create creates or truncates the log file at path.
func Create(path string) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create log %q", path)
	}
	return &Writer{
		path: path,
		file: file,
	}, nil
}

// Path returns the path of the log file.
func (w *Writer) Path() string {
	return w.path
}

// Append writes the sample as a single record and syncs it to storage. If
// this fails, the file is truncated back to the end of the previous record.
func (w *Writer) Append(s *Sample) error {
	w.Lock()
	defer w.Unlock()

	if w.file == nil {
		return errors.Errorf("log %q is closed", w.path)
	}

	buf, err := AppendRecord(w.buf[:0], s)
	if err != nil {
		return err
	}
	w.buf = buf

	n, err := w.file.Write(buf)
	if err == nil && n < len(buf) {
		err = io.ErrShortWrite
	}
	if err == nil {
		err = w.file.Sync()
	}
	if err != nil {
		if rerr := w.rollback(); rerr != nil {
			return errors.Wrapf(err, "failed to write %q (rollback failed: %v)", w.path, rerr)
		}
		return errors.Wrapf(err, "failed to write %q", w.path)
	}

	w.size += int64(n)
	return nil
}

func (w *Writer) rollback() error {
	if err := w.file.Truncate(w.size); err != nil {
		return err
	}
	_, err := w.file.Seek(w.size, io.SeekStart)
	return err
}

// Close closes the log file.
func (w *Writer) Close() error {
	w.Lock()
	defer w.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
