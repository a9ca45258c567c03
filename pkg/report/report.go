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

package report

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/intel/resource-monitor/pkg/binlog"
	logger "github.com/intel/resource-monitor/pkg/log"
)

const (
	// TimeColumn is the header of the first column.
	TimeColumn = "time (s)"
	// ContentType is the MIME type of a rendered report.
	ContentType = "text/tab-separated-values"
)

var log = logger.NewLogger("report")

// Reconstruct renders the samples read from r as a tab-separated table with
// a VSS and a USS column for every label. Entries with labels not in labels
// are dropped. Labels missing from a sample are reported as zero.
func Reconstruct(r io.Reader, labels []string, w io.Writer) error {
	index := make(map[string]int, len(labels))
	for i, label := range labels {
		if _, ok := index[label]; !ok {
			index[label] = i
		}
	}

	out := bufio.NewWriter(w)
	out.WriteString(TimeColumn)
	for _, label := range labels {
		out.WriteString("\t" + label + " (VSS)\t" + label + " (USS)")
	}
	out.WriteByte('\n')

	var (
		d       = binlog.NewDecoder(r)
		origin  int64
		started bool
		vss     = make([]uint32, len(labels))
		uss     = make([]uint32, len(labels))
		dropped = map[string]struct{}{}
		rows    int
		line    []byte
	)

	for {
		s, ok := d.Next()
		if !ok {
			break
		}
		if !started {
			origin = int64(s.Timestamp)
			started = true
		}
		for i := range vss {
			vss[i], uss[i] = 0, 0
		}
		for _, e := range s.Entries {
			idx, ok := index[e.Label]
			if !ok {
				dropped[e.Label] = struct{}{}
				continue
			}
			vss[idx] = e.VSS
			uss[idx] = e.USS
		}

		line = strconv.AppendInt(line[:0], int64(s.Timestamp)-origin, 10)
		for i := range labels {
			line = append(line, '\t')
			line = strconv.AppendUint(line, uint64(vss[i]), 10)
			line = append(line, '\t')
			line = strconv.AppendUint(line, uint64(uss[i]), 10)
		}
		line = append(line, '\n')
		if _, err := out.Write(line); err != nil {
			return errors.Wrap(err, "failed to write report")
		}
		rows++
	}

	for label := range dropped {
		log.Debug("dropped entries of unknown label %q", label)
	}
	if d.Err() != nil {
		log.Warn("report ends early after %d samples: %v", rows, d.Err())
	} else if d.Truncated() {
		log.Debug("ignored incomplete trailing record after %d samples", rows)
	}

	return errors.Wrap(out.Flush(), "failed to write report")
}

// Labels returns the labels found in the samples read from r in first-seen order.
func Labels(r io.Reader) []string {
	var (
		d      = binlog.NewDecoder(r)
		seen   = map[string]struct{}{}
		labels = []string{}
	)
	for {
		s, ok := d.Next()
		if !ok {
			break
		}
		for _, e := range s.Entries {
			if _, ok := seen[e.Label]; !ok {
				seen[e.Label] = struct{}{}
				labels = append(labels, e.Label)
			}
		}
	}
	return labels
}

// CompileFile renders the log at path using the given labels. If labels is
// nil they are collected from the log itself.
func CompileFile(path string, labels []string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open log %q", path)
	}
	defer f.Close()

	if labels == nil {
		labels = Labels(f)
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return "", errors.Wrapf(err, "failed to rewind log %q", path)
		}
	}

	buf := &bytes.Buffer{}
	if err := Reconstruct(f, labels, buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
