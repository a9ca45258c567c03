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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intel/resource-monitor/pkg/binlog"
)

func logImage(t *testing.T, samples ...*binlog.Sample) []byte {
	var buf []byte
	var err error
	for _, s := range samples {
		buf, err = binlog.AppendRecord(buf, s)
		require.Nil(t, err)
	}
	return buf
}

func sample(ts uint32, entries ...binlog.Entry) *binlog.Sample {
	return &binlog.Sample{Timestamp: ts, Entries: entries}
}

func render(t *testing.T, data []byte, labels []string) string {
	out := &bytes.Buffer{}
	require.Nil(t, Reconstruct(bytes.NewReader(data), labels, out))
	return out.String()
}

func TestReconstruct(t *testing.T) {
	tcases := []struct {
		name     string
		samples  []*binlog.Sample
		labels   []string
		expected string
	}{
		{
			name: "two ticks",
			samples: []*binlog.Sample{
				sample(1000, binlog.Entry{Label: "A", VSS: 50, USS: 30}),
				sample(1010, binlog.Entry{Label: "A", VSS: 52, USS: 31}),
			},
			labels:   []string{"A"},
			expected: "time (s)\tA (VSS)\tA (USS)\n0\t50\t30\n10\t52\t31\n",
		},
		{
			name:     "empty log",
			labels:   []string{"A", "B"},
			expected: "time (s)\tA (VSS)\tA (USS)\tB (VSS)\tB (USS)\n",
		},
		{
			name: "empty sample",
			samples: []*binlog.Sample{
				sample(5),
				sample(6, binlog.Entry{Label: "B", VSS: 2, USS: 1}),
			},
			labels:   []string{"A", "B"},
			expected: "time (s)\tA (VSS)\tA (USS)\tB (VSS)\tB (USS)\n0\t0\t0\t0\t0\n1\t0\t0\t2\t1\n",
		},
		{
			name: "unknown label",
			samples: []*binlog.Sample{
				sample(10,
					binlog.Entry{Label: "ghost (7)", VSS: 99, USS: 99},
					binlog.Entry{Label: "A", VSS: 3, USS: 2}),
			},
			labels:   []string{"A"},
			expected: "time (s)\tA (VSS)\tA (USS)\n0\t3\t2\n",
		},
		{
			name: "registry order",
			samples: []*binlog.Sample{
				sample(1, binlog.Entry{Label: "B", VSS: 1, USS: 1}, binlog.Entry{Label: "A", VSS: 2, USS: 2}),
			},
			labels:   []string{"A", "B"},
			expected: "time (s)\tA (VSS)\tA (USS)\tB (VSS)\tB (USS)\n0\t2\t2\t1\t1\n",
		},
		{
			name: "clock stepping backwards",
			samples: []*binlog.Sample{
				sample(100, binlog.Entry{Label: "A", VSS: 1, USS: 1}),
				sample(90, binlog.Entry{Label: "A", VSS: 1, USS: 1}),
			},
			labels:   []string{"A"},
			expected: "time (s)\tA (VSS)\tA (USS)\n0\t1\t1\n-10\t1\t1\n",
		},
		{
			name:     "no labels",
			samples:  []*binlog.Sample{sample(1, binlog.Entry{Label: "A", VSS: 1, USS: 1})},
			expected: "time (s)\n0\n",
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, render(t, logImage(t, tc.samples...), tc.labels))
		})
	}
}

func TestReconstructTruncated(t *testing.T) {
	data := logImage(t,
		sample(1000, binlog.Entry{Label: "A", VSS: 50, USS: 30}),
		sample(1010, binlog.Entry{Label: "A", VSS: 52, USS: 31}),
	)
	expected := "time (s)\tA (VSS)\tA (USS)\n0\t50\t30\n"
	for cut := 1; cut < 17; cut++ {
		require.Equal(t, expected, render(t, data[:len(data)-cut], []string{"A"}), "cut %d", cut)
	}
}

func TestReconstructRows(t *testing.T) {
	const n = 50
	var samples []*binlog.Sample
	for i := 0; i < n; i++ {
		samples = append(samples, sample(uint32(2000+i*5), binlog.Entry{Label: "A", VSS: uint32(i), USS: 0}))
	}
	data := logImage(t, samples...)

	first := render(t, data, []string{"A"})
	lines := strings.Split(strings.TrimSuffix(first, "\n"), "\n")
	require.Equal(t, n+1, len(lines))
	require.True(t, strings.HasPrefix(lines[1], "0\t"))
	require.True(t, strings.HasPrefix(lines[n], "245\t"))

	// idempotent
	require.Equal(t, first, render(t, data, []string{"A"}))
}

func TestLabels(t *testing.T) {
	data := logImage(t,
		sample(1, binlog.Entry{Label: "B"}),
		sample(2),
		sample(3, binlog.Entry{Label: "A"}, binlog.Entry{Label: "B"}, binlog.Entry{Label: "C"}),
	)
	require.Equal(t, []string{"B", "A", "C"}, Labels(bytes.NewReader(data)))
	require.Equal(t, []string{}, Labels(bytes.NewReader(nil)))
}

func TestCompileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resource.log")
	data := logImage(t,
		sample(1000, binlog.Entry{Label: "A", VSS: 50, USS: 30}),
		sample(1010, binlog.Entry{Label: "A", VSS: 52, USS: 31}),
	)
	require.Nil(t, os.WriteFile(path, data, 0644))

	expected := "time (s)\tA (VSS)\tA (USS)\n0\t50\t30\n10\t52\t31\n"
	out, err := CompileFile(path, nil)
	require.Nil(t, err)
	require.Equal(t, expected, out)

	out, err = CompileFile(path, []string{"A"})
	require.Nil(t, err)
	require.Equal(t, expected, out)

	_, err = CompileFile(path+".missing", nil)
	require.NotNil(t, err)
}
