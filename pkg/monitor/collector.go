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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/intel/resource-monitor/pkg/binlog"
)

var (
	vssDesc = prometheus.NewDesc(
		"resource_monitor_vss_pages",
		"Physical pages mapped by a monitored group in the latest sample.",
		[]string{"label"}, nil,
	)
	ussDesc = prometheus.NewDesc(
		"resource_monitor_uss_pages",
		"Physical pages mapped by a monitored group and no other process in the latest sample.",
		[]string{"label"}, nil,
	)
	samplesDesc = prometheus.NewDesc(
		"resource_monitor_samples_total",
		"Number of samples written to the log.",
		nil, nil,
	)
	writeFailuresDesc = prometheus.NewDesc(
		"resource_monitor_write_failures_total",
		"Number of samples that could not be written to the log.",
		nil, nil,
	)
	bitmapPagesDesc = prometheus.NewDesc(
		"resource_monitor_bitmap_pages",
		"Number of physical pages the page bitmaps were sized for.",
		nil, nil,
	)
	pageSizeDesc = prometheus.NewDesc(
		"resource_monitor_page_size_bytes",
		"Size of a page in bytes.",
		nil, nil,
	)
)

type collector struct {
	m *Monitor
}

// Collector returns a prometheus.Collector for the monitor.
func (m *Monitor) Collector() prometheus.Collector {
	return &collector{m: m}
}

// Describe implements prometheus.Collector interface
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		vssDesc, ussDesc, samplesDesc, writeFailuresDesc, bitmapPagesDesc, pageSizeDesc,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector interface
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	samples, failures := c.m.Stats()
	ch <- prometheus.MustNewConstMetric(samplesDesc, prometheus.CounterValue, float64(samples))
	ch <- prometheus.MustNewConstMetric(writeFailuresDesc, prometheus.CounterValue, float64(failures))
	ch <- prometheus.MustNewConstMetric(bitmapPagesDesc, prometheus.GaugeValue, float64(c.m.PageCount()))
	ch <- prometheus.MustNewConstMetric(pageSizeDesc, prometheus.GaugeValue, float64(os.Getpagesize()))

	last := c.m.LastSample()
	if last == nil {
		return
	}
	// the last entry of a repeated label wins, as in reports
	latest := make(map[string]binlog.Entry, len(last.Entries))
	order := make([]string, 0, len(last.Entries))
	for _, e := range last.Entries {
		if _, ok := latest[e.Label]; !ok {
			order = append(order, e.Label)
		}
		latest[e.Label] = e
	}
	for _, label := range order {
		e := latest[label]
		ch <- prometheus.MustNewConstMetric(vssDesc, prometheus.GaugeValue, float64(e.VSS), label)
		ch <- prometheus.MustNewConstMetric(ussDesc, prometheus.GaugeValue, float64(e.USS), label)
	}
}
