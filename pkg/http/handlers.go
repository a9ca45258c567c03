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

package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/intel/resource-monitor/pkg/report"
)

const (
	// ReportPath is where the tab-separated report is served.
	ReportPath = "/report"
	// MetricsPath is where Prometheus metrics are served.
	MetricsPath = "/metrics"
)

// ReportFunc compiles a report.
type ReportFunc func() (string, error)

// ReportHandler returns a handler serving reports compiled by fn.
func ReportHandler(fn ReportFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		out, err := fn()
		if err != nil {
			log.Error("failed to compile report: %v", err)
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", report.ContentType+"; charset=utf-8")
		if r.Method == http.MethodHead {
			return
		}
		if _, err := w.Write([]byte(out)); err != nil {
			log.Warn("failed to send report: %v", err)
		}
	})
}

// MetricsHandler returns a handler serving metrics from g.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// RegisterHandlers registers the report and metrics handlers.
func (s *Server) RegisterHandlers(fn ReportFunc, g prometheus.Gatherer) error {
	if err := s.mux.Handle(ReportPath, ReportHandler(fn)); err != nil {
		return err
	}
	if g != nil {
		if err := s.mux.Handle(MetricsPath, MetricsHandler(g)); err != nil {
			return err
		}
	}
	return nil
}
