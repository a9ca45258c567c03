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
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

func TestStartShutdown(t *testing.T) {
	srv := NewServer()

	if err := srv.Start(""); err != nil {
		t.Errorf("disabled server failed to start: %v", err)
	}
	if addr := srv.Address(); addr != "" {
		t.Errorf("disabled server has address %q", addr)
	}

	if err := srv.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("failed to start HTTP server: %v", err)
	}
	if err := srv.Start("127.0.0.1:0"); err == nil {
		t.Errorf("server started twice")
	}
	if addr := srv.Address(); strings.HasSuffix(addr, ":0") {
		t.Errorf("autobound port not resolved in %q", addr)
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("failed to shut down HTTP server: %v", err)
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("repeated shutdown failed: %v", err)
	}
}

func checkURL(t *testing.T, srv *Server, path, response string, status int) {
	url := "http://" + srv.Address() + path

	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("http.Get(%s) failed: %v", url, err)
	}
	defer res.Body.Close()

	if res.StatusCode != status {
		t.Errorf("http.Get(%s) status %d, expected %d", url, res.StatusCode, status)
	}

	txt, err := io.ReadAll(res.Body)
	if err != nil {
		t.Errorf("http.Get(%s) failed to read response: %v", url, err)
	}

	if response != "" && string(txt) != response {
		t.Errorf("http.Get(%s) unexpected response: %q, expected: %q", url, txt, response)
	}
}

func TestMux(t *testing.T) {
	srv := NewServer()
	if err := srv.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("failed to start HTTP server: %v", err)
	}
	defer srv.Shutdown(context.Background())

	mux := srv.mux
	hello := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("hello"))
	})
	if err := mux.Handle("/hello", hello); err != nil {
		t.Errorf("failed to register handler: %v", err)
	}
	if err := mux.Handle("/hello", hello); err == nil {
		t.Errorf("duplicate handler registered")
	}
	checkURL(t, srv, "/hello", "hello", http.StatusOK)
	checkURL(t, srv, "/missing", "", http.StatusNotFound)
}

func TestReportHandler(t *testing.T) {
	tcases := []struct {
		name   string
		method string
		report string
		err    error
		status int
		body   string
	}{
		{
			name:   "report",
			method: http.MethodGet,
			report: "time (s)\tA (VSS)\tA (USS)\n0\t50\t30\n",
			status: http.StatusOK,
			body:   "time (s)\tA (VSS)\tA (USS)\n0\t50\t30\n",
		},
		{
			name:   "head",
			method: http.MethodHead,
			report: "time (s)\n",
			status: http.StatusOK,
		},
		{
			name:   "missing log",
			method: http.MethodGet,
			err:    errors.New("failed to open log"),
			status: http.StatusServiceUnavailable,
			body:   "failed to open log\n",
		},
		{
			name:   "post",
			method: http.MethodPost,
			status: http.StatusMethodNotAllowed,
			body:   "method not allowed\n",
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			h := ReportHandler(func() (string, error) { return tc.report, tc.err })
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tc.method, ReportPath, nil))

			if rec.Code != tc.status {
				t.Errorf("status %d, expected %d", rec.Code, tc.status)
			}
			if rec.Body.String() != tc.body {
				t.Errorf("unexpected body %q, expected %q", rec.Body.String(), tc.body)
			}
			if tc.status == http.StatusOK {
				if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/tab-separated-values") {
					t.Errorf("unexpected content type %q", ct)
				}
			}
		})
	}
}

func TestRegisterHandlers(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_test_pages",
		Help: "Test gauge.",
	})
	gauge.Set(42)
	reg.MustRegister(gauge)

	srv := NewServer()
	if err := srv.RegisterHandlers(func() (string, error) { return "time (s)\n", nil }, reg); err != nil {
		t.Fatalf("failed to register handlers: %v", err)
	}
	if err := srv.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("failed to start HTTP server: %v", err)
	}
	defer srv.Shutdown(context.Background())

	checkURL(t, srv, ReportPath, "time (s)\n", http.StatusOK)

	res, err := http.Get("http://" + srv.Address() + MetricsPath)
	if err != nil {
		t.Fatalf("failed to get metrics: %v", err)
	}
	defer res.Body.Close()
	txt, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(txt), "http_test_pages 42") {
		t.Errorf("metrics missing test gauge:\n%s", txt)
	}
}
