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
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	logger "github.com/intel/resource-monitor/pkg/log"
)

// Our logger instance.
var log = logger.NewLogger("http")

// ServeMux is an HTTP request multiplexer refusing duplicate handlers.
type ServeMux struct {
	sync.Mutex
	patterns map[string]struct{}
	mux      *http.ServeMux
}

// NewServeMux create a new HTTP request multiplexer.
func NewServeMux() *ServeMux {
	return &ServeMux{
		patterns: make(map[string]struct{}),
		mux:      http.NewServeMux(),
	}
}

// Handle registers a handler for the given pattern.
func (mux *ServeMux) Handle(pattern string, handler http.Handler) error {
	mux.Lock()
	defer mux.Unlock()

	if _, ok := mux.patterns[pattern]; ok {
		return httpError("can't register duplicate handler for %q", pattern)
	}

	log.Debug("registering handler for %q...", pattern)
	mux.patterns[pattern] = struct{}{}
	mux.mux.Handle(pattern, handler)

	return nil
}

// ServeHTTP serves a HTTP request.
func (mux *ServeMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.Debug("serving %s...", r.URL)
	mux.mux.ServeHTTP(w, r)
}

// Server serves reports and metrics over HTTP.
type Server struct {
	sync.Mutex
	server *http.Server
	mux    *ServeMux
}

// NewServer creates a new server instance.
func NewServer() *Server {
	return &Server{
		mux: NewServeMux(),
	}
}

// Address returns the address the server listens on.
func (s *Server) Address() string {
	s.Lock()
	defer s.Unlock()
	if s.server == nil {
		return ""
	}
	return s.server.Addr
}

// Start starts serving on the given address. An empty address disables
// the server.
func (s *Server) Start(addr string) error {
	if addr == "" {
		log.Info("HTTP server is disabled")
		return nil
	}

	s.Lock()
	defer s.Unlock()

	if s.server != nil {
		return httpError("server already running on %s", s.server.Addr)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return httpError("can't listen on HTTP TCP address %q: %v", addr, err)
	}

	// update address if port was autobound
	s.server = &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("serving HTTP on %s", s.server.Addr)
	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed: %v", err)
		}
	}(s.server)

	return nil
}

// Shutdown shuts the server down, waiting for active requests until ctx
// is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if s.server == nil {
		return nil
	}

	log.Info("shutting down HTTP server...")
	err := s.server.Shutdown(ctx)
	if err != nil {
		s.server.Close()
	}
	s.server = nil

	return err
}

// httpError returns a formatted http-specific error.
func httpError(format string, args ...interface{}) error {
	return fmt.Errorf("http: "+format, args...)
}
