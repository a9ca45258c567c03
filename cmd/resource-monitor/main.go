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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/intel/resource-monitor/pkg/config"
	"github.com/intel/resource-monitor/pkg/http"
	logger "github.com/intel/resource-monitor/pkg/log"
	"github.com/intel/resource-monitor/pkg/metrics"
	"github.com/intel/resource-monitor/pkg/monitor"
	"github.com/intel/resource-monitor/pkg/pidfile"
	"github.com/intel/resource-monitor/pkg/version"
)

const (
	// shutdownTimeout bounds waiting for active HTTP requests on exit.
	shutdownTimeout = 5 * time.Second
)

var log = logger.Default()

func main() {
	flags := &config.Flags{}
	flags.Register(flag.CommandLine)
	reportLog := flag.String("report", "", "print the report of the given binary log and exit")

	flag.Parse()

	if len(flag.Args()) != 0 {
		log.Error("unknown command-line arguments: %s", strings.Join(flag.Args(), ","))
		flag.Usage()
		os.Exit(1)
	}

	if *reportLog != "" {
		if err := printReport(*reportLog, os.Stdout); err != nil {
			log.Fatal("%v", err)
		}
		return
	}

	cfg, err := flags.Resolve(flag.CommandLine)
	if err != nil {
		log.ErrorBlock("  ", "%v", err)
		log.Fatal("invalid configuration")
	}
	log.Info("starting resource monitor, %s", version.String())
	log.DebugBlock("  ", "using configuration:\n%s", cfg)

	if err := run(cfg); err != nil {
		logger.Flush()
		log.Fatal("%v", err)
	}
	logger.Flush()
}

// run monitors until a termination signal arrives or sampling gives up.
func run(cfg *config.Config) error {
	if cfg.PidFile != "" {
		pf, err := claimPidFile(cfg.PidFile)
		if err != nil {
			return err
		}
		defer pf.Remove()
	}

	m, err := monitor.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create resource monitor: %v", err)
	}

	err = metrics.RegisterCollector("resource-monitor", func() (prometheus.Collector, error) {
		return m.Collector(), nil
	})
	if err != nil {
		return err
	}
	gatherer, err := metrics.NewMetricGatherer()
	if err != nil {
		return err
	}

	srv := http.NewServer()
	if err := srv.RegisterHandlers(m.CompileReport, gatherer); err != nil {
		return err
	}
	if err := srv.Start(cfg.HTTPEndpoint); err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("HTTP server shutdown: %v", err)
		}
	}()

	if err := m.Start(); err != nil {
		return fmt.Errorf("failed to start resource monitor: %v", err)
	}
	defer m.Stop()

	logger.SetupDebugToggleSignal(syscall.SIGUSR1)
	defer logger.ClearDebugToggleSignal()

	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigC)

	select {
	case sig := <-sigC:
		log.Info("received signal %v, stopping...", sig)
	case <-m.Done():
		if err := m.Err(); err != nil {
			return err
		}
	}

	return nil
}

// claimPidFile writes our PID file, replacing a stale one.
func claimPidFile(path string) (*pidfile.PidFile, error) {
	pf := pidfile.New(path)

	owner, err := pf.OwnerPid()
	if err != nil {
		log.Warn("replacing unreadable PID file %s: %v", path, err)
	}
	if owner > 0 && owner != os.Getpid() {
		return nil, fmt.Errorf("already running as process %d (PID file %s)", owner, path)
	}
	if err := pf.Remove(); err != nil {
		return nil, fmt.Errorf("failed to remove stale PID file: %v", err)
	}
	if err := pf.Write(); err != nil {
		return nil, err
	}

	return pf, nil
}
