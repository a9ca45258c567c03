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

// Package version tags binaries with version metadata set at link time:
//
//	go build -ldflags \
//	  "-X=github.com/intel/resource-monitor/pkg/version.Version=<version> \
//	   -X=github.com/intel/resource-monitor/pkg/version.Build=<build-id>"
package version

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Default values of variables we'll override with the linker.
var (
	// Version is our version as given by 'git describe'.
	Version = "unknown"
	// Build is the SHA1 of the repository we've been built from.
	Build = "unknown"
)

// String returns the version metadata on a single line.
func String() string {
	return fmt.Sprintf("version %s, build %s", Version, Build)
}

// Print prints version information about this binary to w.
func Print(w io.Writer) {
	fmt.Fprintf(w, "%s version information:\n", filepath.Base(os.Args[0]))
	fmt.Fprintf(w, "  - version: %s\n", Version)
	fmt.Fprintf(w, "  - build:   %s\n", Build)
}

// versionFlag prints version information and exits when set.
type versionFlag struct{}

// IsBoolFlag tells flag that the argument is optional.
func (versionFlag) IsBoolFlag() bool {
	return true
}

func (versionFlag) Set(value string) error {
	print, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	if print {
		Print(os.Stdout)
		os.Exit(0)
	}
	return nil
}

func (versionFlag) String() string {
	return "false"
}

func init() {
	flag.Var(versionFlag{}, "version", "print version information and exit")
}
