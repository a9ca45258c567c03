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

package pidfile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
)

// PidFile is an exclusively created file holding the ID of our process.
type PidFile struct {
	path string
	file *os.File
}

// New returns a PidFile for the given path, or for the default path if
// path is empty.
func New(path string) *PidFile {
	if path == "" {
		path = DefaultPath()
	}
	return &PidFile{path: path}
}

// Path returns the path of the PID file.
func (p *PidFile) Path() string {
	return p.path
}

// Write creates the PID file and writes os.Getpid() to it. It fails if the
// file already exists. The file is kept open until Close or Remove.
func (p *PidFile) Write() error {
	if p.file != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return errors.Wrap(err, "failed to create PID file")
	}

	file, err := os.OpenFile(p.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to create PID file")
	}
	p.file = file

	if _, err := p.file.WriteString(strconv.Itoa(os.Getpid()) + "\n"); err != nil {
		p.Close()
		return errors.Wrap(err, "failed to write PID file")
	}

	return nil
}

// Read returns the process ID found in the PID file, or 0 if the file does
// not exist. It returns -1 and an error if the content is not a process ID.
func (p *PidFile) Read() (int, error) {
	buf, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return -1, errors.Wrap(err, "failed to read PID file")
	}

	pid, err := strconv.Atoi(strings.TrimRight(string(buf), "\n"))
	if err != nil {
		return -1, errors.Wrapf(err, "invalid PID (%q) in PID file", string(buf))
	}

	return pid, nil
}

// Close truncates the PID file to zero length and closes it.
func (p *PidFile) Close() {
	if p.file != nil {
		p.file.Truncate(0)
		p.file.Close()
		p.file = nil
	}
}

// Remove removes the PID file, regardless of which process created it.
func (p *PidFile) Remove() error {
	p.Close()
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// OwnerPid returns the ID of the live process owning the PID file, or 0 if
// no process owns it.
func (p *PidFile) OwnerPid() (int, error) {
	pid, err := p.Read()
	if err != nil {
		return -1, err
	}
	if pid == 0 {
		return 0, nil
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return -1, errors.Wrapf(err, "FindProcess() failed for PID %d", pid)
	}

	err = proc.Signal(syscall.Signal(0))
	if err == os.ErrProcessDone {
		return 0, nil
	}
	// EPERM means the process exists but belongs to someone else
	if err == nil || errors.Is(err, syscall.EPERM) {
		return pid, nil
	}

	return -1, errors.Wrapf(err, "failed to check process %d", pid)
}

// DefaultPath returns the default PID file path for our process.
func DefaultPath() string {
	name := "resource-monitor"
	if len(os.Args) > 0 {
		name = filepath.Base(os.Args[0])
	}
	if os.Geteuid() > 0 {
		return filepath.Join(os.TempDir(), name+".pid")
	}
	return filepath.Join("/", "run", name+".pid")
}
