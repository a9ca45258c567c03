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

package log

import (
	"os"
	"path/filepath"
)

// deflog logs on behalf of the program itself, under its base name.
var deflog = log.get(programName())

func programName() string {
	if len(os.Args) == 0 || os.Args[0] == "" {
		return "resource-monitor"
	}
	return filepath.Base(filepath.Clean(os.Args[0]))
}

// Default returns the Logger named after the running program.
func Default() Logger {
	return deflog
}

// Info emits an informational message through the default Logger.
func Info(format string, args ...interface{}) { deflog.Info(format, args...) }

// Warn emits a warning through the default Logger.
func Warn(format string, args ...interface{}) { deflog.Warn(format, args...) }

// Error emits an error through the default Logger.
func Error(format string, args ...interface{}) { deflog.Error(format, args...) }

// Fatal emits an error through the default Logger, then exits with status 1.
func Fatal(format string, args ...interface{}) { deflog.Fatal(format, args...) }
