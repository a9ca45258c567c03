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

package pagemap

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// PhysicalPageCount returns the number of physical memory pages in the system.
func PhysicalPageCount() (uint64, error) {
	info := unix.Sysinfo_t{}
	if err := unix.Sysinfo(&info); err != nil {
		return 0, errors.Wrap(err, "sysinfo failed")
	}
	total := uint64(info.Totalram) * uint64(info.Unit)
	return total / uint64(unix.Getpagesize()), nil
}
