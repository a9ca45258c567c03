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
	"sync"
)

// Registry is the append-only list of group labels seen so far, in the
// order they were first seen.
type Registry struct {
	sync.Mutex
	labels []string
	known  map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		known: map[string]struct{}{},
	}
}

// Register adds the label unless it is already known. It returns true if
// the label was added.
func (r *Registry) Register(label string) bool {
	r.Lock()
	defer r.Unlock()

	if _, ok := r.known[label]; ok {
		return false
	}
	r.known[label] = struct{}{}
	r.labels = append(r.labels, label)
	return true
}

// Labels returns a copy of the registered labels.
func (r *Registry) Labels() []string {
	r.Lock()
	defer r.Unlock()

	labels := make([]string, len(r.labels))
	copy(labels, r.labels)
	return labels
}

// Len returns the number of registered labels.
func (r *Registry) Len() int {
	r.Lock()
	defer r.Unlock()
	return len(r.labels)
}
