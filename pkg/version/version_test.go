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

package version

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrint(t *testing.T) {
	Version, Build = "v0.1.0", "abc123"
	defer func() { Version, Build = "unknown", "unknown" }()

	require.Equal(t, "version v0.1.0, build abc123", String())

	out := &bytes.Buffer{}
	Print(out)
	require.True(t, strings.Contains(out.String(), "  - version: v0.1.0\n"))
	require.True(t, strings.Contains(out.String(), "  - build:   abc123\n"))

	require.Nil(t, versionFlag{}.Set("false"))
	require.NotNil(t, versionFlag{}.Set("maybe"))
}
