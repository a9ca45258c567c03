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

package testutils

import (
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
)

// RequireErrors checks that err aggregates count errors and mentions every
// given substring. A count of 0 requires a nil error.
func RequireErrors(t *testing.T, err error, count int, substrings ...string) {
	t.Helper()

	if count == 0 {
		require.Nil(t, err)
		return
	}

	require.NotNil(t, err, "expected %d errors", count)
	merr, ok := err.(*multierror.Error)
	require.True(t, ok, "expected multierror, got %#v", err)
	require.Equal(t, count, len(merr.Errors), "unexpected errors: %v", merr)

	for _, s := range substrings {
		require.True(t, strings.Contains(err.Error(), s),
			"expected error with substring %q, got %q", s, err.Error())
	}
}
