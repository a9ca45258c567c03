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
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimitWindow(t *testing.T) {
	rl := RateLimit(Default(), Rate{Window: MinimumWindow, Limit: Every(time.Second)}).(*ratelimited)

	msg := func(i int) string { return fmt.Sprintf("message #%d", i) }

	first := map[int]interface{}{}
	for i := 0; i < MinimumWindow; i++ {
		first[i] = rl.getMessageLimit(msg(i))
	}
	for i := 0; i < MinimumWindow; i++ {
		require.True(t, first[i] == rl.getMessageLimit(msg(i)), "limiter of %q replaced", msg(i))
	}

	// push out the oldest messages
	extra := MinimumWindow / 4
	for i := MinimumWindow; i < MinimumWindow+extra; i++ {
		rl.getMessageLimit(msg(i))
	}
	require.Equal(t, MinimumWindow, len(rl.window))
	require.Equal(t, MinimumWindow, len(rl.limits))

	for i := extra; i < MinimumWindow; i++ {
		_, ok := rl.limits[msg(i)]
		require.True(t, ok, "%q evicted too early", msg(i))
	}
	for i := 0; i < extra; i++ {
		_, ok := rl.limits[msg(i)]
		require.False(t, ok, "%q not evicted", msg(i))
	}
}

func TestRateLimitDefaults(t *testing.T) {
	tcases := []struct {
		name   string
		rate   Rate
		window int
		burst  int
	}{
		{name: "zero", rate: Rate{}, window: DefaultWindow, burst: 1},
		{name: "small window", rate: Rate{Window: 2}, window: MinimumWindow, burst: 1},
		{name: "explicit", rate: Rate{Window: 100, Burst: 3}, window: 100, burst: 3},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			rl := RateLimit(Default(), tc.rate).(*ratelimited)
			require.Equal(t, tc.window, rl.rate.Window)
			require.Equal(t, tc.burst, rl.rate.Burst)
		})
	}
}

func TestRateLimitFilter(t *testing.T) {
	rl := RateLimit(Default(), Interval(time.Hour)).(*ratelimited)

	require.Equal(t, "write failed: disk full", rl.filter("write failed: %s", "disk full"))
	require.Equal(t, "", rl.filter("write failed: %s", "disk full"))
	require.NotEqual(t, "", rl.filter("write failed: %s", "permission denied"))
}

func TestRateLimitEmits(t *testing.T) {
	c := capture(t)
	l := RateLimit(NewLogger("ratelimit-test"), Interval(time.Hour))

	l.Warn("pagemap of %d unreadable", 42)
	l.Warn("pagemap of %d unreadable", 42)
	l.Error("pagemap of %d unreadable", 43)

	require.Equal(t, 2, len(c.lines))
	require.Contains(t, c.lines[0], "<rate-limited> pagemap of 42 unreadable")
	require.Contains(t, c.lines[1], "E:")
}
