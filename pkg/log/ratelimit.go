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
	"sync"
	"time"

	goxrate "golang.org/x/time/rate"
)

const (
	// DefaultWindow is the number of distinct messages tracked by default.
	DefaultWindow = 256
	// MinimumWindow is the least number of distinct messages tracked.
	MinimumWindow = 32
)

// Rate describes how often an identical message may pass.
type Rate struct {
	Limit  goxrate.Limit // sustained rate
	Burst  int           // messages allowed at once
	Window int           // distinct messages remembered
}

// Every returns the limit of one event per interval.
func Every(interval time.Duration) goxrate.Limit {
	return goxrate.Every(interval)
}

// Interval returns a Rate passing a message at most once per interval.
func Interval(interval time.Duration) Rate {
	return Rate{Limit: Every(interval), Burst: 1}
}

// ratelimited suppresses identical messages emitted too often. Limiters
// are kept for the last Window distinct messages, oldest evicted first.
type ratelimited struct {
	Logger
	sync.Mutex
	rate   Rate
	window []string
	limits map[string]*goxrate.Limiter
}

// RateLimit wraps a Logger so that each distinct message obeys rate.
func RateLimit(log Logger, rate Rate) Logger {
	if rate.Window == 0 {
		rate.Window = DefaultWindow
	}
	if rate.Window < MinimumWindow {
		rate.Window = MinimumWindow
	}
	if rate.Burst < 1 {
		rate.Burst = 1
	}
	return &ratelimited{
		Logger: log,
		rate:   rate,
		window: make([]string, 0, rate.Window),
		limits: make(map[string]*goxrate.Limiter, rate.Window),
	}
}

func (rl *ratelimited) Debug(format string, args ...interface{}) {
	rl.pass(rl.Logger.Debug, format, args...)
}

func (rl *ratelimited) Info(format string, args ...interface{}) {
	rl.pass(rl.Logger.Info, format, args...)
}

func (rl *ratelimited) Warn(format string, args ...interface{}) {
	rl.pass(rl.Logger.Warn, format, args...)
}

func (rl *ratelimited) Error(format string, args ...interface{}) {
	rl.pass(rl.Logger.Error, format, args...)
}

func (rl *ratelimited) pass(emit func(string, ...interface{}), format string, args ...interface{}) {
	if msg := rl.filter(format, args...); msg != "" {
		emit("<rate-limited> %s", msg)
	}
}

// filter formats a message, returning "" if it is currently suppressed.
func (rl *ratelimited) filter(format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if rl.getMessageLimit(msg).Allow() {
		return msg
	}
	return ""
}

func (rl *ratelimited) getMessageLimit(msg string) *goxrate.Limiter {
	rl.Lock()
	defer rl.Unlock()

	lim, ok := rl.limits[msg]
	if ok {
		return lim
	}
	if len(rl.window) == rl.rate.Window {
		oldest := rl.window[0]
		copy(rl.window, rl.window[1:])
		rl.window = rl.window[:len(rl.window)-1]
		delete(rl.limits, oldest)
	}
	lim = goxrate.NewLimiter(rl.rate.Limit, rl.rate.Burst)
	rl.limits[msg] = lim
	rl.window = append(rl.window, msg)
	return lim
}
