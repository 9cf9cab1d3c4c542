// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import "math"

const (
	// WindowSize is the number of progress samples kept.
	WindowSize = 5
	// SampleInterval is the minimum time between samples, in seconds.
	SampleInterval = 1.0
)

type sample struct {
	progress float64
	time     float64
}

// Estimator extrapolates a completion time from recent progress samples.
// Timestamps are seconds on any monotonic clock. It is not safe for
// concurrent use; the UI goroutine owns it.
type Estimator struct {
	window    []sample
	start     float64
	started   bool
	estimate  float64
	estimated bool
}

// Sample records progress at now. It does nothing and returns false when
// the previous sample is less than SampleInterval old.
//
// Once the window is full the oldest sample is evicted and becomes the
// baseline; before that the oldest kept sample is the baseline. A
// non-finite extrapolation leaves the previous estimate in place.
func (e *Estimator) Sample(progress, now float64) bool {
	if n := len(e.window); n > 0 && now-e.window[n-1].time < SampleInterval {
		return false
	}
	if !e.started {
		e.start = now
		e.started = true
	}

	var base sample
	hasBase := len(e.window) > 0
	if hasBase {
		base = e.window[0]
	}
	if len(e.window) >= WindowSize {
		e.window = e.window[1:]
	}
	e.window = append(e.window, sample{progress: progress, time: now})

	if hasBase {
		est := e.start + (now-base.time)/(progress-base.progress)
		if !math.IsInf(est, 0) && !math.IsNaN(est) {
			e.estimate = est
			e.estimated = true
		}
	}
	return true
}

// Estimate returns the estimated completion time.
func (e *Estimator) Estimate() (float64, bool) {
	return e.estimate, e.estimated
}

// Start returns the time of the first sample.
func (e *Estimator) Start() (float64, bool) {
	return e.start, e.started
}

// Len returns the number of samples in the window.
func (e *Estimator) Len() int { return len(e.window) }

// TimeRemaining returns the whole seconds left until the estimate, never
// negative.
func (e *Estimator) TimeRemaining(now float64) (float64, bool) {
	if !e.estimated {
		return 0, false
	}
	return math.Max(0, math.Ceil(e.estimate-now)), true
}
