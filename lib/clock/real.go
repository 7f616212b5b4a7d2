// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// OrReal returns c, or Real() when c is nil. Components with an
// optional Clock field use it to pick their default.
func OrReal(c Clock) Clock {
	if c == nil {
		return Real()
	}
	return c
}
