// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the current time for testability. Production code
// injects Real(); tests inject Fake() and move time by hand.
//
// Code that would call time.Now to stamp records or to decide whether
// a backoff has elapsed takes a Clock instead.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}
