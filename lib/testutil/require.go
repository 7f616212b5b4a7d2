// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// TB is the subset of testing.TB the channel helpers need.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive reads one value from ch within timeout, or fails the
// test. A closed channel fails too.
//
//	b := testutil.RequireReceive(t, received, 5*time.Second, "waiting for parcel")
func RequireReceive[T any](t TB, ch <-chan T, timeout time.Duration, describe ...any) T {
	t.Helper()
	timer := time.NewTimer(timeout) //nolint:realclock hang guard
	defer timer.Stop()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("%s: channel closed", describeWait(describe))
		}
		return value
	case <-timer.C:
		t.Fatalf("%s: nothing received after %v", describeWait(describe), timeout)
	}
	panic("unreachable")
}

// RequireSend sends value on ch within timeout, or fails the test.
func RequireSend[T any](t TB, ch chan<- T, value T, timeout time.Duration, describe ...any) {
	t.Helper()
	timer := time.NewTimer(timeout) //nolint:realclock hang guard
	defer timer.Stop()
	select {
	case ch <- value:
	case <-timer.C:
		t.Fatalf("%s: send blocked for %v", describeWait(describe), timeout)
	}
}

// RequireClosed waits for ch to be closed, or to deliver a value,
// within timeout.
//
//	testutil.RequireClosed(t, serveDone, 5*time.Second, "Serve returning")
func RequireClosed(t TB, ch <-chan struct{}, timeout time.Duration, describe ...any) {
	t.Helper()
	timer := time.NewTimer(timeout) //nolint:realclock hang guard
	defer timer.Stop()
	select {
	case <-ch:
	case <-timer.C:
		t.Fatalf("%s: still open after %v", describeWait(describe), timeout)
	}
}

// describeWait renders the optional description: a plain value, or a
// format string followed by its arguments.
func describeWait(describe []any) string {
	switch {
	case len(describe) == 0:
		return "waiting on channel"
	case len(describe) == 1:
		return fmt.Sprint(describe[0])
	}
	if format, ok := describe[0].(string); ok {
		return fmt.Sprintf(format, describe[1:]...)
	}
	return fmt.Sprint(describe...)
}
