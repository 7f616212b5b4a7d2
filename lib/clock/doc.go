// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides a time source that tests can control.
//
// The audit log stamps entries with Clock.Now, and TCP routes use it
// to decide when a failed route becomes available again. Production
// wiring passes [Real]; tests pass [Fake] and call
// [FakeClock.Advance] to cross backoff windows without sleeping.
package clock
