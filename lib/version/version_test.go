// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestCommitFromSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings []debug.BuildSetting
		want     string
	}{
		{"none", nil, "unknown"},
		{"clean", []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.modified", Value: "false"},
		}, "0123456789ab"},
		{"dirty", []debug.BuildSetting{
			{Key: "vcs.modified", Value: "true"},
			{Key: "vcs.revision", Value: "abc123"},
		}, "abc123-dirty"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := commitFromSettings(test.settings); got != test.want {
				t.Errorf("commitFromSettings = %q, want %q", got, test.want)
			}
		})
	}
}

func TestInfoUsesInjectedValues(t *testing.T) {
	savedCommit, savedTime := GitCommit, BuildTime
	t.Cleanup(func() { GitCommit, BuildTime = savedCommit, savedTime })

	GitCommit = "feedbee"
	BuildTime = "2026-05-01T00:00:00Z"
	if got, want := Info(), Version+" (feedbee, 2026-05-01T00:00:00Z)"; got != want {
		t.Errorf("Info = %q, want %q", got, want)
	}

	BuildTime = ""
	if got, want := Info(), Version+" (feedbee)"; got != want {
		t.Errorf("Info without build time = %q, want %q", got, want)
	}
}

func TestFullIncludesPlatform(t *testing.T) {
	full := Full()
	if !strings.HasPrefix(full, Info()) || !strings.Contains(full, "Go: go") {
		t.Errorf("Full = %q, want Info followed by the Go version", full)
	}
}
