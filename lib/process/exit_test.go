// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewLoggerWritesJSONAtLevel(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var buffer bytes.Buffer
	logger := NewLogger(&buffer, slog.LevelWarn)
	logger.Info("dropped")
	logger.Warn("kept", "peer", "blake3:00")

	var record map[string]any
	if err := json.Unmarshal(buffer.Bytes(), &record); err != nil {
		t.Fatalf("output %q is not one JSON record: %v", buffer.String(), err)
	}
	if record["msg"] != "kept" {
		t.Errorf("msg = %v, want kept", record["msg"])
	}
	if record["peer"] != "blake3:00" {
		t.Errorf("peer = %v, want blake3:00", record["peer"])
	}
	if slog.Default() != logger {
		t.Error("NewLogger did not install the slog default")
	}
}
