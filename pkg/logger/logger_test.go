// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratocloud/stratoctl/pkg/env"
)

func TestUnstructuredLogsWithEnv(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    string
		expected bool
	}{
		{name: "unset defaults to unstructured", value: "", expected: true},
		{name: "explicit true", value: "true", expected: true},
		{name: "explicit false", value: "false", expected: false},
		{name: "garbage defaults to unstructured", value: "not-a-bool", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reader := &env.MapReader{Values: map[string]string{"UNSTRUCTURED_LOGS": tt.value}}
			assert.Equal(t, tt.expected, unstructuredLogsWithEnv(reader))
		})
	}
}

func TestSingletonHelpers(t *testing.T) { //nolint:paralleltest // mutates the singleton
	var buf bytes.Buffer
	original := Get()
	defer Set(original)

	Set(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	Infof("hello %s", "world")
	Warnw("slow operation", "duration", "5s")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "hello world", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])

	require.NoError(t, json.Unmarshal(lines[1], &entry))
	assert.Equal(t, "slow operation", entry["msg"])
	assert.Equal(t, "5s", entry["duration"])
}
