// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew_FileLogging verifies file output is created per service and
// day, and survives Close.
func TestNew_FileLogging(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{Service: "chat-service", LogDir: dir, JSON: true})

	logger.Slog().Info("server listening", "port", 12310)
	require.NoError(t, logger.Close())

	name := "chat-service_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Contains(t, string(data), "server listening")
	assert.Contains(t, string(data), `"service":"chat-service"`)
}

// TestNew_LevelFilter verifies records below the configured level are
// not exported.
func TestNew_LevelFilter(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{Level: slog.LevelWarn, Service: "chat-service", Exporter: exporter})
	defer logger.Close()

	logger.Slog().Debug("noise")
	logger.Slog().Info("also noise")
	logger.Slog().Warn("something odd")

	require.Eventually(t, func() bool { return len(exporter.Entries()) == 1 },
		2*time.Second, 10*time.Millisecond)
	entry := exporter.Entries()[0]
	assert.Equal(t, "something odd", entry.Message)
	assert.Equal(t, slog.LevelWarn, entry.Level)
}

// TestExporter_ReceivesAttrs verifies record attributes reach the
// exporter as a map.
func TestExporter_ReceivesAttrs(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{Service: "chat-service", Exporter: exporter})
	defer logger.Close()

	logger.Slog().Info("exchange finished", "exchange_id", "ex-1", "iterations", 3)

	require.Eventually(t, func() bool { return len(exporter.Entries()) == 1 },
		2*time.Second, 10*time.Millisecond)
	entry := exporter.Entries()[0]
	assert.Equal(t, "ex-1", entry.Attrs["exchange_id"])
	assert.Equal(t, "chat-service", entry.Service)
}
