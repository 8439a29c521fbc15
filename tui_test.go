/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTUILoggerWritesToFile(t *testing.T) {
	cfg := testConfig()
	cfg.verbose = true
	path := filepath.Join(t.TempDir(), "tui.log")

	logger, closeLog, err := tuiLogger(cfg, path)
	require.NoError(t, err)
	logger.Debug("spin started", "group", 1)
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "spin started")
	assert.Contains(t, string(data), "spinbox")
}

func TestTUILoggerWithoutFile(t *testing.T) {
	logger, closeLog, err := tuiLogger(testConfig(), "")
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Warn("dropped")
	closeLog()

	_, _, err = tuiLogger(testConfig(), filepath.Join(t.TempDir(), "missing", "tui.log"))
	assert.Error(t, err)
}
