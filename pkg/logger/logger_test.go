package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitWritesFile(t *testing.T) {
	t.Cleanup(func() { Set(nil) })
	path := filepath.Join(t.TempDir(), "alsito.log")

	_, err := Init(LogConfig{Level: "debug", Filename: path, MaxSize: 1}, "production")
	require.NoError(t, err)

	Info("report submitted", zap.String("kind", "fire"))
	_ = Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "report submitted")
	assert.Contains(t, string(data), `"kind":"fire"`)
}

func TestInitRejectsBadLevel(t *testing.T) {
	_, err := Init(LogConfig{Level: "loud"}, "production")
	assert.Error(t, err)
}

func TestPackageHelpersUseSetLogger(t *testing.T) {
	t.Cleanup(func() { Set(nil) })
	core, logs := observer.New(zap.DebugLevel)
	Set(zap.New(core))

	Warn("location timeout")
	Error("login failed", zap.Int("status", 403))

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "location timeout", logs.All()[0].Message)
	assert.Equal(t, int64(403), logs.All()[1].ContextMap()["status"])
}
