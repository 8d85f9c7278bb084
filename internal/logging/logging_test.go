// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{" INFO ", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"", WarnLevel},
		{"verbose", WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLogger_WritesAtLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ts2mt.log")

	log, err := NewLogger(Options{Level: InfoLevel, OutputPaths: []string{path}})
	require.NoError(t, err)

	log.Debug("hidden detail")
	log.Info("conversion finished", NewField("records", 3))
	log.WithFields(NewField("input", "DATA.txt")).Error(errors.New("boom"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.NotContains(t, out, "hidden detail")
	assert.Contains(t, out, "conversion finished")
	assert.Contains(t, out, "records")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "DATA.txt")
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	log.Info("nothing")
	log.Error(errors.New("nothing"))
	assert.NotNil(t, log.Zap())
}
