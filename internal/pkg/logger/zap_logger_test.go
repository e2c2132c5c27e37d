package logger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromZap(zap.New(core))

	l.Info("RESEARCH", "stage completed", map[string]interface{}{"stage": "strategy_generated"})
	l.Debug("RESEARCH", "no details", nil)
	l.Error("RESEARCH", "search failed", map[string]interface{}{"error": errors.New("timeout")})

	entries := logs.All()
	require.Len(t, entries, 3)

	info := entries[0].ContextMap()
	assert.Equal(t, "RESEARCH", info["module"])
	assert.Equal(t, map[string]interface{}{"stage": "strategy_generated"}, info["details"])

	assert.Equal(t, map[string]interface{}{}, entries[1].ContextMap()["details"])

	errEntry := entries[2]
	assert.Equal(t, zapcore.ErrorLevel, errEntry.Level)
	assert.Contains(t, errEntry.ContextMap(), "error_ref")
}

func TestIsolatedLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l := NewIsolatedLogger(path)
	l.Info("AUDIT", "interrupt raised", nil)
	_ = l.Sync()

	assert.FileExists(t, path)
}
