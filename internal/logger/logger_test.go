package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, levelFromString("DEBUG"))
	require.Equal(t, zapcore.WarnLevel, levelFromString("warning"))
	require.Equal(t, zapcore.InfoLevel, levelFromString("nonsense"))
}

func TestInitWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokenauth.log")

	lg, err := Init(Config{Level: "info", File: path})
	require.NoError(t, err)
	lg.Info("hello")
	lg.Debug("filtered")
	_ = lg.Sync()

	matches, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	require.Contains(t, string(data), `"msg":"hello"`)
	require.NotContains(t, string(data), "filtered")
}

func TestInitDev(t *testing.T) {
	lg, err := Init(Config{Dev: true, Level: "debug"})
	require.NoError(t, err)
	require.True(t, lg.Core().Enabled(zapcore.DebugLevel))
}
