package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestRotator_RotatesBySize(t *testing.T) {
	name := filepath.Join(t.TempDir(), "tracker.log")
	r := &Rotator{Filename: name, MaxSize: 10, MaxBackups: 2}

	for _, line := range []string{"first\n", "second\n", "third\n"} {
		_, err := r.Write([]byte(line))
		require.NoError(t, err)
	}
	r.file.Close()

	current, err := os.ReadFile(name)
	require.NoError(t, err)
	require.Equal(t, "third\n", string(current))

	backup1, err := os.ReadFile(name + ".1")
	require.NoError(t, err)
	require.Equal(t, "second\n", string(backup1))

	backup2, err := os.ReadFile(name + ".2")
	require.NoError(t, err)
	require.Equal(t, "first\n", string(backup2))
}

func TestRotator_AppendsToExisting(t *testing.T) {
	name := filepath.Join(t.TempDir(), "tracker.log")
	require.NoError(t, os.WriteFile(name, []byte("old\n"), 0o644))

	r := &Rotator{Filename: name, MaxSize: 1024, MaxBackups: 1}
	_, err := r.Write([]byte("new\n"))
	require.NoError(t, err)
	r.file.Close()

	b, err := os.ReadFile(name)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(b), "old\n"))
	require.Equal(t, int64(8), r.size)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, parseLevel("debug"))
	require.Equal(t, zapcore.WarnLevel, parseLevel("WARNING"))
	require.Equal(t, zapcore.ErrorLevel, parseLevel("ERROR"))
	require.Equal(t, zapcore.InfoLevel, parseLevel("chatty"))
}

func TestSetup_WritesFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "tracker.log")
	log := Setup(name, 1, 1, "INFO")
	log.Infow("position added", "symbol", "KO")
	_ = log.Sync()

	b, err := os.ReadFile(name)
	require.NoError(t, err)
	require.Contains(t, string(b), `"symbol":"KO"`)
}
