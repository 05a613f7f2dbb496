package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONToStderr(t *testing.T) {
	var buf bytes.Buffer
	rt, err := New(Options{Stderr: &buf})
	require.NoError(t, err)
	require.Empty(t, rt.Path)

	rt.Logger.Debug("hidden")
	rt.Logger.Info("unit-test-log", "component", "logging")
	require.NoError(t, rt.Close())

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"unit-test-log"`)
	require.Contains(t, buf.String(), `"component":"logging"`)
}

func TestNewCreatesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ankiform.log")
	rt, err := New(Options{File: path, Format: "text"})
	require.NoError(t, err)
	require.Equal(t, path, rt.Path)

	rt.Logger.Warn("disk-log", "n", 1)
	require.NoError(t, rt.Close())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "msg=disk-log")
	require.Contains(t, string(contents), "n=1")
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	rt, err := New(Options{Stderr: &buf, Level: "error"})
	require.NoError(t, err)

	rt.Logger.Info("before")
	require.NoError(t, rt.SetLevel("debug"))
	require.Equal(t, slog.LevelDebug, rt.Level())
	rt.Logger.Debug("after")

	require.NotContains(t, buf.String(), "before")
	require.Contains(t, buf.String(), "after")
	require.Error(t, rt.SetLevel("loud"))
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{Level: "verbose"})
	require.Error(t, err)

	_, err = New(Options{Format: "xml"})
	require.ErrorContains(t, err, "unknown log format")
}
