package simplelogger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLog_WritesLeveledLinesAndAppends(t *testing.T) {
	t.Setenv("FINGERPRINT_LOG_FILE", filepath.Join(t.TempDir(), "fingerprint.log"))

	Log("hello %s", "world")
	Warn("count %d", 123)

	b, err := os.ReadFile(os.Getenv("FINGERPRINT_LOG_FILE"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], " INFO ")
	require.True(t, strings.HasSuffix(lines[0], "hello world"))
	require.Contains(t, lines[1], " WARN ")
	require.True(t, strings.HasSuffix(lines[1], "count 123"))
}

func TestLog_NoOpWhenUnset(t *testing.T) {
	t.Setenv("FINGERPRINT_LOG_FILE", "")
	Log("should not %s", "panic")
	Warn("should not %s", "panic either")
}

func TestLog_NoOpWhenPathIsDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FINGERPRINT_LOG_FILE", dir)

	Log("ignored %d", 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
