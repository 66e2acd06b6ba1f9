package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_ParsesFields(t *testing.T) {
	p := filepath.Join(t.TempDir(), "fingerprint.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
session: build-42
materialize_whitelist:
  - vendor/toolchain
  - third_party/sdk
inline_threshold_bytes: 128
parallelism: 2
`), 0o644))

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "build-42", cfg.Session)
	require.Equal(t, []string{"vendor/toolchain", "third_party/sdk"}, cfg.MaterializeWhitelist)
	require.Equal(t, 128, cfg.InlineThresholdBytes)
	require.Equal(t, 2, cfg.Parallelism)
}

func TestLoad_MalformedFileFails(t *testing.T) {
	p := filepath.Join(t.TempDir(), "fingerprint.yaml")
	require.NoError(t, os.WriteFile(p, []byte("session: [unclosed"), 0o644))

	_, err := Load(p)
	require.ErrorContains(t, err, "parse config")
}

func TestLoad_ClampsParallelism(t *testing.T) {
	p := filepath.Join(t.TempDir(), "fingerprint.yaml")
	require.NoError(t, os.WriteFile(p, []byte("parallelism: 0\n"), 0o644))

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig().Parallelism, cfg.Parallelism)
}

func TestLoad_RejectsNegativeThreshold(t *testing.T) {
	p := filepath.Join(t.TempDir(), "fingerprint.yaml")
	require.NoError(t, os.WriteFile(p, []byte("inline_threshold_bytes: -1\n"), 0o644))

	_, err := Load(p)
	require.ErrorContains(t, err, "inline_threshold_bytes")
}
