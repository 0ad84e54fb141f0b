package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Url   string `json:"url"`
	User  string `json:"user"`
	Delay int    `json:"delay"`
}

func TestReadConfigWithLocalOverride(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "onet.json5")

	err := os.WriteFile(base, []byte(`{url: "https://example.org", delay: 2}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "onet.local.json5"), []byte(`{user: "me", delay: 5}`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](base)
	require.NoError(t, err)
	require.Equal(t, "https://example.org", cfg.Url)
	require.Equal(t, "me", cfg.User)
	require.Equal(t, 5, cfg.Delay)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "nope.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvFallback(t *testing.T) {
	t.Setenv("DATALAB_TEST_KEY", "from-env")

	require.Equal(t, "configured", Env("configured", "DATALAB_TEST_KEY"))
	require.Equal(t, "from-env", Env("", "DATALAB_TEST_KEY"))

	_, err := RequireEnv("", "DATALAB_TEST_KEY_MISSING")
	require.Error(t, err)
}
