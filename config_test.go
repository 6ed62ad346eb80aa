package cmsclient

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manas-swain-001/cms-client/pkg/constants"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("CMS_TEST_KEY", "set")
	assert.Equal(t, "set", GetEnvOrDefault("CMS_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", GetEnvOrDefault("CMS_TEST_KEY_MISSING", "fallback"))
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"CMS_CONFIG", "CMS_API_BASE_URL", "CMS_SOCKET_URL", "CMS_STORE_PATH", "CMS_STORE_SECRET", "CMS_DEBUG"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultAPIBaseURL, cfg.BaseURL)
	assert.NotEmpty(t, cfg.StorePath)
	assert.Equal(t, constants.DefaultRetries, cfg.Retries)
	assert.False(t, cfg.Debug)
}

func TestLoadConfigFromFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"base_url: https://file.example.com/api\nsocket_url: wss://file.example.com\nretries: 3\n",
	), 0o600))

	t.Setenv("CMS_CONFIG", path)
	t.Setenv("CMS_API_BASE_URL", "https://env.example.com/api")
	t.Setenv("CMS_SOCKET_URL", "")
	t.Setenv("CMS_STORE_PATH", "")
	t.Setenv("CMS_STORE_SECRET", "")
	t.Setenv("CMS_DEBUG", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/api", cfg.BaseURL, "env wins over file")
	assert.Equal(t, "wss://file.example.com", cfg.SocketURL, "file value survives when env empty")
	assert.Equal(t, 3, cfg.Retries)
	assert.True(t, cfg.Debug)
}

func TestLoadConfigBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cms.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o600))

	t.Setenv("CMS_CONFIG", path)
	_, err := LoadConfig()
	assert.Error(t, err)
}
