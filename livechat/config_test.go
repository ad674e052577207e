package livechat

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "livechat.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
url = "wss://sync.example.com/ws"
app_id = "from-file"
typing_timeout = "3s"
ping_interval = "0s"
`), 0o600))
	t.Setenv("LIVECHAT_APP_ID", "from-env")
	t.Setenv("LIVECHAT_TOKEN", "tok")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "wss://sync.example.com/ws", cfg.URL)
	require.Equal(t, "from-env", cfg.AppID)
	require.Equal(t, "tok", cfg.Token)
	require.Equal(t, 3*time.Second, cfg.TypingTimeout)
	require.Zero(t, cfg.PingInterval)
	require.Equal(t, DefaultConfig().HandshakeTimeout, cfg.HandshakeTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("LIVECHAT_URL", "ws://localhost:8080/ws")
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:8080/ws", cfg.URL)
}

func TestLoadConfigBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("url = ["), 0o600))
	_, err := LoadConfig(path)
	require.True(t, IsConfigError(err))
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.True(t, IsConfigError(cfg.Validate()))

	cfg.URL = "ws://x"
	require.True(t, IsConfigError(cfg.Validate()))

	cfg.AppID = "app"
	require.NoError(t, cfg.Validate())

	cfg.TypingThrottle = -time.Second
	require.True(t, IsConfigError(cfg.Validate()))
}
