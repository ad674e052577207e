package livechat

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config controls how the SDK connects.
type Config struct {
	URL              string        `toml:"url"`     // sync engine websocket endpoint
	APIURL           string        `toml:"api_url"` // identity provider base URL
	AppID            string        `toml:"app_id"`
	Token            string        `toml:"token"` // refresh token from a previous sign-in
	HandshakeTimeout time.Duration `toml:"handshake_timeout"`
	ReadTimeout      time.Duration `toml:"read_timeout"`
	WriteTimeout     time.Duration `toml:"write_timeout"`
	PingInterval     time.Duration `toml:"ping_interval"` // keepalive; 0 disables

	// TypingThrottle bounds how often a keystroke re-sends the typing signal.
	TypingThrottle time.Duration `toml:"typing_throttle"`
	// TypingTimeout clears the local typing signal after this much inactivity.
	TypingTimeout time.Duration `toml:"typing_timeout"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
		TypingThrottle:   time.Second,
		TypingTimeout:    time.Second,
	}
}

// Validate reports an ErrorInvalidConfig describing the first problem found.
func (c Config) Validate() error {
	if c.URL == "" {
		return NewError(ErrorInvalidConfig, "empty URL")
	}
	if c.AppID == "" {
		return NewError(ErrorInvalidConfig, "empty app id")
	}
	if c.TypingTimeout < 0 || c.TypingThrottle < 0 || c.PingInterval < 0 {
		return NewError(ErrorInvalidConfig, "negative interval")
	}
	return nil
}

// LoadConfig starts from DefaultConfig, overlays the TOML file at path (skipped
// when path is empty) and then the LIVECHAT_* environment variables.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, WrapError(ErrorInvalidConfig, fmt.Sprintf("decode %s", path), err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("LIVECHAT_URL"); v != "" {
		cfg.URL = v
	}
	if v := os.Getenv("LIVECHAT_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("LIVECHAT_APP_ID"); v != "" {
		cfg.AppID = v
	}
	if v := os.Getenv("LIVECHAT_TOKEN"); v != "" {
		cfg.Token = v
	}
}
