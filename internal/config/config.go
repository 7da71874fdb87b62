package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the statecraft configuration file (statecraft.yaml).
type Config struct {
	Log      LogConfig      `yaml:"log" json:"log"`
	HTTP     HTTPConfig     `yaml:"http" json:"http"`
	Network  NetworkConfig  `yaml:"network" json:"network"`
	Toast    ToastConfig    `yaml:"toast" json:"toast"`
	Simulate SimulateConfig `yaml:"simulate" json:"simulate"`
	Store    StoreConfig    `yaml:"store" json:"store"`
	// Seed makes generated data reproducible. Zero picks a random seed.
	Seed uint64 `yaml:"seed" json:"seed"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

type NetworkConfig struct {
	// BaselineDelayMS seeds the connection delay held in context.
	BaselineDelayMS int `yaml:"baseline_delay_ms" json:"baseline_delay_ms"`
	// ConnectDelayMS is used by CONNECT events that carry no delay.
	ConnectDelayMS int `yaml:"connect_delay_ms" json:"connect_delay_ms"`
}

type ToastConfig struct {
	DefaultDurationMS int `yaml:"default_duration_ms" json:"default_duration_ms"`
	HideDelayMS       int `yaml:"hide_delay_ms" json:"hide_delay_ms"`
}

type SimulateConfig struct {
	RemoteEdits bool `yaml:"remote_edits" json:"remote_edits"`
	Syncer      bool `yaml:"syncer" json:"syncer"`
	MinDelayMS  int  `yaml:"min_delay_ms" json:"min_delay_ms"`
	MaxDelayMS  int  `yaml:"max_delay_ms" json:"max_delay_ms"`
	WarmupMS    int  `yaml:"warmup_ms" json:"warmup_ms"`
}

type StoreConfig struct {
	// Backend is one of "none", "memory", "file" or "redis".
	Backend string      `yaml:"backend" json:"backend"`
	Dir     string      `yaml:"dir" json:"dir"`
	Redis   RedisConfig `yaml:"redis" json:"redis"`
	// EncryptionKey is a base64 AES-256 key. When set, snapshots are
	// encrypted at rest. STATECRAFT_ENCRYPTION_KEY overrides it.
	EncryptionKey string `yaml:"encryption_key" json:"encryption_key"`
	// FallbackKeys decrypt snapshots written before a key rotation.
	FallbackKeys []string `yaml:"fallback_keys" json:"fallback_keys"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr" json:"addr"`
	Password   string `yaml:"password" json:"password"`
	DB         int    `yaml:"db" json:"db"`
	Prefix     string `yaml:"prefix" json:"prefix"`
	TTLSeconds int    `yaml:"ttl_seconds" json:"ttl_seconds"`
	Lock       bool   `yaml:"lock" json:"lock"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Log:  LogConfig{Level: "info", Format: "text"},
		HTTP: HTTPConfig{Addr: ":8080"},
		Network: NetworkConfig{
			BaselineDelayMS: 500,
			ConnectDelayMS:  800,
		},
		Toast: ToastConfig{
			DefaultDurationMS: 6000,
			HideDelayMS:       300,
		},
		Simulate: SimulateConfig{
			RemoteEdits: true,
			Syncer:      true,
			MinDelayMS:  1000,
			MaxDelayMS:  3000,
			WarmupMS:    300,
		},
		Store: StoreConfig{
			Backend: "memory",
			Dir:     filepath.Join(".statecraft", "snapshots"),
			Redis:   RedisConfig{Addr: "localhost:6379", Prefix: "statecraft:"},
		},
	}
}

// Load reads a YAML or JSON file over the defaults. A missing file yields the
// defaults; any other read or parse failure is returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// EncryptionKeyEnv names the environment variable that overrides
// store.encryption_key.
const EncryptionKeyEnv = "STATECRAFT_ENCRYPTION_KEY"

// ApplyEnv overlays settings that are better kept out of files.
func (c *Config) ApplyEnv() {
	if key := os.Getenv(EncryptionKeyEnv); key != "" {
		c.Store.EncryptionKey = key
	}
}

// Validate rejects values the runtime cannot work with.
func (c Config) Validate() error {
	if c.Network.ConnectDelayMS < 0 || c.Network.BaselineDelayMS < 0 {
		return fmt.Errorf("network delays must not be negative")
	}
	if c.Toast.DefaultDurationMS <= 0 {
		return fmt.Errorf("toast.default_duration_ms must be positive")
	}
	if c.Toast.HideDelayMS < 0 {
		return fmt.Errorf("toast.hide_delay_ms must not be negative")
	}
	if c.Simulate.MinDelayMS < 0 || c.Simulate.MaxDelayMS < c.Simulate.MinDelayMS {
		return fmt.Errorf("simulate delays must satisfy 0 <= min_delay_ms <= max_delay_ms")
	}
	switch c.Store.Backend {
	case "", "none", "memory", "file", "redis":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if _, _, err := c.Store.Keys(); err != nil {
		return err
	}
	return nil
}

// Keys decodes the encryption keys. A nil active key means encryption is off.
func (s StoreConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		if len(s.FallbackKeys) > 0 {
			return nil, nil, fmt.Errorf("store.fallback_keys requires store.encryption_key")
		}
		return nil, nil, nil
	}
	active, err = decodeKey(s.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("store.encryption_key: %w", err)
	}
	for i, raw := range s.FallbackKeys {
		key, err := decodeKey(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("store.fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(raw string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// ConnectDelay returns the default CONNECT delay.
func (n NetworkConfig) ConnectDelay() time.Duration { return ms(n.ConnectDelayMS) }

// BaselineDelay returns the initial context delay.
func (n NetworkConfig) BaselineDelay() time.Duration { return ms(n.BaselineDelayMS) }

// DefaultDuration returns the display time of toasts that set none.
func (t ToastConfig) DefaultDuration() time.Duration { return ms(t.DefaultDurationMS) }

// HideDelay returns the time a toast spends hiding before removal.
func (t ToastConfig) HideDelay() time.Duration { return ms(t.HideDelayMS) }

// MinDelay returns the lower bound of simulator pacing.
func (s SimulateConfig) MinDelay() time.Duration { return ms(s.MinDelayMS) }

// MaxDelay returns the upper bound of simulator pacing.
func (s SimulateConfig) MaxDelay() time.Duration { return ms(s.MaxDelayMS) }

// Warmup returns the delay before the syncer starts a document.
func (s SimulateConfig) Warmup() time.Duration { return ms(s.WarmupMS) }

// TTL returns the redis key expiry; zero means no expiry.
func (r RedisConfig) TTL() time.Duration { return time.Duration(r.TTLSeconds) * time.Second }
