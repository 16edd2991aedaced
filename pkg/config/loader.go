package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ROOMCRAFT"

// Loader reads a configuration file on top of the defaults and applies
// environment overrides.
type Loader struct {
	envPrefix string
	defaults  func() *Config
	getenv    func(string) string
}

// NewLoader returns a loader using DefaultConfig and the process
// environment.
func NewLoader() *Loader {
	return &Loader{envPrefix: EnvPrefix, defaults: DefaultConfig, getenv: os.Getenv}
}

// SetEnvPrefix changes the environment variable prefix.
func (l *Loader) SetEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load reads filename, which may be empty to use the defaults only. Keys
// absent from the file keep their default values.
func (l *Loader) Load(filename string) (*Config, error) {
	cfg := l.defaults()
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", filename, err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", filename, err)
		}
	}
	if err := l.applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("config environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, leaving fields the document does not
// mention untouched.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func (l *Loader) env(key string) string {
	return l.getenv(l.envPrefix + "_" + key)
}

func (l *Loader) applyEnv(cfg *Config) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"ASSET_ROOT", &cfg.Assets.Root},
		{"ASSET_BASE_URL", &cfg.Assets.BaseURL},
		{"STORE_BACKEND", &cfg.Store.Backend},
		{"STORE_DIR", &cfg.Store.Dir},
		{"STORE_KEY", &cfg.Store.DefaultKey},
		{"REDIS_ADDR", &cfg.Store.Redis.Addr},
		{"REDIS_PASSWORD", &cfg.Store.Redis.Password},
		{"REDIS_PREFIX", &cfg.Store.Redis.Prefix},
		{"LOG_LEVEL", &cfg.Log.Level},
		{"LOG_FORMAT", &cfg.Log.Format},
	}
	for _, s := range strs {
		if v := l.env(s.key); v != "" {
			*s.dst = v
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"FETCH_RETRIES", &cfg.Assets.Retries},
		{"REDIS_DB", &cfg.Store.Redis.DB},
		{"MESH_RESOLUTION", &cfg.Mesh.Resolution},
	}
	for _, i := range ints {
		if v := l.env(i.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s_%s: %w", l.envPrefix, i.key, err)
			}
			*i.dst = n
		}
	}

	durs := []struct {
		key string
		dst *time.Duration
	}{
		{"FETCH_TIMEOUT", &cfg.Assets.Timeout},
		{"SCRIPT_TIMEOUT", &cfg.Script.Timeout},
	}
	for _, d := range durs {
		if v := l.env(d.key); v != "" {
			dur, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s_%s: %w", l.envPrefix, d.key, err)
			}
			*d.dst = dur
		}
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"ROOM_WIDTH", &cfg.Room.Width},
		{"ROOM_DEPTH", &cfg.Room.Depth},
		{"ROOM_HEIGHT", &cfg.Room.Height},
		{"ROOM_THICKNESS", &cfg.Room.Thickness},
	}
	for _, f := range floats {
		if v := l.env(f.key); v != "" {
			x, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s_%s: %w", l.envPrefix, f.key, err)
			}
			*f.dst = x
		}
	}
	return nil
}
