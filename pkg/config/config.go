// Package config loads editor settings from YAML with environment
// overrides and can watch the file for changes.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/chazu/roomcraft/pkg/scene"
)

// Validation errors.
var (
	ErrInvalidRoom       = errors.New("invalid room dimensions")
	ErrInvalidBackend    = errors.New("invalid store backend")
	ErrInvalidLogLevel   = errors.New("invalid log level")
	ErrInvalidResolution = errors.New("invalid mesh resolution")
	ErrInvalidCatalog    = errors.New("invalid catalog entry")
	ErrInvalidFetch      = errors.New("invalid fetch settings")
)

// Store backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config is the complete editor configuration.
type Config struct {
	Room    scene.Room     `yaml:"room"`
	Assets  AssetsConfig   `yaml:"assets"`
	Store   StoreConfig    `yaml:"store"`
	Mesh    MeshConfig     `yaml:"mesh"`
	Script  ScriptConfig   `yaml:"script"`
	Log     LogConfig      `yaml:"log"`
	Catalog []CatalogEntry `yaml:"catalog"`
}

// AssetsConfig controls where furniture assets are fetched from.
type AssetsConfig struct {
	Root    string        `yaml:"root"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	Retries int           `yaml:"retries"`
}

// StoreConfig selects where saved rooms live.
type StoreConfig struct {
	Backend    string      `yaml:"backend"`
	Dir        string      `yaml:"dir"`
	DefaultKey string      `yaml:"default_key"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig is used when Backend is "redis".
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// MeshConfig controls viewport tessellation.
type MeshConfig struct {
	Resolution int `yaml:"resolution"`
}

// ScriptConfig controls the command console.
type ScriptConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// LogConfig is passed to logging.New.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CatalogEntry is one furniture item offered by the UI.
type CatalogEntry struct {
	DisplayName string `yaml:"name" json:"displayName"`
	Path        string `yaml:"path" json:"path"`
}

// DefaultCatalog lists the bundled models.
func DefaultCatalog() []CatalogEntry {
	return []CatalogEntry{
		{DisplayName: "Chair", Path: "/models/chair.glb"},
		{DisplayName: "Table", Path: "/models/table.glb"},
		{DisplayName: "Sofa", Path: "/models/sofa.glb"},
	}
}

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Room: scene.DefaultRoom(),
		Assets: AssetsConfig{
			Root:    "public",
			Timeout: 30 * time.Second,
			Retries: 2,
		},
		Store: StoreConfig{
			Backend:    BackendFile,
			Dir:        "rooms",
			DefaultKey: "roomScene",
			Redis:      RedisConfig{Addr: "localhost:6379", Prefix: "roomcraft:"},
		},
		Mesh:    MeshConfig{Resolution: 24},
		Script:  ScriptConfig{Timeout: 5 * time.Second},
		Log:     LogConfig{Level: "info", Format: "json"},
		Catalog: DefaultCatalog(),
	}
}

// Validate checks the configuration for values the editor cannot use.
func (c *Config) Validate() error {
	if err := c.Room.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRoom, err)
	}
	if c.Assets.Timeout < 0 || c.Assets.Retries < 0 {
		return ErrInvalidFetch
	}
	switch c.Store.Backend {
	case BackendFile:
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("%w: redis backend needs an address", ErrInvalidBackend)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, c.Store.Backend)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	if c.Mesh.Resolution < 4 || c.Mesh.Resolution > 512 {
		return fmt.Errorf("%w: %d", ErrInvalidResolution, c.Mesh.Resolution)
	}
	for i, e := range c.Catalog {
		if e.DisplayName == "" || e.Path == "" {
			return fmt.Errorf("%w: entry %d needs a name and a path", ErrInvalidCatalog, i)
		}
	}
	return nil
}
