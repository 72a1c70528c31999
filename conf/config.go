package conf

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/svanichkin/asciiplay/codec"
	"github.com/svanichkin/asciiplay/source"
)

const (
	appName = "asciiplay"

	DefaultCacheSize    = 50
	DefaultExtractFPS   = 10.0
	DefaultPollInterval = 33
	MaxCacheSize        = 10000
	MaxPrefetch         = 64
)

// Config is the on-disk player configuration.
type Config struct {
	Quality        string  `json:"quality"`
	FPS            float64 `json:"fps"`
	CacheSize      int     `json:"cache_size"`
	CompressCache  bool    `json:"compress_cache"`
	Strategy       string  `json:"strategy"`
	ExtractFPS     float64 `json:"extract_fps"`
	WorkDir        string  `json:"work_dir,omitempty"`
	Prefetch       int     `json:"prefetch"`
	PollIntervalMS int     `json:"poll_interval_ms"`
	Color          bool    `json:"color"`
	Volume         float64 `json:"volume"`
	Muted          bool    `json:"muted"`
	FFmpeg         string  `json:"ffmpeg,omitempty"`
	FFprobe        string  `json:"ffprobe,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Quality:        codec.QualityMedium.String(),
		CacheSize:      DefaultCacheSize,
		Strategy:       source.StrategySeek.String(),
		ExtractFPS:     DefaultExtractFPS,
		PollIntervalMS: DefaultPollInterval,
		Volume:         1,
	}
}

// Validate rejects unknown names and clamps numeric fields into their safe ranges.
func (c *Config) Validate() error {
	q, err := codec.ParseQuality(c.Quality)
	if err != nil {
		return err
	}
	c.Quality = q.String()
	s, err := source.ParseStrategy(c.Strategy)
	if err != nil {
		return err
	}
	c.Strategy = s.String()

	if c.FPS < 0 || math.IsNaN(c.FPS) {
		c.FPS = 0
	}
	if c.FPS > 60 {
		c.FPS = 60
	}
	if c.FPS > 0 && c.FPS < 1 {
		c.FPS = 1
	}
	c.CacheSize = clampInt(c.CacheSize, 1, MaxCacheSize, DefaultCacheSize)
	if c.ExtractFPS <= 0 || math.IsNaN(c.ExtractFPS) {
		c.ExtractFPS = DefaultExtractFPS
	}
	if c.ExtractFPS > 60 {
		c.ExtractFPS = 60
	}
	if c.Prefetch < 0 {
		c.Prefetch = 0
	}
	if c.Prefetch > MaxPrefetch {
		c.Prefetch = MaxPrefetch
	}
	c.PollIntervalMS = clampInt(c.PollIntervalMS, 5, 1000, DefaultPollInterval)
	if c.Volume < 0 || math.IsNaN(c.Volume) {
		c.Volume = 0
	}
	if c.Volume > 1 {
		c.Volume = 1
	}
	c.WorkDir = strings.TrimSpace(c.WorkDir)
	c.FFmpeg = strings.TrimSpace(c.FFmpeg)
	c.FFprobe = strings.TrimSpace(c.FFprobe)
	return nil
}

func clampInt(v, lo, hi, def int) int {
	if v == 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (c Config) QualityLevel() codec.Quality {
	q, err := codec.ParseQuality(c.Quality)
	if err != nil {
		return codec.QualityMedium
	}
	return q
}

func (c Config) StrategyKind() source.Strategy {
	s, _ := source.ParseStrategy(c.Strategy)
	return s
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if len(strings.TrimSpace(string(b))) > 0 {
		if err := json.Unmarshal(b, &cfg); err != nil {
			return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config atomically, creating the parent directory when needed.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(path, append(b, '\n'), 0o644)
}

// Update loads path, applies fn and saves the result.
func Update(path string, fn func(*Config)) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	before := cfg
	fn(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg == before {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil
		}
	}
	return cfg.Save(path)
}

// resolveConfigPath normalizes the config file path, expanding "~", converting it
// to an absolute path, and ensuring the parent directory exists. When cfg is empty,
// it defaults to $XDG_CONFIG_HOME/asciiplay/config.json or ~/.config/asciiplay/config.json.
// A bare name without an extension (e.g. "night") is a profile inside the default
// config directory ("night.json").
func resolveConfigPath(cfg string) (string, error) {
	resolved, err := resolveConfigPathRaw(cfg)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return resolved, nil
}

func resolveConfigPathRaw(cfg string) (string, error) {
	raw := strings.TrimSpace(cfg)

	switch {
	case raw == "":
		if dir, err := DefaultConfigDir(); err == nil {
			raw = filepath.Join(dir, "config.json")
		} else {
			raw = "config.json"
		}
	case filepath.Base(raw) == raw && filepath.Ext(raw) == "":
		if dir, err := DefaultConfigDir(); err == nil {
			raw = filepath.Join(dir, raw+".json")
		} else {
			raw = raw + ".json"
		}
	}

	cfg = raw
	if strings.HasPrefix(cfg, "~/") {
		h, err := os.UserHomeDir()
		if err == nil {
			cfg = filepath.Join(h, cfg[2:])
		}
	}
	abs, err := filepath.Abs(cfg)
	if err == nil {
		cfg = abs
	}
	return cfg, nil
}

// DefaultConfigDir is the per-user directory for config and log files.
func DefaultConfigDir() (string, error) {
	d, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, appName), nil
}
