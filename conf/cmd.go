package conf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrHelp is returned by ParseCLI when usage was requested.
var ErrHelp = errors.New("help requested")

const Usage = `usage: asciiplay [flags] <media file>

flags:
  -config <path|profile>   config file or profile name
  -quality low|medium|high ASCII quality level
  -fps <n>                 playback frame rate (1..60, 0 follows the clip)
  -cache <n>               decoded frame cache size
  -strategy seek|extract   how frames are read from video
  -extract-fps <n>         sample rate for -strategy extract
  -prefetch <n>            frames decoded ahead in the background
  -color                   truecolor half-block output
  -v                       verbose logging
  -version                 print version and exit

keys: space play/pause, ←/→ step, [ ] frame rate, + - volume, m mute,
      t quality, c colour, y copy frame, q quit`

// AppOptions aggregates all CLI flags and configuration options required by the application.
type AppOptions struct {
	Verbose     bool
	ShowVersion bool
	ConfigPath  string
	MediaPath   string
	Config      Config

	overrides []func(*Config)
}

// Apply re-applies command-line overrides on top of a freshly loaded config,
// so flags keep winning over the file after a reload.
func (opts *AppOptions) Apply(cfg Config) Config {
	for _, fn := range opts.overrides {
		fn(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return opts.Config
	}
	return cfg
}

// ParseCLI parses command-line arguments (without the program name), resolves the
// config path and loads the config file with flag overrides applied.
func ParseCLI(args []string) (*AppOptions, error) {
	opts := &AppOptions{}

	rawArgs := compactArgs(args)
	flagTokens, consumed := collectDashPrefixedArgs(rawArgs)
	if err := applyFlagTokens(flagTokens, opts); err != nil {
		return nil, err
	}
	if opts.ShowVersion {
		return opts, nil
	}

	extra := remainingArgs(rawArgs, consumed)
	switch {
	case len(extra) == 0:
		return nil, fmt.Errorf("missing media file\n\n%s", Usage)
	case len(extra) > 1:
		return nil, fmt.Errorf("unexpected extra positional arguments: %v", extra[1:])
	}
	opts.MediaPath = extra[0]

	resolved, err := resolveConfigPath(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("config path error: %w", err)
	}
	opts.ConfigPath = resolved

	cfg, err := Load(resolved)
	if err != nil {
		return nil, err
	}
	opts.Config = opts.Apply(cfg)
	return opts, nil
}

func compactArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	out := make([]string, 0, len(args))
	for _, raw := range args {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func collectDashPrefixedArgs(args []string) ([]string, map[int]struct{}) {
	consumed := make(map[int]struct{})
	if len(args) == 0 {
		return nil, consumed
	}
	flags := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		token := args[i]
		if token == "--" {
			consumed[i] = struct{}{}
			break
		}
		if !strings.HasPrefix(token, "-") || token == "-" {
			continue
		}
		consumed[i] = struct{}{}
		keyToken := token
		if idx := strings.Index(token, "="); idx != -1 {
			keyToken = token[:idx]
		}
		key := normalizeFlagKey(keyToken)
		combined := token
		if !strings.Contains(token, "=") && flagRequiresValue(key) && i+1 < len(args) {
			next := args[i+1]
			if next != "--" && (!strings.HasPrefix(next, "-") || isNumber(next)) {
				consumed[i+1] = struct{}{}
				combined = fmt.Sprintf("%s=%s", token, next)
				i++
			}
		}
		flags = append(flags, combined)
	}
	return flags, consumed
}

func remainingArgs(args []string, consumed map[int]struct{}) []string {
	if len(args) == 0 {
		return nil
	}
	extra := make([]string, 0, len(args))
	for idx, token := range args {
		if _, ok := consumed[idx]; ok {
			continue
		}
		extra = append(extra, token)
	}
	return extra
}

func applyFlagTokens(tokens []string, opts *AppOptions) error {
	for _, token := range tokens {
		key, value, hasValue := splitFlagToken(token)
		if flagRequiresValue(key) && (!hasValue || value == "") {
			return fmt.Errorf("-%s requires a value", key)
		}
		switch key {
		case "h", "help":
			return ErrHelp
		case "v", "verbose":
			b, err := parseBoolFlag(key, value, hasValue)
			if err != nil {
				return err
			}
			opts.Verbose = b
		case "version":
			opts.ShowVersion = true
		case "config":
			if opts.ConfigPath != "" && opts.ConfigPath != value {
				return fmt.Errorf("-config specified multiple times")
			}
			opts.ConfigPath = value
		case "quality":
			q := value
			opts.overrides = append(opts.overrides, func(c *Config) { c.Quality = q })
		case "strategy":
			s := value
			opts.overrides = append(opts.overrides, func(c *Config) { c.Strategy = s })
		case "fps":
			f, err := parseFloatFlag(key, value)
			if err != nil {
				return err
			}
			opts.overrides = append(opts.overrides, func(c *Config) { c.FPS = f })
		case "extract-fps":
			f, err := parseFloatFlag(key, value)
			if err != nil {
				return err
			}
			opts.overrides = append(opts.overrides, func(c *Config) { c.ExtractFPS = f })
		case "cache":
			n, err := parseIntFlag(key, value)
			if err != nil {
				return err
			}
			opts.overrides = append(opts.overrides, func(c *Config) { c.CacheSize = n })
		case "prefetch":
			n, err := parseIntFlag(key, value)
			if err != nil {
				return err
			}
			opts.overrides = append(opts.overrides, func(c *Config) { c.Prefetch = n })
		case "color", "colour":
			b, err := parseBoolFlag(key, value, hasValue)
			if err != nil {
				return err
			}
			opts.overrides = append(opts.overrides, func(c *Config) { c.Color = b })
		default:
			return fmt.Errorf("unknown flag %q", token)
		}
	}
	// Validate names early so typos fail before the file is read.
	probe := DefaultConfig()
	for _, fn := range opts.overrides {
		fn(&probe)
	}
	return probe.Validate()
}

func parseBoolFlag(key, value string, hasValue bool) (bool, error) {
	if !hasValue || value == "" {
		return true, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid value for -%s: %q", key, value)
	}
	return b, nil
}

func parseFloatFlag(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for -%s: %q", key, value)
	}
	return f, nil
}

func parseIntFlag(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for -%s: %q", key, value)
	}
	return n, nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func splitFlagToken(token string) (string, string, bool) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", "", false
	}
	parts := strings.SplitN(trimmed, "=", 2)
	key := normalizeFlagKey(parts[0])
	if len(parts) == 1 {
		return key, "", false
	}
	return key, parts[1], true
}

func normalizeFlagKey(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimLeft(trimmed, "-")
	return strings.ToLower(trimmed)
}

func flagRequiresValue(key string) bool {
	switch key {
	case "config", "quality", "fps", "cache", "strategy", "extract-fps", "prefetch":
		return true
	default:
		return false
	}
}
