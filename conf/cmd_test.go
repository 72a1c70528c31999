package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCLI(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "c.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"quality":"low","cache_size":7,"volume":0.4}`), 0o644))

	opts, err := ParseCLI([]string{"-config", cfgPath, "-quality=high", "-fps", "12", "-color", "-v", "movie.mp4"})
	require.NoError(t, err)
	assert.Equal(t, "movie.mp4", opts.MediaPath)
	assert.Equal(t, cfgPath, opts.ConfigPath)
	assert.True(t, opts.Verbose)
	assert.Equal(t, "high", opts.Config.Quality, "flag wins over file")
	assert.Equal(t, 12.0, opts.Config.FPS)
	assert.True(t, opts.Config.Color)
	assert.Equal(t, 7, opts.Config.CacheSize, "file value kept when no flag")
	assert.Equal(t, 0.4, opts.Config.Volume)

	reloaded := opts.Apply(Config{Quality: "low", CacheSize: 9, Volume: 1})
	assert.Equal(t, "high", reloaded.Quality)
	assert.Equal(t, 9, reloaded.CacheSize)
}

func TestParseCLIErrors(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no media", nil, "missing media file"},
		{"extra args", []string{"a.mp4", "b.mp4"}, "unexpected extra"},
		{"unknown flag", []string{"-wat", "a.mp4"}, "unknown flag"},
		{"missing value", []string{"a.mp4", "-fps"}, "requires a value"},
		{"bad number", []string{"-cache", "lots", "a.mp4"}, "invalid value"},
		{"bad quality", []string{"-quality", "ultra", "a.mp4"}, "ultra"},
		{"bad strategy", []string{"-strategy", "guess", "a.mp4"}, "guess"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCLI(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := ParseCLI([]string{"-h"})
	assert.ErrorIs(t, err, ErrHelp)
}

func TestParseCLIVersionNeedsNoMedia(t *testing.T) {
	opts, err := ParseCLI([]string{"-version"})
	require.NoError(t, err)
	assert.True(t, opts.ShowVersion)
}

func TestParseCLIDoubleDash(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	opts, err := ParseCLI([]string{"-prefetch", "4", "--", "-odd-name.mp4"})
	require.NoError(t, err)
	assert.Equal(t, "-odd-name.mp4", opts.MediaPath)
	assert.Equal(t, 4, opts.Config.Prefetch)
}
