package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomterm/loom/internal/config"
)

func resetConfigState(t *testing.T) {
	t.Helper()
	viper.Reset()
	cfgFile = ""
	cfg = config.Config{}
	t.Cleanup(func() {
		viper.Reset()
		cfgFile = ""
		cfg = config.Config{}
	})
}

func TestInitConfig_WritesDefaultWhenMissing(t *testing.T) {
	resetConfigState(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	initConfig()

	written := filepath.Join(home, ".config", "loom", "config.yaml")
	_, err := os.Stat(written)
	require.NoError(t, err, "expected a default config file")
	assert.Equal(t, 40, cfg.Session.ResizeDebounceMS)
	assert.Equal(t, "horizontal", cfg.UI.SplitOrientation)
	assert.True(t, cfg.UI.ShowStatusBar)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestInitConfig_ExplicitFileOverridesDefaults(t *testing.T) {
	resetConfigState(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "shell: /bin/fish\nsession:\n  resize_debounce_ms: 80\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	cfgFile = path

	initConfig()

	assert.Equal(t, "/bin/fish", cfg.Shell)
	assert.Equal(t, 80, cfg.Session.ResizeDebounceMS)
	// Untouched keys keep their defaults.
	assert.Equal(t, 1<<20, cfg.Session.ScrollbackLimit)
}

func TestInitConfig_CurrentDirConfigWins(t *testing.T) {
	resetConfigState(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".loom"), 0o750))
	content := "distro: arch\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".loom", "config.yaml"), []byte(content), 0o600))

	initConfig()

	assert.Equal(t, "arch", cfg.Distro)
}
