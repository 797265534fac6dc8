// Package config provides configuration types and defaults for loom.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/loomterm/loom/internal/log"
)

// ProfileConfig defines a named launch profile for new panes.
type ProfileConfig struct {
	Name   string `mapstructure:"name"`
	Shell  string `mapstructure:"shell"`  // absolute path or command on $PATH
	Distro string `mapstructure:"distro"` // container to enter, empty = host
	Cwd    string `mapstructure:"cwd"`    // starting directory, empty = inherit
}

// Config holds all configuration options for loom.
type Config struct {
	Shell    string          `mapstructure:"shell"`  // default shell, empty = $SHELL
	Distro   string          `mapstructure:"distro"` // default distro, empty = host
	Profiles []ProfileConfig `mapstructure:"profiles"`
	Session  SessionConfig   `mapstructure:"session"`
	UI       UIConfig        `mapstructure:"ui"`
	Tracing  TracingConfig   `mapstructure:"tracing"`
	Debug    bool            `mapstructure:"debug"`
}

// SessionConfig holds session lifecycle tuning.
type SessionConfig struct {
	// ResizeDebounceMS is the quiet period before a pane resize reaches the
	// PTY, in milliseconds. Default: 40.
	ResizeDebounceMS int `mapstructure:"resize_debounce_ms"`

	// ScrollbackLimit caps the per-session replay buffer in bytes.
	// Default: 1 MiB.
	ScrollbackLimit int `mapstructure:"scrollback_limit"`

	// DetachTTLMinutes is how long an exited session's scrollback stays
	// replayable. Default: 10.
	DetachTTLMinutes int `mapstructure:"detach_ttl_minutes"`
}

// ResizeDebounce returns the debounce quiet period as a duration.
func (s SessionConfig) ResizeDebounce() time.Duration {
	return time.Duration(s.ResizeDebounceMS) * time.Millisecond
}

// DetachTTL returns the scrollback retention window as a duration.
func (s SessionConfig) DetachTTL() time.Duration {
	return time.Duration(s.DetachTTLMinutes) * time.Minute
}

// UIConfig holds user interface configuration options.
type UIConfig struct {
	// SplitOrientation is the orientation used when the split key is pressed
	// without an explicit direction. Valid values: "horizontal", "vertical".
	SplitOrientation string `mapstructure:"split_orientation"`

	ShowStatusBar bool `mapstructure:"show_status_bar"`
}

// TracingConfig holds trace export configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active. Default: false.
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for the "file" exporter.
	// Default: ~/.config/loom/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// SampleRate controls trace sampling (0.0 to 1.0). Default: 1.0.
	SampleRate float64 `mapstructure:"sample_rate"`
}

// DefaultTracesFilePath returns the default path for trace file export, or
// empty string if the home dir is unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "loom", "traces", "traces.jsonl")
}

// DefaultWorkspacePath returns the default sqlite database path for saved
// workspaces, or empty string if the home dir is unavailable.
func DefaultWorkspacePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".loom", "workspace.db")
}

// ValidateProfiles checks profile configuration for errors. Returns nil when
// profiles are empty.
func ValidateProfiles(profiles []ProfileConfig) error {
	seen := make(map[string]bool, len(profiles))
	for i, p := range profiles {
		if p.Name == "" {
			return fmt.Errorf("profile %d: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("profile %d: duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true
		if p.Cwd != "" && !filepath.IsAbs(p.Cwd) {
			return fmt.Errorf("profile %d (%s): cwd must be an absolute path, got %q", i, p.Name, p.Cwd)
		}
	}
	return nil
}

// ValidateSession checks session tuning for errors. Zero values use defaults.
func ValidateSession(s SessionConfig) error {
	if s.ResizeDebounceMS < 0 {
		return fmt.Errorf("session.resize_debounce_ms must not be negative, got %d", s.ResizeDebounceMS)
	}
	if s.ScrollbackLimit < 0 {
		return fmt.Errorf("session.scrollback_limit must not be negative, got %d", s.ScrollbackLimit)
	}
	if s.DetachTTLMinutes < 0 {
		return fmt.Errorf("session.detach_ttl_minutes must not be negative, got %d", s.DetachTTLMinutes)
	}
	return nil
}

// ValidateUI checks UI configuration for errors.
func ValidateUI(ui UIConfig) error {
	switch ui.SplitOrientation {
	case "", "horizontal", "vertical":
		return nil
	default:
		return fmt.Errorf("ui.split_orientation must be \"horizontal\" or \"vertical\", got %q", ui.SplitOrientation)
	}
}

// ValidateTracing checks tracing configuration for errors. Returns nil if the
// configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout":
			// Valid
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", or \"stdout\", got %q", tracing.Exporter)
		}
	}

	if tracing.Enabled && tracing.Exporter == "file" && tracing.FilePath == "" {
		return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
	}

	return nil
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := ValidateProfiles(c.Profiles); err != nil {
		return err
	}
	if err := ValidateSession(c.Session); err != nil {
		return err
	}
	if err := ValidateUI(c.UI); err != nil {
		return err
	}
	return ValidateTracing(c.Tracing)
}

// Profile returns the named profile, falling back to the top-level shell and
// distro defaults when the name is empty or unknown.
func (c Config) Profile(name string) ProfileConfig {
	for _, p := range c.Profiles {
		if p.Name == name {
			if p.Shell == "" {
				p.Shell = c.Shell
			}
			if p.Distro == "" {
				p.Distro = c.Distro
			}
			return p
		}
	}
	return ProfileConfig{Name: name, Shell: c.Shell, Distro: c.Distro}
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Shell:  "", // $SHELL at spawn time
		Distro: "",
		Session: SessionConfig{
			ResizeDebounceMS: 40,
			ScrollbackLimit:  1 << 20,
			DetachTTLMinutes: 10,
		},
		UI: UIConfig{
			SplitOrientation: "horizontal",
			ShowStatusBar:    true,
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Exporter:   "file",
			FilePath:   "", // Derived from config dir at runtime
			SampleRate: 1.0,
		},
	}
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Loom Configuration

# Default shell for new panes (default: $SHELL)
# shell: /bin/zsh

# Default container distro for new panes (default: run on host)
# distro: arch

# Named launch profiles - pick one when opening a tab or splitting a pane
# profiles:
#   - name: work
#     shell: /bin/zsh
#     cwd: /home/me/work
#   - name: arch-box
#     shell: /bin/bash
#     distro: arch

# Session lifecycle tuning
session:
  resize_debounce_ms: 40    # Quiet period before a resize reaches the PTY
  scrollback_limit: 1048576 # Replay buffer cap per session, in bytes
  detach_ttl_minutes: 10    # How long an exited session's output stays replayable

# UI settings
ui:
  split_orientation: horizontal # Orientation for the plain split key
  show_status_bar: true

# Trace export configuration
# tracing:
#   enabled: false       # Enable/disable tracing (default: false)
#   exporter: file       # Export backend: none, file, stdout (default: file)
#   file_path: ~/.config/loom/traces/traces.jsonl
#   sample_rate: 1.0     # Trace sampling rate 0.0-1.0 (default: 1.0)
`
}

// WriteDefaultConfig creates a config file at the given path with default
// settings and comments. Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
