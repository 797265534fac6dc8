package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loomterm/loom/internal/app"
	"github.com/loomterm/loom/internal/config"
	"github.com/loomterm/loom/internal/infrastructure/sqlite"
	"github.com/loomterm/loom/internal/layout"
	"github.com/loomterm/loom/internal/log"
	"github.com/loomterm/loom/internal/pty"
	"github.com/loomterm/loom/internal/tracing"
	"github.com/loomterm/loom/internal/workspace"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

var (
	version       = "dev"
	cfgFile       string
	debugMode     bool
	workspaceName string
	profileName   string
	cfg           config.Config
)

var rootCmd = &cobra.Command{
	Use:     "loom",
	Short:   "A multi-pane terminal workspace",
	Long:    `A terminal workspace with split panes per tab, detachable shell sessions, and saved layouts that reopen where you left off.`,
	Version: version,
	RunE:    runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/loom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false,
		"write debug logs to loom.log")
	rootCmd.Flags().StringVarP(&workspaceName, "workspace", "w", "",
		"saved workspace to restore; its layout is saved back on exit")
	rootCmd.Flags().StringVarP(&profileName, "profile", "p", "",
		"launch profile for new panes (see profile:list)")
	rootCmd.Flags().String("shell", "",
		"shell for new panes (default: $SHELL)")
	rootCmd.Flags().String("distro", "",
		"container distro to wrap new panes in (distrobox)")

	// Bind flags to viper
	_ = viper.BindPFlag("shell", rootCmd.Flags().Lookup("shell"))
	_ = viper.BindPFlag("distro", rootCmd.Flags().Lookup("distro"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("session.resize_debounce_ms", defaults.Session.ResizeDebounceMS)
	viper.SetDefault("session.scrollback_limit", defaults.Session.ScrollbackLimit)
	viper.SetDefault("session.detach_ttl_minutes", defaults.Session.DetachTTLMinutes)
	viper.SetDefault("ui.split_orientation", defaults.UI.SplitOrientation)
	viper.SetDefault("ui.show_status_bar", defaults.UI.ShowStatusBar)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .loom/config.yaml (current directory)
		// 2. ~/.config/loom/config.yaml (user config)
		if _, err := os.Stat(".loom/config.yaml"); err == nil {
			viper.SetConfigFile(".loom/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "loom"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create a commented default
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if home, herr := os.UserHomeDir(); herr == nil {
				defaultPath := filepath.Join(home, ".config", "loom", "config.yaml")
				if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
					viper.SetConfigFile(defaultPath)
					_ = viper.ReadInConfig()
				}
				// If write fails, just continue with defaults (no config file)
			}
		}
	}

	_ = viper.Unmarshal(&cfg)
}

func runApp(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := checkProfileName(profileName); err != nil {
		return err
	}

	if debugMode || cfg.Debug {
		cleanup, err := log.Init("loom.log")
		if err != nil {
			return fmt.Errorf("opening debug log: %w", err)
		}
		defer cleanup()
	}

	tracingCfg := tracing.Config{
		Enabled:    cfg.Tracing.Enabled,
		Exporter:   cfg.Tracing.Exporter,
		FilePath:   cfg.Tracing.FilePath,
		SampleRate: cfg.Tracing.SampleRate,
	}
	if tracingCfg.Enabled && tracingCfg.FilePath == "" {
		tracingCfg.FilePath = config.DefaultTracesFilePath()
	}
	provider, err := tracing.NewProvider(tracingCfg)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	backend := pty.NewLocalBackend(
		pty.WithScrollbackLimit(cfg.Session.ScrollbackLimit),
		pty.WithDetachTTL(cfg.Session.DetachTTL()),
	)
	defer backend.Shutdown()

	wsOpts := []workspace.Option{workspace.WithResizeDebounce(cfg.Session.ResizeDebounce())}
	if provider.Enabled() {
		wsOpts = append(wsOpts, workspace.WithTracer(provider.Tracer()))
	}
	ws := workspace.New(backend, wsOpts...)

	appOpts, err := workspaceStoreOptions(workspaceName)
	if err != nil {
		return err
	}
	if profileName != "" {
		appOpts = append(appOpts, app.WithProfile(profileName))
	}

	model := app.New(ws, cfg, appOpts...)
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// checkProfileName rejects a --profile value with no matching config entry.
// Config.Profile falls back to defaults on an unknown name, which would turn
// a typo into a silently wrong shell.
func checkProfileName(name string) error {
	if name == "" {
		return nil
	}
	for _, p := range cfg.Profiles {
		if p.Name == name {
			return nil
		}
	}
	return fmt.Errorf("unknown profile %q (see profile:list)", name)
}

// workspaceStoreOptions wires the sqlite store into the app when a named
// workspace was requested: its saved layout opens at startup and the live
// layout is written back on exit.
func workspaceStoreOptions(name string) ([]app.Option, error) {
	if name == "" {
		return nil, nil
	}

	db, err := sqlite.NewDB(config.DefaultWorkspacePath())
	if err != nil {
		return nil, fmt.Errorf("opening workspace store: %w", err)
	}
	repo := sqlite.NewWorkspaceRepository(db)

	opts := []app.Option{
		app.WithSaveFunc(func(roots []layout.Node) {
			if err := repo.Save(name, roots); err != nil {
				log.ErrorErr(log.CatStore, "save workspace", err, "workspace", name)
			}
			_ = db.Close()
		}),
	}

	record, err := repo.Load(name)
	if err != nil {
		var notFound *sqlite.WorkspaceNotFoundError
		if errors.As(err, &notFound) {
			// First run under this name: start fresh, save on exit.
			return opts, nil
		}
		_ = db.Close()
		return nil, fmt.Errorf("loading workspace %q: %w", name, err)
	}
	return append(opts, app.WithInitialTabs(record.Tabs)), nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
