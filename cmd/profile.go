package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/loomterm/loom/internal/config"
)

var (
	profileAddShell  string
	profileAddDistro string
	profileAddCwd    string
)

var profileListCmd = &cobra.Command{
	Use:   "profile:list",
	Short: "List launch profiles",
	Long: `List the launch profiles defined in the config file.

Pick one with --profile; new panes then start with its shell, distro, and
working directory.`,
	RunE: runProfileList,
}

var profileAddCmd = &cobra.Command{
	Use:   "profile:add NAME",
	Short: "Add a launch profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileAdd,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "profile:delete NAME",
	Short: "Delete a launch profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileDelete,
}

var profileRenameCmd = &cobra.Command{
	Use:   "profile:rename OLD NEW",
	Short: "Rename a launch profile",
	Args:  cobra.ExactArgs(2),
	RunE:  runProfileRename,
}

func init() {
	profileAddCmd.Flags().StringVar(&profileAddShell, "shell", "", "shell for the profile (default: top-level shell)")
	profileAddCmd.Flags().StringVar(&profileAddDistro, "distro", "", "container distro for the profile")
	profileAddCmd.Flags().StringVar(&profileAddCwd, "cwd", "", "starting directory (absolute path)")

	rootCmd.AddCommand(profileListCmd)
	rootCmd.AddCommand(profileAddCmd)
	rootCmd.AddCommand(profileDeleteCmd)
	rootCmd.AddCommand(profileRenameCmd)
}

// profileConfigPath is where profile edits land: the config file viper loaded,
// or the default user config path when none exists yet.
func profileConfigPath() (string, error) {
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating config file: %w", err)
	}
	return filepath.Join(home, ".config", "loom", "config.yaml"), nil
}

func profileIndex(name string) (int, error) {
	for i, p := range cfg.Profiles {
		if p.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown profile %q", name)
}

func runProfileList(cmd *cobra.Command, args []string) error {
	if len(cfg.Profiles) == 0 {
		fmt.Println("no profiles defined")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSHELL\tDISTRO\tCWD")
	for _, p := range cfg.Profiles {
		shell := p.Shell
		if shell == "" {
			shell = "(default)"
		}
		distro := p.Distro
		if distro == "" {
			distro = "(host)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, shell, distro, p.Cwd)
	}
	return w.Flush()
}

func runProfileAdd(cmd *cobra.Command, args []string) error {
	newProfile := config.ProfileConfig{
		Name:   args[0],
		Shell:  profileAddShell,
		Distro: profileAddDistro,
		Cwd:    profileAddCwd,
	}
	if err := config.ValidateProfiles(append(cfg.Profiles, newProfile)); err != nil {
		return err
	}

	path, err := profileConfigPath()
	if err != nil {
		return err
	}
	if err := config.AddProfile(path, newProfile, cfg.Profiles); err != nil {
		return fmt.Errorf("adding profile: %w", err)
	}
	fmt.Printf("added profile %q\n", newProfile.Name)
	return nil
}

func runProfileDelete(cmd *cobra.Command, args []string) error {
	idx, err := profileIndex(args[0])
	if err != nil {
		return err
	}
	path, err := profileConfigPath()
	if err != nil {
		return err
	}
	if err := config.DeleteProfile(path, idx, cfg.Profiles); err != nil {
		return fmt.Errorf("deleting profile: %w", err)
	}
	fmt.Printf("deleted profile %q\n", args[0])
	return nil
}

func runProfileRename(cmd *cobra.Command, args []string) error {
	idx, err := profileIndex(args[0])
	if err != nil {
		return err
	}
	if _, err := profileIndex(args[1]); err == nil {
		return fmt.Errorf("profile %q already exists", args[1])
	}
	path, err := profileConfigPath()
	if err != nil {
		return err
	}
	if err := config.RenameProfile(path, idx, args[1], cfg.Profiles); err != nil {
		return fmt.Errorf("renaming profile: %w", err)
	}
	fmt.Printf("renamed profile %q to %q\n", args[0], args[1])
	return nil
}
