package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func readProfiles(t *testing.T, path string) []ProfileConfig {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var parsed struct {
		Profiles []ProfileConfig `yaml:"profiles"`
	}
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	return parsed.Profiles
}

func TestSaveProfiles_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.yaml")

	err := SaveProfiles(path, []ProfileConfig{
		{Name: "work", Shell: "/bin/zsh", Cwd: "/home/me/work"},
		{Name: "arch-box", Distro: "arch"},
	})

	require.NoError(t, err)
	got := readProfiles(t, path)
	require.Len(t, got, 2)
	assert.Equal(t, "work", got[0].Name)
	assert.Equal(t, "/bin/zsh", got[0].Shell)
	assert.Equal(t, "/home/me/work", got[0].Cwd)
	assert.Equal(t, "arch", got[1].Distro)
}

func TestSaveProfiles_PreservesOtherSectionsAndComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.yaml")
	original := `# my tweaked config
shell: /bin/zsh

session:
  resize_debounce_ms: 80 # slower machine

profiles:
  - name: old
`
	require.NoError(t, os.WriteFile(path, []byte(original), 0o600))

	err := SaveProfiles(path, []ProfileConfig{{Name: "fresh", Shell: "/bin/bash"}})

	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# my tweaked config")
	assert.Contains(t, content, "# slower machine")
	assert.Contains(t, content, "shell: /bin/zsh")
	assert.NotContains(t, content, "name: old")

	got := readProfiles(t, path)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].Name)
}

func TestSaveProfiles_AppendsSectionWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("debug: true\n"), 0o600))

	require.NoError(t, SaveProfiles(path, []ProfileConfig{{Name: "solo"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "debug: true")
	got := readProfiles(t, path)
	require.Len(t, got, 1)
	assert.Equal(t, "solo", got[0].Name)
}

func TestSaveProfiles_OmitsEmptyOptionalFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.yaml")

	require.NoError(t, SaveProfiles(path, []ProfileConfig{{Name: "bare"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "shell:")
	assert.NotContains(t, string(data), "distro:")
	assert.NotContains(t, string(data), "cwd:")
}

func TestAddProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.yaml")
	existing := []ProfileConfig{{Name: "work"}}

	require.NoError(t, AddProfile(path, ProfileConfig{Name: "play"}, existing))

	got := readProfiles(t, path)
	require.Len(t, got, 2)
	assert.Equal(t, "play", got[1].Name)
}

func TestAddProfile_DuplicateNameRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.yaml")
	existing := []ProfileConfig{{Name: "work"}}

	err := AddProfile(path, ProfileConfig{Name: "work"}, existing)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing written on rejection")
}

func TestDeleteProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.yaml")
	all := []ProfileConfig{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	require.NoError(t, DeleteProfile(path, 1, all))

	got := readProfiles(t, path)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "c", got[1].Name)
}

func TestDeleteProfile_IndexOutOfRange(t *testing.T) {
	err := DeleteProfile(filepath.Join(t.TempDir(), "loom.yaml"), 3, []ProfileConfig{{Name: "a"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestRenameProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loom.yaml")
	all := []ProfileConfig{{Name: "a", Shell: "/bin/sh"}}

	require.NoError(t, RenameProfile(path, 0, "renamed", all))

	got := readProfiles(t, path)
	require.Len(t, got, 1)
	assert.Equal(t, "renamed", got[0].Name)
	assert.Equal(t, "/bin/sh", got[0].Shell)
	assert.Equal(t, "a", all[0].Name, "input slice not mutated")
}
