package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SaveProfiles updates the profiles section of the config file. Comments and
// formatting in other sections are preserved by editing the yaml.Node tree
// instead of re-marshaling the whole config.
func SaveProfiles(configPath string, profiles []ProfileConfig) error {
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	profilesNode := buildProfilesNode(profiles)

	if doc.Kind == 0 {
		// Empty or new file
		doc = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{
				{
					Kind: yaml.MappingNode,
					Content: []*yaml.Node{
						{Kind: yaml.ScalarNode, Value: "profiles"},
						profilesNode,
					},
				},
			},
		}
	} else if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root := doc.Content[0]
		if root.Kind == yaml.MappingNode {
			found := false
			for i := 0; i < len(root.Content)-1; i += 2 {
				if root.Content[i].Value == "profiles" {
					root.Content[i+1] = profilesNode
					found = true
					break
				}
			}
			if !found {
				root.Content = append(root.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Value: "profiles"},
					profilesNode,
				)
			}
		}
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	// Write atomically (write to temp, then rename)
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".loom.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(buf.Bytes()); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// AddProfile appends a new profile and saves. Duplicate names are rejected.
func AddProfile(configPath string, newProfile ProfileConfig, existing []ProfileConfig) error {
	for _, p := range existing {
		if p.Name == newProfile.Name {
			return fmt.Errorf("profile %q already exists", newProfile.Name)
		}
	}
	return SaveProfiles(configPath, append(existing, newProfile))
}

// DeleteProfile removes the profile at the given index and saves.
func DeleteProfile(configPath string, index int, all []ProfileConfig) error {
	if index < 0 || index >= len(all) {
		return fmt.Errorf("profile index %d out of range (have %d profiles)", index, len(all))
	}

	updated := make([]ProfileConfig, 0, len(all)-1)
	for i, p := range all {
		if i != index {
			updated = append(updated, p)
		}
	}
	return SaveProfiles(configPath, updated)
}

// RenameProfile renames the profile at the given index and saves.
func RenameProfile(configPath string, index int, newName string, all []ProfileConfig) error {
	if index < 0 || index >= len(all) {
		return fmt.Errorf("profile index %d out of range (have %d profiles)", index, len(all))
	}

	updated := make([]ProfileConfig, len(all))
	copy(updated, all)
	updated[index].Name = newName
	return SaveProfiles(configPath, updated)
}

// buildProfilesNode creates a yaml.Node representing the profiles array.
// Optional fields are omitted rather than written empty.
func buildProfilesNode(profiles []ProfileConfig) *yaml.Node {
	node := &yaml.Node{
		Kind:    yaml.SequenceNode,
		Content: make([]*yaml.Node, 0, len(profiles)),
	}

	for _, p := range profiles {
		profNode := &yaml.Node{
			Kind: yaml.MappingNode,
			Content: []*yaml.Node{
				{Kind: yaml.ScalarNode, Value: "name"},
				{Kind: yaml.ScalarNode, Value: p.Name},
			},
		}
		if p.Shell != "" {
			profNode.Content = append(profNode.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: "shell"},
				&yaml.Node{Kind: yaml.ScalarNode, Value: p.Shell},
			)
		}
		if p.Distro != "" {
			profNode.Content = append(profNode.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: "distro"},
				&yaml.Node{Kind: yaml.ScalarNode, Value: p.Distro},
			)
		}
		if p.Cwd != "" {
			profNode.Content = append(profNode.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: "cwd"},
				&yaml.Node{Kind: yaml.ScalarNode, Value: p.Cwd},
			)
		}
		node.Content = append(node.Content, profNode)
	}

	return node
}
