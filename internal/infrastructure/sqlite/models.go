package sqlite

import (
	"encoding/json"
	"fmt"

	"github.com/loomterm/loom/internal/layout"
)

// nodeModel is the stored JSON form of one layout node. Only the declarative
// fields are kept: pane and session ids are runtime state, so decoding mints
// fresh ones.
type nodeModel struct {
	Type        string      `json:"type"` // "terminal" or "split"
	Orientation string      `json:"orientation,omitempty"`
	Sizes       []int       `json:"sizes,omitempty"`
	Children    []nodeModel `json:"children,omitempty"`
	Shell       string      `json:"shell,omitempty"`
	Distro      string      `json:"distro,omitempty"`
	Cwd         string      `json:"cwd,omitempty"`
}

// encodeLayout serializes a pane tree to its stored JSON form.
func encodeLayout(root layout.Node) (string, error) {
	model, err := toNodeModel(root)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(model)
	if err != nil {
		return "", fmt.Errorf("encoding layout: %w", err)
	}
	return string(data), nil
}

// decodeLayout rebuilds a pane tree from its stored JSON form with fresh
// pane ids.
func decodeLayout(data string) (layout.Node, error) {
	var model nodeModel
	if err := json.Unmarshal([]byte(data), &model); err != nil {
		return nil, fmt.Errorf("decoding layout: %w", err)
	}
	return fromNodeModel(model)
}

func toNodeModel(n layout.Node) (nodeModel, error) {
	switch node := n.(type) {
	case *layout.Terminal:
		return nodeModel{
			Type:   "terminal",
			Shell:  node.Shell,
			Distro: node.Distro,
			Cwd:    node.Cwd,
		}, nil
	case *layout.Split:
		children := make([]nodeModel, 0, len(node.Children))
		for _, child := range node.Children {
			cm, err := toNodeModel(child)
			if err != nil {
				return nodeModel{}, err
			}
			children = append(children, cm)
		}
		return nodeModel{
			Type:        "split",
			Orientation: string(node.Orientation),
			Sizes:       append([]int(nil), node.Sizes...),
			Children:    children,
		}, nil
	default:
		return nodeModel{}, fmt.Errorf("unknown layout node %T", n)
	}
}

func fromNodeModel(m nodeModel) (layout.Node, error) {
	switch m.Type {
	case "terminal":
		return &layout.Terminal{
			ID:     layout.NewID(),
			Shell:  m.Shell,
			Distro: m.Distro,
			Cwd:    m.Cwd,
		}, nil
	case "split":
		if len(m.Children) < 2 {
			return nil, fmt.Errorf("split with %d children", len(m.Children))
		}
		if len(m.Sizes) != len(m.Children) {
			return nil, fmt.Errorf("split with %d children but %d sizes", len(m.Children), len(m.Sizes))
		}
		children := make([]layout.Node, 0, len(m.Children))
		for _, cm := range m.Children {
			child, err := fromNodeModel(cm)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return &layout.Split{
			ID:          layout.NewID(),
			Orientation: layout.Orientation(m.Orientation),
			Children:    children,
			Sizes:       append([]int(nil), m.Sizes...),
		}, nil
	default:
		return nil, fmt.Errorf("unknown stored node type %q", m.Type)
	}
}
