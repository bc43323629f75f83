package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/appmenu/internal/keys"
)

// MenuItemType represents the supported menu item types.
type MenuItemType string

const (
	MenuItemMenu      MenuItemType = "menu"
	MenuItemAction    MenuItemType = "action"
	MenuItemRadio     MenuItemType = "radio"
	MenuItemCheck     MenuItemType = "check"
	MenuItemSeparator MenuItemType = "separator"
)

// MenuItem is a single entry of a menu definition file. Items form a tree
// through ParentID; siblings are ordered by Order, then file position.
type MenuItem struct {
	ID          string       `yaml:"id"`
	ParentID    string       `yaml:"parent,omitempty"`
	Order       int          `yaml:"order,omitempty"`
	Type        MenuItemType `yaml:"type"`
	Label       string       `yaml:"label,omitempty"`
	Accelerator string       `yaml:"accelerator,omitempty"`
	Disabled    bool         `yaml:"disabled,omitempty"`
	Hidden      bool         `yaml:"hidden,omitempty"`
	Selected    bool         `yaml:"selected,omitempty"`
	Group       string       `yaml:"group,omitempty"`
	Command     string       `yaml:"command,omitempty"`
	Arguments   []string     `yaml:"args,omitempty"`
	WorkingDir  string       `yaml:"workdir,omitempty"`
	URL         string       `yaml:"url,omitempty"`
}

// Definition is the root of a menu definition file.
type Definition struct {
	Title string     `yaml:"title,omitempty"`
	Items []MenuItem `yaml:"items"`
}

// LoadDefinition reads and validates a YAML menu definition.
func LoadDefinition(path string) (*Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu definition: %w", err)
	}
	return ParseDefinition(raw)
}

// ParseDefinition decodes and validates a YAML menu definition.
func ParseDefinition(raw []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("unmarshal menu definition: %w", err)
	}
	for i := range def.Items {
		def.Items[i].Type = MenuItemType(strings.ToLower(string(def.Items[i].Type)))
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks every item and the parent links between them.
func (d *Definition) Validate() error {
	types := make(map[string]MenuItemType, len(d.Items))
	for _, item := range d.Items {
		if item.ID == "" {
			return errors.New("menu items require an id")
		}
		if _, dup := types[item.ID]; dup {
			return fmt.Errorf("duplicate menu item id %q", item.ID)
		}
		types[item.ID] = item.Type
	}

	for _, item := range d.Items {
		if err := ValidateItem(item); err != nil {
			return fmt.Errorf("item %q: %w", item.ID, err)
		}
		if item.ParentID == "" {
			if item.Type != MenuItemMenu {
				return fmt.Errorf("item %q: top-level items must be menus", item.ID)
			}
			continue
		}
		parentType, ok := types[item.ParentID]
		if !ok {
			return fmt.Errorf("item %q: unknown parent %q", item.ID, item.ParentID)
		}
		if parentType != MenuItemMenu {
			return fmt.Errorf("item %q: parent %q is not a menu", item.ID, item.ParentID)
		}
	}
	return detectCycles(d.Items)
}

// ValidateItem checks the fields required by an item's type.
func ValidateItem(item MenuItem) error {
	switch item.Type {
	case MenuItemMenu:
		if item.Label == "" {
			return errors.New("menus require a label")
		}
		if item.Accelerator != "" {
			return errors.New("menus cannot have an accelerator")
		}
	case MenuItemAction, MenuItemRadio, MenuItemCheck:
		if item.Label == "" {
			return fmt.Errorf("%s items require a label", item.Type)
		}
		if _, err := keys.Parse(item.Accelerator); err != nil {
			return err
		}
		if item.Command != "" && item.URL != "" {
			return errors.New("items may run a command or open a URL, not both")
		}
	case MenuItemSeparator:
		// nothing required
	default:
		return fmt.Errorf("unsupported menu type: %q", item.Type)
	}
	return nil
}

func detectCycles(items []MenuItem) error {
	parents := make(map[string]string, len(items))
	for _, item := range items {
		parents[item.ID] = item.ParentID
	}
	for _, item := range items {
		seen := map[string]bool{item.ID: true}
		for p := parents[item.ID]; p != ""; p = parents[p] {
			if seen[p] {
				return fmt.Errorf("item %q: parent chain forms a cycle", item.ID)
			}
			seen[p] = true
		}
	}
	return nil
}
