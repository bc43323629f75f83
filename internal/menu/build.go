package menu

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os/exec"
	"sort"

	"github.com/example/appmenu/internal/config"
	"github.com/example/appmenu/internal/keys"
	"github.com/example/appmenu/internal/logging"
)

// Build materializes a validated definition into tree, appending the new
// top-level menus after any existing roots. Command and URL items are bound
// to actions that run with ctx.
func Build(ctx context.Context, tree *Tree, def *config.Definition) error {
	if def == nil {
		return nil
	}
	grouped := groupByParent(def.Items)
	return buildGroup(ctx, tree, grouped, "", Ref{})
}

func buildGroup(ctx context.Context, tree *Tree, grouped map[string][]config.MenuItem, parentID string, parent Ref) error {
	for _, item := range grouped[parentID] {
		ref, err := addItem(ctx, tree, parent, item)
		if err != nil {
			return fmt.Errorf("build %q: %w", item.ID, err)
		}
		if item.Type == config.MenuItemMenu {
			if err := buildGroup(ctx, tree, grouped, item.ID, ref); err != nil {
				return err
			}
		}
	}
	return nil
}

func addItem(ctx context.Context, tree *Tree, parent Ref, item config.MenuItem) (Ref, error) {
	kind, err := kindOf(item.Type)
	if err != nil {
		return Ref{}, err
	}
	chord, err := keys.Parse(item.Accelerator)
	if err != nil {
		return Ref{}, err
	}

	ref, err := tree.Add(parent, Item{
		Kind:        kind,
		Label:       item.Label,
		Enabled:     !item.Disabled,
		Visible:     !item.Hidden,
		Accelerator: chord,
		Selected:    item.Selected,
		Group:       item.Group,
	})
	if err != nil {
		return Ref{}, err
	}

	switch {
	case item.Command != "":
		cmd, args, dir := item.Command, item.Arguments, item.WorkingDir
		tree.OnAction(ref, func(Node) {
			go executeCommand(ctx, cmd, args, dir)
		})
	case item.URL != "":
		target := item.URL
		tree.OnAction(ref, func(Node) {
			go openURL(target)
		})
	default:
		id := item.ID
		tree.OnAction(ref, func(n Node) {
			logging.Debugf("menu item %q activated (selected=%t)", id, n.Selected)
		})
	}
	return ref, nil
}

func kindOf(t config.MenuItemType) (Kind, error) {
	switch t {
	case config.MenuItemMenu:
		return KindMenu, nil
	case config.MenuItemAction:
		return KindAction, nil
	case config.MenuItemRadio:
		return KindRadio, nil
	case config.MenuItemCheck:
		return KindCheck, nil
	case config.MenuItemSeparator:
		return KindSeparator, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, t)
	}
}

func groupByParent(items []config.MenuItem) map[string][]config.MenuItem {
	grouped := make(map[string][]config.MenuItem)
	for _, item := range items {
		key := item.ParentID
		grouped[key] = append(grouped[key], item)
	}
	for key := range grouped {
		sort.SliceStable(grouped[key], func(i, j int) bool {
			return grouped[key][i].Order < grouped[key][j].Order
		})
	}
	return grouped
}

func executeCommand(ctx context.Context, command string, args []string, workingDir string) {
	if command == "" {
		return
	}

	cmd := exec.CommandContext(ctx, command, args...)
	if workingDir != "" {
		cmd.Dir = workingDir
	}
	if err := cmd.Start(); err != nil {
		log.Printf("menu: start %s: %v", command, err)
		return
	}
	go func() { _ = cmd.Wait() }()
}

func openURL(raw string) {
	if raw == "" {
		return
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		log.Printf("menu: refusing to open invalid URL %q: %v", raw, err)
		return
	}
	_ = exec.Command("xdg-open", raw).Start()
}
