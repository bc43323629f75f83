// Package tray renders the local menu tree as a status-area menu while the
// global menu is not installed.
package tray

import (
	"errors"
	"strings"

	"github.com/example/appmenu/internal/menu"
)

// ErrUnavailable is returned by Run in builds without cgo.
var ErrUnavailable = errors.New("system tray is unavailable without cgo support")

// Options configure a Controller.
type Options struct {
	Title string
	// OnReload is bound to the "Reload menu" entry when set.
	OnReload func()
	// OnQuit runs when the user picks "Quit".
	OnQuit func()
}

// entry is one rendered line of the tray menu.
type entry struct {
	ref      menu.Ref
	kind     menu.Kind
	label    string
	enabled  bool
	checked  bool
	children []entry
}

// layout snapshots the visible part of tree. Nothing is rendered while the
// tree is mirrored elsewhere.
func layout(tree *menu.Tree) []entry {
	if !tree.BarVisible() {
		return nil
	}
	return layoutRefs(tree, tree.Roots())
}

func layoutRefs(tree *menu.Tree, refs []menu.Ref) []entry {
	out := make([]entry, 0, len(refs))
	for _, ref := range refs {
		node, ok := tree.Get(ref)
		if !ok || !node.Visible {
			continue
		}
		e := entry{
			ref:     ref,
			kind:    node.Kind,
			label:   plainLabel(node.Label),
			enabled: node.Enabled,
			checked: node.Selected,
		}
		if node.Kind == menu.KindMenu {
			e.children = layoutRefs(tree, node.Children)
		}
		out = append(out, e)
	}
	return out
}

// plainLabel drops mnemonic underscores; a doubled underscore is a literal.
func plainLabel(label string) string {
	if !strings.Contains(label, "_") {
		return label
	}
	var b strings.Builder
	for i := 0; i < len(label); i++ {
		if label[i] != '_' {
			b.WriteByte(label[i])
			continue
		}
		if i+1 < len(label) && label[i+1] == '_' {
			b.WriteByte('_')
			i++
		}
	}
	return b.String()
}

// separatorLabel stands in for a separator. systray's native separators
// cannot be hidden, so they would pile up across renders.
const separatorLabel = "-----"

// itemStyle is how one entry is drawn.
type itemStyle struct {
	label     string
	checkable bool
	enabled   bool
}

func styleOf(e entry) itemStyle {
	switch e.kind {
	case menu.KindSeparator:
		return itemStyle{label: separatorLabel}
	case menu.KindCheck, menu.KindRadio:
		return itemStyle{label: e.label, checkable: true, enabled: e.enabled}
	default:
		return itemStyle{label: e.label, enabled: e.enabled}
	}
}

// press activates ref the way a click on the local menu would.
func press(tree *menu.Tree, ref menu.Ref) {
	tree.SetArmed(ref, true)
	tree.SetPressed(ref, true)
	tree.SetPressed(ref, false)
	tree.SetArmed(ref, false)
}
