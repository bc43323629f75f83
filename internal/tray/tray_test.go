package tray

import (
	"testing"

	"github.com/example/appmenu/internal/menu"
)

func TestPlainLabel(t *testing.T) {
	cases := map[string]string{
		"_File":       "File",
		"E_xit":       "Exit",
		"snake__case": "snake_case",
		"Plain":       "Plain",
		"trailing_":   "trailing",
	}
	for in, want := range cases {
		if got := plainLabel(in); got != want {
			t.Fatalf("plainLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLayoutFollowsTree(t *testing.T) {
	tree := menu.NewTree()
	file, _ := tree.Add(menu.Ref{}, menu.Item{Kind: menu.KindMenu, Label: "_File", Enabled: true, Visible: true})
	if _, err := tree.Add(file, menu.Item{Kind: menu.KindAction, Label: "_New", Enabled: true, Visible: true}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := tree.Add(file, menu.Item{Kind: menu.KindAction, Label: "Hidden", Enabled: true}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := tree.Add(file, menu.Item{Kind: menu.KindCheck, Label: "Wrap", Selected: true, Visible: true}); err != nil {
		t.Fatalf("add: %v", err)
	}

	entries := layout(tree)
	if len(entries) != 1 || entries[0].label != "File" {
		t.Fatalf("unexpected roots %+v", entries)
	}
	children := entries[0].children
	if len(children) != 2 {
		t.Fatalf("expected 2 visible children, got %d", len(children))
	}
	if children[1].kind != menu.KindCheck || !children[1].checked || children[1].enabled {
		t.Fatalf("unexpected check entry %+v", children[1])
	}

	tree.SetBarVisible(false)
	if got := layout(tree); len(got) != 0 {
		t.Fatalf("expected nothing while mirrored, got %d entries", len(got))
	}
}

func TestPressActivatesItem(t *testing.T) {
	tree := menu.NewTree()
	ref, _ := tree.Add(menu.Ref{}, menu.Item{Kind: menu.KindAction, Label: "Go", Enabled: true, Visible: true})
	fired := 0
	tree.OnAction(ref, func(menu.Node) { fired++ })

	press(tree, ref)
	if fired != 1 {
		t.Fatalf("expected one activation, got %d", fired)
	}
}

func TestSeparatorsRenderAsDisabledItems(t *testing.T) {
	sep := styleOf(entry{kind: menu.KindSeparator, enabled: true})
	if sep.label != separatorLabel || sep.enabled || sep.checkable {
		t.Fatalf("separator styled as %+v", sep)
	}

	check := styleOf(entry{kind: menu.KindCheck, label: "Wrap", enabled: true, checked: true})
	if !check.checkable || !check.enabled || check.label != "Wrap" {
		t.Fatalf("unexpected check style %+v", check)
	}
	if styleOf(entry{kind: menu.KindAction, label: "Quit"}).enabled {
		t.Fatalf("disabled action styled as enabled")
	}
}
