package registrar

import (
	"errors"
	"math"

	"github.com/godbus/dbus/v5"

	"github.com/example/appmenu/internal/keys"
)

// RootID is the dbusmenu identifier of the invisible root of every menu.
const RootID int32 = 0

var errUnknownParent = errors.New("unknown parent item")

// menuLayout is the dbusmenu (ia{sv}av) layout structure.
type menuLayout struct {
	ID         int32
	Properties map[string]dbus.Variant
	Children   []dbus.Variant
}

// itemProperties is the dbusmenu (ia{sv}) property group structure.
type itemProperties struct {
	ID         int32
	Properties map[string]dbus.Variant
}

// menuEvent is the dbusmenu (isvu) event structure used by EventGroup.
type menuEvent struct {
	ID        int32
	EventID   string
	Data      dbus.Variant
	Timestamp uint32
}

type wireNode struct {
	id       int32
	parent   int32
	props    map[string]dbus.Variant
	children []int32
}

// model is the exported wire representation of one window's menu. It is not
// safe for concurrent use; windowMenu guards it.
type model struct {
	nodes         map[int32]*wireNode
	revision      uint32
	nextSeparator int32
}

func newModel() *model {
	return &model{
		nodes: map[int32]*wireNode{
			RootID: {
				id:    RootID,
				props: map[string]dbus.Variant{"children-display": dbus.MakeVariant("submenu")},
			},
		},
		nextSeparator: math.MaxInt32,
	}
}

func (m *model) has(id int32) bool {
	_, ok := m.nodes[id]
	return ok
}

// add appends id under parent, replacing any previous node with that id.
func (m *model) add(parent, id int32, props map[string]dbus.Variant) error {
	p, ok := m.nodes[parent]
	if !ok {
		return errUnknownParent
	}
	if id != RootID && m.has(id) {
		m.remove(id)
	}
	m.nodes[id] = &wireNode{id: id, parent: parent, props: props}
	p.children = append(p.children, id)
	m.revision++
	return nil
}

// addSeparator appends a separator under parent using an identifier from the
// top of the id space, which the mirror never issues.
func (m *model) addSeparator(parent int32) (int32, error) {
	if !m.has(parent) {
		return 0, errUnknownParent
	}
	id := m.nextSeparator
	m.nextSeparator--
	return id, m.add(parent, id, separatorProps())
}

// remove drops id and its descendants and detaches it from its parent.
func (m *model) remove(id int32) {
	n, ok := m.nodes[id]
	if !ok || id == RootID {
		return
	}
	if p, ok := m.nodes[n.parent]; ok {
		kept := p.children[:0]
		for _, c := range p.children {
			if c != id {
				kept = append(kept, c)
			}
		}
		p.children = kept
	}
	m.drop(id)
	m.revision++
}

// resetChildren drops every descendant of id so it can be repopulated.
func (m *model) resetChildren(id int32) bool {
	n, ok := m.nodes[id]
	if !ok {
		return false
	}
	for _, c := range n.children {
		m.drop(c)
	}
	n.children = nil
	m.revision++
	return true
}

func (m *model) drop(id int32) {
	n, ok := m.nodes[id]
	if !ok {
		return
	}
	for _, c := range n.children {
		m.drop(c)
	}
	delete(m.nodes, id)
}

// layout renders the subtree rooted at id. A negative depth means unlimited.
func (m *model) layout(id, depth int32, names []string) (menuLayout, bool) {
	n, ok := m.nodes[id]
	if !ok {
		return menuLayout{}, false
	}
	out := menuLayout{
		ID:         id,
		Properties: filterProps(n.props, names),
		Children:   []dbus.Variant{},
	}
	if depth == 0 {
		return out, true
	}
	for _, c := range n.children {
		child, ok := m.layout(c, depth-1, names)
		if !ok {
			continue
		}
		out.Children = append(out.Children, dbus.MakeVariant(child))
	}
	return out, true
}

func (m *model) properties(ids []int32, names []string) []itemProperties {
	out := make([]itemProperties, 0, len(ids))
	for _, id := range ids {
		n, ok := m.nodes[id]
		if !ok {
			continue
		}
		out = append(out, itemProperties{ID: id, Properties: filterProps(n.props, names)})
	}
	return out
}

func (m *model) property(id int32, name string) (dbus.Variant, bool) {
	n, ok := m.nodes[id]
	if !ok {
		return dbus.Variant{}, false
	}
	v, ok := n.props[name]
	return v, ok
}

func filterProps(props map[string]dbus.Variant, names []string) map[string]dbus.Variant {
	out := make(map[string]dbus.Variant, len(props))
	if len(names) == 0 {
		for k, v := range props {
			out[k] = v
		}
		return out
	}
	for _, name := range names {
		if v, ok := props[name]; ok {
			out[name] = v
		}
	}
	return out
}

func menuProps(label string, enabled bool) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"label":            dbus.MakeVariant(label),
		"enabled":          dbus.MakeVariant(enabled),
		"visible":          dbus.MakeVariant(true),
		"children-display": dbus.MakeVariant("submenu"),
	}
}

func itemProps(label string, enabled bool, accel keys.Chord) map[string]dbus.Variant {
	props := map[string]dbus.Variant{
		"label":   dbus.MakeVariant(label),
		"enabled": dbus.MakeVariant(enabled),
		"visible": dbus.MakeVariant(true),
	}
	if shortcut := keys.Shortcut(accel); shortcut != nil {
		props["shortcut"] = dbus.MakeVariant([][]string{shortcut})
	}
	return props
}

func toggleProps(label string, enabled bool, accel keys.Chord, toggleType string, selected bool) map[string]dbus.Variant {
	props := itemProps(label, enabled, accel)
	state := int32(0)
	if selected {
		state = 1
	}
	props["toggle-type"] = dbus.MakeVariant(toggleType)
	props["toggle-state"] = dbus.MakeVariant(state)
	return props
}

func separatorProps() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"type":    dbus.MakeVariant("separator"),
		"visible": dbus.MakeVariant(true),
	}
}
