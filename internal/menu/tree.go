package menu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/example/appmenu/internal/keys"
)

// Kind discriminates the closed set of menu node variants.
type Kind int

const (
	KindMenu Kind = iota + 1
	KindAction
	KindRadio
	KindCheck
	KindSeparator
)

func (k Kind) String() string {
	switch k {
	case KindMenu:
		return "menu"
	case KindAction:
		return "action"
	case KindRadio:
		return "radio"
	case KindCheck:
		return "check"
	case KindSeparator:
		return "separator"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// IsItem reports whether nodes of this kind can be activated.
func (k Kind) IsItem() bool {
	return k == KindAction || k == KindRadio || k == KindCheck
}

var (
	// ErrNotMenu is returned when children are added below a non-menu node.
	ErrNotMenu = errors.New("only menu nodes may have children")
	// ErrStaleRef is returned when a reference no longer names a live node.
	ErrStaleRef = errors.New("menu node no longer exists")
	// ErrInvalidKind is returned for kinds outside the closed variant set.
	ErrInvalidKind = errors.New("invalid menu node kind")
)

// Ref is a stable handle to a node slot. The generation changes whenever the
// slot is reused, so a Ref to a removed node never resolves again.
type Ref struct {
	index uint32
	gen   uint32
}

// IsZero reports whether the reference is unset. Zero refs name the bar.
func (r Ref) IsZero() bool {
	return r.gen == 0
}

func (r Ref) String() string {
	return fmt.Sprintf("node#%d.%d", r.index, r.gen)
}

// Item describes a node to add to the tree.
type Item struct {
	Kind        Kind
	Label       string
	Enabled     bool
	Visible     bool
	Accelerator keys.Chord
	Selected    bool
	Group       string
}

// Node is a read-only snapshot of a tree node.
type Node struct {
	Ref         Ref
	Parent      Ref
	Kind        Kind
	Label       string
	Enabled     bool
	Visible     bool
	Accelerator keys.Chord
	Selected    bool
	Group       string
	Armed       bool
	Pressed     bool
	Children    []Ref
}

type slot struct {
	gen  uint32
	live bool
	node Node
}

// ActionFunc is invoked when an item is activated.
type ActionFunc func(Node)

// Tree is the authoritative menu model owned by a window. All methods are
// safe for concurrent use; action handlers and subscribers run without the
// tree lock held.
type Tree struct {
	mu          sync.RWMutex
	slots       []slot
	free        []uint32
	roots       []Ref
	barVisible  bool
	actions     map[Ref][]ActionFunc
	subscribers []func()
}

// NewTree returns an empty tree with a visible bar.
func NewTree() *Tree {
	return &Tree{
		barVisible: true,
		actions:    make(map[Ref][]ActionFunc),
	}
}

// Add appends a node under parent. A zero parent adds a top-level node.
func (t *Tree) Add(parent Ref, item Item) (Ref, error) {
	if item.Kind < KindMenu || item.Kind > KindSeparator {
		return Ref{}, fmt.Errorf("%w: %d", ErrInvalidKind, int(item.Kind))
	}
	if item.Kind == KindSeparator {
		item.Label = ""
		item.Accelerator = keys.Chord{}
		item.Selected = false
	}
	if item.Kind == KindMenu {
		item.Accelerator = keys.Chord{}
	}

	t.mu.Lock()
	if !parent.IsZero() {
		p := t.lookup(parent)
		if p == nil {
			t.mu.Unlock()
			return Ref{}, fmt.Errorf("parent %s: %w", parent, ErrStaleRef)
		}
		if p.node.Kind != KindMenu {
			t.mu.Unlock()
			return Ref{}, fmt.Errorf("parent %s is %s: %w", parent, p.node.Kind, ErrNotMenu)
		}
	}

	ref := t.allocate()
	t.slots[ref.index].node = Node{
		Ref:         ref,
		Parent:      parent,
		Kind:        item.Kind,
		Label:       item.Label,
		Enabled:     item.Enabled,
		Visible:     item.Visible,
		Accelerator: item.Accelerator,
		Selected:    item.Selected,
		Group:       item.Group,
	}
	if parent.IsZero() {
		t.roots = append(t.roots, ref)
	} else {
		p := t.lookup(parent)
		p.node.Children = append(p.node.Children, ref)
	}
	if item.Kind == KindRadio && item.Selected {
		t.clearGroup(ref)
	}
	t.mu.Unlock()

	t.notify()
	return ref, nil
}

// Remove deletes a node and its descendants. Removing a stale reference is a
// no-op.
func (t *Tree) Remove(ref Ref) {
	t.mu.Lock()
	s := t.lookup(ref)
	if s == nil {
		t.mu.Unlock()
		return
	}
	parent := s.node.Parent
	if parent.IsZero() {
		t.roots = without(t.roots, ref)
	} else if p := t.lookup(parent); p != nil {
		p.node.Children = without(p.node.Children, ref)
	}
	t.release(ref)
	t.mu.Unlock()

	t.notify()
}

// Clear removes every node. Outstanding references become stale.
func (t *Tree) Clear() {
	t.mu.Lock()
	for _, root := range t.roots {
		t.release(root)
	}
	t.roots = nil
	t.mu.Unlock()

	t.notify()
}

// Roots returns the current top-level nodes in order.
func (t *Tree) Roots() []Ref {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Ref, len(t.roots))
	copy(out, t.roots)
	return out
}

// Get returns a snapshot of the node, or false if the reference is stale.
func (t *Tree) Get(ref Ref) (Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.lookup(ref)
	if s == nil {
		return Node{}, false
	}
	node := s.node
	node.Children = append([]Ref(nil), s.node.Children...)
	return node, true
}

// Children returns the current children of ref in order.
func (t *Tree) Children(ref Ref) ([]Ref, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.lookup(ref)
	if s == nil {
		return nil, false
	}
	return append([]Ref(nil), s.node.Children...), true
}

// Len reports the number of live nodes.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	count := 0
	for _, s := range t.slots {
		if s.live {
			count++
		}
	}
	return count
}

// BarVisible reports whether the tree should be rendered locally.
func (t *Tree) BarVisible() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.barVisible
}

// SetBarVisible toggles local rendering of the whole tree.
func (t *Tree) SetBarVisible(visible bool) {
	t.mu.Lock()
	changed := t.barVisible != visible
	t.barVisible = visible
	t.mu.Unlock()
	if changed {
		t.notify()
	}
}

// SetLabel updates a node label.
func (t *Tree) SetLabel(ref Ref, label string) error {
	return t.update(ref, func(n *Node) {
		if n.Kind != KindSeparator {
			n.Label = label
		}
	})
}

// SetEnabled updates the enabled flag.
func (t *Tree) SetEnabled(ref Ref, enabled bool) error {
	return t.update(ref, func(n *Node) { n.Enabled = enabled })
}

// SetVisible updates the visible flag.
func (t *Tree) SetVisible(ref Ref, visible bool) error {
	return t.update(ref, func(n *Node) { n.Visible = visible })
}

// SetAccelerator updates the keystroke bound to an item.
func (t *Tree) SetAccelerator(ref Ref, chord keys.Chord) error {
	return t.update(ref, func(n *Node) {
		if n.Kind.IsItem() {
			n.Accelerator = chord
		}
	})
}

// SetSelected updates the selection state of radio and check items.
// Selecting a radio item deselects the other members of its group.
func (t *Tree) SetSelected(ref Ref, selected bool) error {
	t.mu.Lock()
	s := t.lookup(ref)
	if s == nil {
		t.mu.Unlock()
		return fmt.Errorf("select %s: %w", ref, ErrStaleRef)
	}
	if s.node.Kind == KindRadio || s.node.Kind == KindCheck {
		s.node.Selected = selected
		if selected && s.node.Kind == KindRadio {
			t.clearGroup(ref)
		}
	}
	t.mu.Unlock()

	t.notify()
	return nil
}

// OnAction registers fn to run whenever the item is activated.
func (t *Tree) OnAction(ref Ref, fn ActionFunc) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lookup(ref) == nil {
		return
	}
	t.actions[ref] = append(t.actions[ref], fn)
}

// Subscribe registers fn to run after every structural or attribute change.
func (t *Tree) Subscribe(fn func()) {
	if fn == nil {
		return
	}
	t.mu.Lock()
	t.subscribers = append(t.subscribers, fn)
	t.mu.Unlock()
}

// SetArmed updates the transient armed state of an item.
func (t *Tree) SetArmed(ref Ref, armed bool) {
	t.mu.Lock()
	if s := t.lookup(ref); s != nil && s.node.Kind.IsItem() {
		s.node.Armed = armed
	}
	t.mu.Unlock()
}

// SetPressed updates the transient pressed state of an item. Releasing an
// armed, pressed item activates it.
func (t *Tree) SetPressed(ref Ref, pressed bool) {
	t.mu.Lock()
	s := t.lookup(ref)
	if s == nil || !s.node.Kind.IsItem() {
		t.mu.Unlock()
		return
	}
	fire := !pressed && s.node.Pressed && s.node.Armed && s.node.Enabled
	s.node.Pressed = pressed
	if !fire {
		t.mu.Unlock()
		return
	}
	switch s.node.Kind {
	case KindCheck:
		s.node.Selected = !s.node.Selected
	case KindRadio:
		s.node.Selected = true
		t.clearGroup(ref)
	}
	node := s.node
	node.Children = nil
	handlers := append([]ActionFunc(nil), t.actions[ref]...)
	t.mu.Unlock()

	for _, fn := range handlers {
		fn(node)
	}
	t.notify()
}

func (t *Tree) update(ref Ref, fn func(*Node)) error {
	t.mu.Lock()
	s := t.lookup(ref)
	if s == nil {
		t.mu.Unlock()
		return fmt.Errorf("update %s: %w", ref, ErrStaleRef)
	}
	fn(&s.node)
	t.mu.Unlock()

	t.notify()
	return nil
}

func (t *Tree) notify() {
	t.mu.RLock()
	subs := append([]func(){}, t.subscribers...)
	t.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}

func (t *Tree) lookup(ref Ref) *slot {
	if ref.IsZero() || int(ref.index) >= len(t.slots) {
		return nil
	}
	s := &t.slots[ref.index]
	if !s.live || s.gen != ref.gen {
		return nil
	}
	return s
}

func (t *Tree) allocate() Ref {
	var index uint32
	if n := len(t.free); n > 0 {
		index = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		t.slots = append(t.slots, slot{})
		index = uint32(len(t.slots) - 1)
	}
	s := &t.slots[index]
	s.gen++
	s.live = true
	return Ref{index: index, gen: s.gen}
}

func (t *Tree) release(ref Ref) {
	s := t.lookup(ref)
	if s == nil {
		return
	}
	for _, child := range s.node.Children {
		t.release(child)
	}
	delete(t.actions, ref)
	s.live = false
	s.node = Node{}
	t.free = append(t.free, ref.index)
}

// clearGroup deselects the radio siblings of ref that share its group.
func (t *Tree) clearGroup(ref Ref) {
	s := t.lookup(ref)
	if s == nil {
		return
	}
	var siblings []Ref
	if s.node.Parent.IsZero() {
		siblings = t.roots
	} else if p := t.lookup(s.node.Parent); p != nil {
		siblings = p.node.Children
	}
	for _, sib := range siblings {
		if sib == ref {
			continue
		}
		other := t.lookup(sib)
		if other != nil && other.node.Kind == KindRadio && other.node.Group == s.node.Group {
			other.node.Selected = false
		}
	}
}

func without(refs []Ref, target Ref) []Ref {
	out := refs[:0]
	for _, r := range refs {
		if r != target {
			out = append(out, r)
		}
	}
	return out
}
