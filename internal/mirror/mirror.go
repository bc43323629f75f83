// Package mirror keeps a window's local menu tree mirrored in the desktop's
// global menu. Top-level menus are pushed on install; submenus are pushed one
// level at a time when the shell is about to show them.
package mirror

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/appmenu/internal/config"
	"github.com/example/appmenu/internal/keys"
	"github.com/example/appmenu/internal/logging"
	"github.com/example/appmenu/internal/menu"
	"github.com/example/appmenu/internal/metrics"
	"github.com/example/appmenu/internal/registrar"
	"github.com/example/appmenu/internal/window"
)

// Proxy is the registrar boundary. Every call is keyed by the native window
// handle; parent 0 is the menu root.
type Proxy interface {
	RegisterWindow(handle uint32, h registrar.Handler) error
	UnregisterWindow(handle uint32) error
	CreateMenu(handle uint32, parent, id int32, label string, enabled bool) error
	CreateItem(handle uint32, parent, id int32, label string, enabled bool, accel keys.Chord) error
	CreateRadioItem(handle uint32, parent, id int32, label string, enabled bool, accel keys.Chord, selected bool) error
	CreateCheckItem(handle uint32, parent, id int32, label string, enabled bool, accel keys.Chord, selected bool) error
	CreateSeparator(handle uint32, parent int32) error
}

// Options tune a Mirror. The zero value uses the default press delay and
// records no metrics.
type Options struct {
	PressDelay time.Duration
	Metrics    *metrics.Recorder
}

type session struct {
	id            uuid.UUID
	handle        uint32
	registry      *Registry
	accels        *AcceleratorTable
	removeKeyHook func()
}

// Mirror bridges one window's tree to the registrar. Callbacks may arrive on
// any goroutine and tolerate a concurrent Uninstall.
type Mirror struct {
	proxy      Proxy
	tree       *menu.Tree
	win        window.Window
	keySource  window.KeySource
	pressDelay time.Duration
	metrics    *metrics.Recorder
	log        logging.Logger

	mu      sync.Mutex
	session *session
}

// New returns an uninstalled mirror for tree owned by win.
func New(proxy Proxy, tree *menu.Tree, win window.Window, keySource window.KeySource, opts Options) *Mirror {
	delay := opts.PressDelay
	if delay <= 0 {
		delay = config.DefaultPressDelay
	}
	return &Mirror{
		proxy:      proxy,
		tree:       tree,
		win:        win,
		keySource:  keySource,
		pressDelay: delay,
		metrics:    opts.Metrics,
		log:        logging.Scope("mirror"),
	}
}

// Installed reports whether a session is active.
func (m *Mirror) Installed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// Install starts a session for handle and pushes each visible top-level menu
// of roots without its children. Calling it while installed does nothing.
// The local bar is hidden only once the registrar accepted the window; until
// then the menu stays exported and the local bar stays usable.
func (m *Mirror) Install(handle uint32, roots []menu.Ref) {
	m.mu.Lock()
	if m.session != nil {
		m.mu.Unlock()
		return
	}
	s := &session{
		id:       uuid.New(),
		handle:   handle,
		registry: NewRegistry(),
		accels:   NewAcceleratorTable(),
	}
	m.session = s
	m.mu.Unlock()

	m.metrics.SessionStarted()
	m.log.Printf("session %s: installing global menu for window 0x%x", s.id, handle)

	regErr := m.proxy.RegisterWindow(handle, m)
	if regErr != nil {
		m.log.Printf("session %s: registrar unavailable, keeping the local menu bar: %v", s.id, regErr)
	}

	if m.keySource != nil {
		remove := m.keySource.AddKeyListener(m.handleKey)
		m.mu.Lock()
		if m.session == s {
			s.removeKeyHook = remove
			remove = nil
		}
		m.mu.Unlock()
		if remove != nil {
			remove()
		}
	}

	pushed := 0
	for _, ref := range roots {
		node, ok := m.tree.Get(ref)
		if !ok || node.Kind != menu.KindMenu || !node.Visible {
			continue
		}
		m.push(s, registrar.RootID, node)
		pushed++
	}
	if regErr == nil {
		m.setRegistered(s, true)
	}
	logging.Debugf("session %s: pushed %d top-level menus", s.id, pushed)
}

// Uninstall ends the session: the key hook is removed, identifiers and
// accelerators are dropped, the window is unregistered and the local bar
// shown again. It is safe to call at any time and never waits for callbacks
// in flight.
func (m *Mirror) Uninstall() {
	m.mu.Lock()
	s := m.session
	m.session = nil
	m.mu.Unlock()
	if s == nil {
		return
	}

	if s.removeKeyHook != nil {
		s.removeKeyHook()
	}
	s.accels.Clear()
	s.registry.Reset()
	if err := m.proxy.UnregisterWindow(s.handle); err != nil {
		m.log.Printf("session %s: %v", s.id, err)
	}
	m.tree.SetBarVisible(true)
	m.metrics.SessionEnded()
	m.log.Printf("session %s: global menu removed from window 0x%x", s.id, s.handle)
}

// OnAboutToShow pushes the current visible children of the menu bound to id.
func (m *Mirror) OnAboutToShow(id int32) {
	s, node, ok := m.resolve(id)
	if !ok {
		m.metrics.Expansion("stale")
		return
	}
	if node.Kind != menu.KindMenu {
		m.log.Printf("session %s: about-to-show for %s item %d ignored", s.id, node.Kind, id)
		m.metrics.Expansion("invalid")
		return
	}

	for _, ref := range node.Children {
		child, ok := m.tree.Get(ref)
		if !ok || !child.Visible {
			continue
		}
		m.push(s, id, child)
	}
	m.metrics.Expansion("ok")
}

// OnItemActivated presses the enabled, visible item bound to id. Anything
// else is ignored.
func (m *Mirror) OnItemActivated(id int32) {
	_, node, ok := m.resolve(id)
	if !ok || !node.Kind.IsItem() || !node.Enabled || !node.Visible {
		m.metrics.Activation("remote", "ignored")
		return
	}
	m.pulse(node.Ref)
	m.metrics.Activation("remote", "pressed")
}

// OnRegistrarChanged hides the local bar while the registrar shows the menu
// and restores it when the registrar goes away.
func (m *Mirror) OnRegistrarChanged(present bool) {
	s := m.current()
	if s == nil {
		return
	}
	m.log.Printf("session %s: registrar present=%t", s.id, present)
	m.setRegistered(s, present)
}

// setRegistered updates the bar for s unless s has been uninstalled since.
func (m *Mirror) setRegistered(s *session, registered bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != s {
		return
	}
	m.tree.SetBarVisible(!registered)
}

func (m *Mirror) current() *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *Mirror) resolve(id int32) (*session, menu.Node, bool) {
	s := m.current()
	if s == nil {
		logging.Debugf("mirror: callback for %d after uninstall", id)
		return nil, menu.Node{}, false
	}
	ref, ok := s.registry.NodeFor(id)
	if !ok {
		logging.Debugf("mirror: session %s: unknown identifier %d", s.id, id)
		return s, menu.Node{}, false
	}
	node, ok := m.tree.Get(ref)
	if !ok {
		logging.Debugf("mirror: session %s: identifier %d names a removed node", s.id, id)
		return s, menu.Node{}, false
	}
	return s, node, true
}

// push issues the create call for node under parent. Menus are created
// without their children.
func (m *Mirror) push(s *session, parent int32, node menu.Node) {
	var err error
	switch node.Kind {
	case menu.KindMenu:
		err = m.proxy.CreateMenu(s.handle, parent, s.registry.IDFor(node.Ref), node.Label, node.Enabled)
	case menu.KindAction:
		err = m.proxy.CreateItem(s.handle, parent, s.registry.IDFor(node.Ref), node.Label, node.Enabled, node.Accelerator)
		s.accels.Register(node.Ref, node.Accelerator)
	case menu.KindRadio:
		err = m.proxy.CreateRadioItem(s.handle, parent, s.registry.IDFor(node.Ref), node.Label, node.Enabled, node.Accelerator, node.Selected)
		s.accels.Register(node.Ref, node.Accelerator)
	case menu.KindCheck:
		err = m.proxy.CreateCheckItem(s.handle, parent, s.registry.IDFor(node.Ref), node.Label, node.Enabled, node.Accelerator, node.Selected)
		s.accels.Register(node.Ref, node.Accelerator)
	case menu.KindSeparator:
		err = m.proxy.CreateSeparator(s.handle, parent)
	default:
		m.log.Printf("session %s: %s has unsupported kind %s", s.id, node.Ref, node.Kind)
		return
	}
	if err != nil {
		m.log.Printf("session %s: push %s %q: %v", s.id, node.Kind, node.Label, err)
	}
}

// handleKey dispatches key releases of the owning window to accelerators.
func (m *Mirror) handleKey(ev window.KeyEvent) {
	if ev.Type != window.KeyReleased || keys.IsModifier(ev.Code) {
		return
	}
	s := m.current()
	if s == nil || !m.win.IsActive() || window.OwnerOf(ev.Source) != m.win {
		return
	}

	desc := BuildAcceleratorKey(ev.Modifiers, ev.Code)
	ref, ok := s.accels.Dispatch(desc)
	if !ok {
		return
	}
	node, ok := m.tree.Get(ref)
	// The table keeps the chord seen at the last expansion; the item may
	// have been rebound since.
	if ok && (node.Accelerator.IsZero() || BuildAcceleratorKey(node.Accelerator.Modifiers, node.Accelerator.Code) != desc) {
		logging.Debugf("mirror: session %s: %s no longer bound to %s", s.id, ref, desc)
		ok = false
	}
	if !ok || !node.Kind.IsItem() || !node.Enabled || !node.Visible {
		m.metrics.Activation("accelerator", "ignored")
		return
	}
	m.metrics.Activation("accelerator", "pressed")
	go m.pulse(ref)
}

// pulse emulates a short button press, firing the item's actions on release.
func (m *Mirror) pulse(ref menu.Ref) {
	m.tree.SetArmed(ref, true)
	m.tree.SetPressed(ref, true)
	time.Sleep(m.pressDelay)
	m.tree.SetPressed(ref, false)
	m.tree.SetArmed(ref, false)
}
