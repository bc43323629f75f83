// Package lifecycle ties a menu mirror to the activation state of its window.
package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/example/appmenu/internal/logging"
	"github.com/example/appmenu/internal/menu"
	"github.com/example/appmenu/internal/window"
)

const acquireTimeout = 5 * time.Second

// Service is the process-wide registrar connection.
type Service interface {
	Acquire(ctx context.Context) error
	Release()
}

// Installer mirrors a menu tree for one window.
type Installer interface {
	Install(handle uint32, roots []menu.Ref)
	Uninstall()
}

// Monitor installs the mirror the first time its window is activated and
// removes it when the window is closing. Other window events leave the mirror
// in place.
type Monitor struct {
	win    window.Window
	tree   *menu.Tree
	mirror Installer
	svc    Service
	log    logging.Logger

	// mu is held for the whole install and uninstall bodies so that their
	// registrar calls never interleave.
	mu        sync.Mutex
	installed bool
	acquired  bool
	detach    func()
}

// New returns a monitor; call Attach to start observing the window.
func New(win window.Window, tree *menu.Tree, mirror Installer, svc Service) *Monitor {
	return &Monitor{
		win:    win,
		tree:   tree,
		mirror: mirror,
		svc:    svc,
		log:    logging.Scope("lifecycle"),
	}
}

// Attach starts listening for window events. Attaching twice is a no-op.
func (m *Monitor) Attach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.detach != nil {
		return
	}
	m.detach = m.win.AddListener(m.handleEvent)
}

// Installed reports whether the mirror is currently installed.
func (m *Monitor) Installed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.installed
}

// Reinstall tears the session down and installs it again from the current
// roots. Owners call it after rebuilding the tree, since identifiers of the
// old nodes no longer resolve. It does nothing while not installed.
func (m *Monitor) Reinstall() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.installed {
		return
	}
	m.mirror.Uninstall()
	m.mirror.Install(m.win.Handle(), m.tree.Roots())
}

func (m *Monitor) handleEvent(ev window.Event) {
	switch ev.Type {
	case window.EventActivated:
		m.tryInstall()
	case window.EventClosing:
		m.tryUninstall()
	default:
		logging.Debugf("lifecycle: window 0x%x %s; mirror unchanged", m.win.Handle(), ev.Type)
	}
}

func (m *Monitor) tryInstall() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.installed {
		return
	}

	if !m.acquired {
		ctx, cancel := context.WithTimeout(context.Background(), acquireTimeout)
		err := m.svc.Acquire(ctx)
		cancel()
		if err != nil {
			m.log.Printf("registrar unavailable, keeping local menu: %v", err)
			return
		}
		m.acquired = true
	}

	m.mirror.Install(m.win.Handle(), m.tree.Roots())
	m.installed = true
}

func (m *Monitor) tryUninstall() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.installed {
		m.mirror.Uninstall()
		m.installed = false
	}
	if m.acquired {
		m.svc.Release()
		m.acquired = false
	}
	if m.detach != nil {
		m.detach()
		m.detach = nil
	}
}
