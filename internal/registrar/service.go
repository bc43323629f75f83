// Package registrar exports window menus over the com.canonical.dbusmenu
// protocol and registers them with the global menu registrar on the session
// bus.
package registrar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/example/appmenu/internal/config"
	"github.com/example/appmenu/internal/keys"
	"github.com/example/appmenu/internal/logging"
	"github.com/example/appmenu/internal/metrics"
)

var (
	// ErrNotConnected is returned when a call is made before Acquire.
	ErrNotConnected = errors.New("registrar service not connected")
	// ErrUnknownWindow is returned for handles that were never registered.
	ErrUnknownWindow = errors.New("window not registered")
)

// Handler receives the inbound callbacks for one registered window. Calls
// arrive on bus goroutines, never on the caller of RegisterWindow.
type Handler interface {
	OnAboutToShow(id int32)
	OnItemActivated(id int32)
	// OnRegistrarChanged reports whether the registrar currently shows the
	// window's menu. It fires when the registrar leaves the bus and after a
	// new owner accepted the window again.
	OnRegistrarChanged(present bool)
}

// bus is the subset of a session bus connection the service needs.
type bus interface {
	exportMenu(path dbus.ObjectPath, obj *menuObject) error
	unexportMenu(path dbus.ObjectPath) error
	emit(path dbus.ObjectPath, signal string, values ...interface{}) error
	registerWindow(ctx context.Context, windowID uint32, menuPath dbus.ObjectPath) error
	unregisterWindow(ctx context.Context, windowID uint32) error
	watchOwner(name string) (<-chan string, error)
	close() error
}

type windowMenu struct {
	handle  uint32
	path    dbus.ObjectPath
	handler Handler

	mu       sync.Mutex
	model    *model
	building int
	closed   bool
	// expanded maps a submenu to the model revision its last expansion left.
	expanded map[int32]uint32
}

// Service is the process-wide connection to the session bus. It is started
// lazily by the first Acquire and kept alive until Shutdown.
type Service struct {
	cfg     config.RegistrarConfig
	timeout time.Duration
	metrics *metrics.Recorder
	log     logging.Logger
	dial    func() (bus, error)

	mu      sync.Mutex
	bus     bus
	refs    int
	windows map[uint32]*windowMenu
}

var (
	defaultOnce    sync.Once
	defaultService *Service
)

// Default returns the process-wide service, creating it from cfg on first
// use. Later calls ignore their arguments.
func Default(cfg *config.Config, rec *metrics.Recorder) *Service {
	defaultOnce.Do(func() {
		defaultService = NewService(cfg, rec)
	})
	return defaultService
}

// NewService constructs an unconnected service.
func NewService(cfg *config.Config, rec *metrics.Recorder) *Service {
	s := &Service{
		cfg:     cfg.Registrar,
		timeout: cfg.CallTimeout(),
		metrics: rec,
		log:     logging.Scope("registrar"),
		windows: make(map[uint32]*windowMenu),
	}
	s.dial = func() (bus, error) { return dialSessionBus(s.cfg) }
	return s
}

// Acquire connects to the session bus on first use and counts one more
// session relying on the connection.
func (s *Service) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bus == nil {
		b, err := s.dial()
		if err != nil {
			return fmt.Errorf("connect session bus: %w", err)
		}
		owners, err := b.watchOwner(s.cfg.BusName)
		if err != nil {
			s.log.Printf("cannot watch %s; registrar restarts will not be followed: %v", s.cfg.BusName, err)
		} else {
			go s.watch(owners)
		}
		s.bus = b
		s.log.Debugf("connected to session bus")
	}
	s.refs++
	return nil
}

// Release drops one session reference. The connection stays open until
// Shutdown so later sessions reuse it.
func (s *Service) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs > 0 {
		s.refs--
	}
	s.log.Debugf("released session reference (%d remaining)", s.refs)
}

// Refs reports the number of sessions holding the service.
func (s *Service) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

// Shutdown unregisters every window and closes the connection. It is meant
// for process exit; failures are logged and otherwise ignored.
func (s *Service) Shutdown() {
	s.mu.Lock()
	b := s.bus
	windows := s.windows
	s.bus = nil
	s.refs = 0
	s.windows = make(map[uint32]*windowMenu)
	s.mu.Unlock()

	if b == nil {
		return
	}
	for handle, w := range windows {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if err := b.unregisterWindow(ctx, handle); err != nil {
			s.log.Debugf("unregister window 0x%x at shutdown: %v", handle, err)
		}
		cancel()
		_ = b.unexportMenu(w.path)
	}
	if err := b.close(); err != nil {
		s.log.Debugf("close session bus: %v", err)
	}
}

// RegisterWindow exports a dbusmenu object for handle and announces it to the
// registrar. Registering an already registered handle only replaces its
// handler.
func (s *Service) RegisterWindow(handle uint32, h Handler) error {
	s.mu.Lock()
	if s.bus == nil {
		s.mu.Unlock()
		return ErrNotConnected
	}
	if w, ok := s.windows[handle]; ok {
		w.mu.Lock()
		w.handler = h
		w.mu.Unlock()
		s.mu.Unlock()
		return nil
	}

	w := &windowMenu{
		handle:   handle,
		path:     menuPath(s.cfg.MenuPathPrefix, handle),
		handler:  h,
		model:    newModel(),
		expanded: make(map[int32]uint32),
	}
	b := s.bus
	if err := b.exportMenu(w.path, &menuObject{svc: s, win: w}); err != nil {
		s.mu.Unlock()
		s.metrics.NativeCall("RegisterWindow", err)
		return fmt.Errorf("export menu %s: %w", w.path, err)
	}
	s.windows[handle] = w
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err := b.registerWindow(ctx, handle, w.path)
	s.metrics.NativeCall("RegisterWindow", err)
	if err != nil {
		return fmt.Errorf("register window 0x%x: %w", handle, err)
	}
	return nil
}

// UnregisterWindow withdraws the window from the registrar and removes its
// exported menu.
func (s *Service) UnregisterWindow(handle uint32) error {
	s.mu.Lock()
	w, ok := s.windows[handle]
	delete(s.windows, handle)
	b := s.bus
	s.mu.Unlock()
	if !ok || b == nil {
		return ErrUnknownWindow
	}

	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err := b.unregisterWindow(ctx, handle)
	s.metrics.NativeCall("UnregisterWindow", err)
	if uerr := b.unexportMenu(w.path); uerr != nil && err == nil {
		err = uerr
	}
	if err != nil {
		return fmt.Errorf("unregister window 0x%x: %w", handle, err)
	}
	return nil
}

// CreateMenu adds a submenu entry under parent.
func (s *Service) CreateMenu(handle uint32, parent, id int32, label string, enabled bool) error {
	return s.push(handle, "CreateMenu", parent, func(m *model) error {
		return m.add(parent, id, menuProps(label, enabled))
	})
}

// CreateItem adds a plain item under parent.
func (s *Service) CreateItem(handle uint32, parent, id int32, label string, enabled bool, accel keys.Chord) error {
	return s.push(handle, "CreateItem", parent, func(m *model) error {
		return m.add(parent, id, itemProps(label, enabled, accel))
	})
}

// CreateRadioItem adds a radio item under parent.
func (s *Service) CreateRadioItem(handle uint32, parent, id int32, label string, enabled bool, accel keys.Chord, selected bool) error {
	return s.push(handle, "CreateRadioItem", parent, func(m *model) error {
		return m.add(parent, id, toggleProps(label, enabled, accel, "radio", selected))
	})
}

// CreateCheckItem adds a check item under parent.
func (s *Service) CreateCheckItem(handle uint32, parent, id int32, label string, enabled bool, accel keys.Chord, selected bool) error {
	return s.push(handle, "CreateCheckItem", parent, func(m *model) error {
		return m.add(parent, id, toggleProps(label, enabled, accel, "checkmark", selected))
	})
}

// CreateSeparator adds a separator under parent.
func (s *Service) CreateSeparator(handle uint32, parent int32) error {
	return s.push(handle, "CreateSeparator", parent, func(m *model) error {
		_, err := m.addSeparator(parent)
		return err
	})
}

func (s *Service) push(handle uint32, call string, parent int32, apply func(*model) error) error {
	s.mu.Lock()
	w, ok := s.windows[handle]
	b := s.bus
	s.mu.Unlock()
	if !ok || b == nil {
		s.metrics.NativeCall(call, ErrUnknownWindow)
		return ErrUnknownWindow
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		s.metrics.NativeCall(call, ErrUnknownWindow)
		return ErrUnknownWindow
	}
	err := apply(w.model)
	revision := w.model.revision
	batched := w.building > 0
	w.mu.Unlock()

	s.metrics.NativeCall(call, err)
	if err != nil {
		return fmt.Errorf("%s under %d: %w", call, parent, err)
	}
	if !batched {
		s.layoutUpdated(b, w, revision, parent)
	}
	return nil
}

// expand repopulates a submenu by resetting its wire children and asking the
// window's handler to push them again. It reports false for unknown ids.
func (s *Service) expand(w *windowMenu, id int32) bool {
	w.mu.Lock()
	if w.closed || id == RootID || !w.model.resetChildren(id) {
		w.mu.Unlock()
		return false
	}
	w.building++
	h := w.handler
	w.mu.Unlock()

	if h != nil {
		h.OnAboutToShow(id)
	}

	w.mu.Lock()
	w.building--
	revision := w.model.revision
	w.expanded[id] = revision
	closed := w.closed
	w.mu.Unlock()

	if !closed {
		s.mu.Lock()
		b := s.bus
		s.mu.Unlock()
		if b != nil {
			s.layoutUpdated(b, w, revision, id)
		}
	}
	return true
}

// opened expands id unless its last expansion is still current, so an
// AboutToShow followed by an "opened" event costs a single round trip.
func (s *Service) opened(w *windowMenu, id int32) bool {
	w.mu.Lock()
	rev, seen := w.expanded[id]
	current := seen && !w.closed && rev == w.model.revision && w.model.has(id)
	w.mu.Unlock()
	if current {
		return true
	}
	return s.expand(w, id)
}

func (s *Service) activate(w *windowMenu, id int32) bool {
	w.mu.Lock()
	known := !w.closed && w.model.has(id)
	h := w.handler
	w.mu.Unlock()
	if !known || h == nil {
		return false
	}
	h.OnItemActivated(id)
	return true
}

func (s *Service) layoutUpdated(b bus, w *windowMenu, revision uint32, parent int32) {
	if err := b.emit(w.path, dbusmenuInterface+".LayoutUpdated", revision, parent); err != nil {
		s.log.Debugf("emit LayoutUpdated for 0x%x: %v", w.handle, err)
	}
}

// watch re-registers every window whenever the registrar gains a new owner
// and tells handlers when it goes away.
func (s *Service) watch(owners <-chan string) {
	for owner := range owners {
		if owner == "" {
			s.log.Printf("%s left the bus; menus stay exported until it returns", s.cfg.BusName)
			for _, w := range s.snapshot() {
				s.notifyPresence(w, false)
			}
			continue
		}
		s.log.Printf("%s is now owned by %s; re-registering windows", s.cfg.BusName, owner)
		s.reregister()
	}
}

func (s *Service) reregister() {
	s.mu.Lock()
	b := s.bus
	s.mu.Unlock()
	if b == nil {
		return
	}

	for _, w := range s.snapshot() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err := b.registerWindow(ctx, w.handle, w.path)
		cancel()
		s.metrics.NativeCall("RegisterWindow", err)
		if err != nil {
			s.log.Printf("re-register window 0x%x: %v", w.handle, err)
			continue
		}
		s.notifyPresence(w, true)
	}
}

func (s *Service) snapshot() []*windowMenu {
	s.mu.Lock()
	defer s.mu.Unlock()
	windows := make([]*windowMenu, 0, len(s.windows))
	for _, w := range s.windows {
		windows = append(windows, w)
	}
	return windows
}

func (s *Service) notifyPresence(w *windowMenu, present bool) {
	w.mu.Lock()
	h := w.handler
	closed := w.closed
	w.mu.Unlock()
	if closed || h == nil {
		return
	}
	h.OnRegistrarChanged(present)
}

func menuPath(prefix string, handle uint32) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("%s/%X", prefix, handle))
}
