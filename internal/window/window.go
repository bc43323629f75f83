// Package window models the windows and components that own menu trees and
// deliver activation and keyboard events to the bridge.
package window

import (
	"sort"
	"sync"

	"github.com/example/appmenu/internal/keys"
)

// EventType represents a window state change.
type EventType int

const (
	EventOpened EventType = iota + 1
	EventActivated
	EventDeactivated
	EventIconified
	EventDeiconified
	EventClosing
	EventClosed
)

func (t EventType) String() string {
	switch t {
	case EventOpened:
		return "opened"
	case EventActivated:
		return "activated"
	case EventDeactivated:
		return "deactivated"
	case EventIconified:
		return "iconified"
	case EventDeiconified:
		return "deiconified"
	case EventClosing:
		return "closing"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is delivered to window listeners.
type Event struct {
	Type   EventType
	Window Window
}

// KeyEventType distinguishes key presses from releases.
type KeyEventType int

const (
	KeyPressed KeyEventType = iota + 1
	KeyReleased
)

// KeyEvent is a keystroke delivered anywhere in the process.
type KeyEvent struct {
	Type      KeyEventType
	Modifiers keys.Modifier
	Code      keys.Code
	// Source is the component that had keyboard focus.
	Source Component
}

// Component is a node of a window's component tree.
type Component interface {
	Parent() Component
}

// Window is a top-level component with a native handle.
type Window interface {
	Component
	// Handle returns the native (X11) window identifier.
	Handle() uint32
	IsActive() bool
	// AddListener registers fn for window events and returns a function that
	// removes it.
	AddListener(fn func(Event)) (remove func())
}

// KeySource delivers every keystroke of the process to its listeners.
type KeySource interface {
	AddKeyListener(fn func(KeyEvent)) (remove func())
}

// OwnerOf ascends the parent chain of c until it reaches a window. Nil
// components, typed or not, have no owner.
func OwnerOf(c Component) Window {
	for c != nil {
		if f, ok := c.(*Frame); ok && f == nil {
			return nil
		}
		if w, ok := c.(Window); ok {
			return w
		}
		c = c.Parent()
	}
	return nil
}

// listenerSet is a registry of callbacks that can be removed individually.
type listenerSet[T any] struct {
	mu    sync.Mutex
	next  int
	items map[int]func(T)
}

func (s *listenerSet[T]) add(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items == nil {
		s.items = make(map[int]func(T))
	}
	id := s.next
	s.next++
	s.items[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.items, id)
			s.mu.Unlock()
		})
	}
}

func (s *listenerSet[T]) snapshot() []func(T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(T), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.items[id])
	}
	return out
}

func (s *listenerSet[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
