package window

import (
	"sync"
)

// Desktop is an in-process toolkit: it tracks which of its frames is active
// and fans keystrokes out to process-wide key listeners.
type Desktop struct {
	mu     sync.Mutex
	active *Frame

	keyListeners listenerSet[KeyEvent]
}

// NewDesktop returns a desktop with no frames.
func NewDesktop() *Desktop {
	return &Desktop{}
}

// AddKeyListener registers fn for every keystroke posted to the desktop.
func (d *Desktop) AddKeyListener(fn func(KeyEvent)) func() {
	return d.keyListeners.add(fn)
}

// KeyListeners reports how many key listeners are registered.
func (d *Desktop) KeyListeners() int {
	return d.keyListeners.len()
}

// PostKey delivers ev to every key listener on the calling goroutine.
func (d *Desktop) PostKey(ev KeyEvent) {
	for _, fn := range d.keyListeners.snapshot() {
		fn(ev)
	}
}

// Active returns the active frame, if any.
func (d *Desktop) Active() *Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// NewFrame creates a frame with the given native handle. The frame is opened
// but not active.
func (d *Desktop) NewFrame(handle uint32, title string) *Frame {
	f := &Frame{desktop: d, handle: handle, title: title}
	f.emit(EventOpened)
	return f
}

// activate makes f the active frame, deactivating the previous one.
func (d *Desktop) activate(f *Frame) {
	d.mu.Lock()
	prev := d.active
	if prev == f {
		d.mu.Unlock()
		return
	}
	d.active = f
	d.mu.Unlock()

	if prev != nil {
		prev.emit(EventDeactivated)
	}
	if f != nil {
		f.emit(EventActivated)
	}
}

func (d *Desktop) deactivate(f *Frame) {
	d.mu.Lock()
	if d.active != f {
		d.mu.Unlock()
		return
	}
	d.active = nil
	d.mu.Unlock()
	f.emit(EventDeactivated)
}

// Frame is a top-level window on a Desktop.
type Frame struct {
	desktop *Desktop
	handle  uint32
	title   string

	mu     sync.Mutex
	closed bool

	listeners listenerSet[Event]
}

var _ Window = (*Frame)(nil)

// Parent returns nil; frames are tree roots.
func (f *Frame) Parent() Component { return nil }

// Handle returns the native window identifier.
func (f *Frame) Handle() uint32 { return f.handle }

// Title returns the frame title.
func (f *Frame) Title() string { return f.title }

// IsActive reports whether the frame currently has focus.
func (f *Frame) IsActive() bool {
	return f.desktop.Active() == f
}

// AddListener registers fn for this frame's window events.
func (f *Frame) AddListener(fn func(Event)) func() {
	return f.listeners.add(fn)
}

// Listeners reports how many window listeners are registered.
func (f *Frame) Listeners() int {
	return f.listeners.len()
}

// Activate focuses the frame.
func (f *Frame) Activate() {
	if f.isClosed() {
		return
	}
	f.desktop.activate(f)
}

// Deactivate removes focus from the frame if it has it.
func (f *Frame) Deactivate() {
	f.desktop.deactivate(f)
}

// Iconify minimizes the frame.
func (f *Frame) Iconify() {
	f.Deactivate()
	f.emit(EventIconified)
}

// Deiconify restores the frame.
func (f *Frame) Deiconify() {
	f.emit(EventDeiconified)
}

// Close delivers closing then closed. Closing a frame twice is a no-op.
func (f *Frame) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()

	f.emit(EventClosing)
	f.desktop.deactivate(f)
	f.emit(EventClosed)
}

func (f *Frame) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Frame) emit(t EventType) {
	ev := Event{Type: t, Window: f}
	for _, fn := range f.listeners.snapshot() {
		fn(ev)
	}
}

// Panel is a component nested inside a frame or another panel.
type Panel struct {
	parent Component
	name   string
}

// NewPanel returns a panel attached to parent.
func NewPanel(parent Component, name string) *Panel {
	return &Panel{parent: parent, name: name}
}

// Parent returns the enclosing component, or nil for a nil panel.
func (p *Panel) Parent() Component {
	if p == nil {
		return nil
	}
	return p.parent
}

// Name returns the panel name.
func (p *Panel) Name() string { return p.name }
