package registrar

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/appmenu/internal/config"
	"github.com/example/appmenu/internal/keys"
)

type emitted struct {
	path     dbus.ObjectPath
	signal   string
	revision uint32
	parent   int32
}

type fakeBus struct {
	mu           sync.Mutex
	exported     map[dbus.ObjectPath]*menuObject
	registered   map[uint32]dbus.ObjectPath
	registerHits int
	signals      []emitted
	owners       chan string
	registerErr  error
	closed       bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		exported:   make(map[dbus.ObjectPath]*menuObject),
		registered: make(map[uint32]dbus.ObjectPath),
		owners:     make(chan string, 1),
	}
}

func (b *fakeBus) exportMenu(path dbus.ObjectPath, obj *menuObject) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exported[path] = obj
	return nil
}

func (b *fakeBus) unexportMenu(path dbus.ObjectPath) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.exported, path)
	return nil
}

func (b *fakeBus) emit(path dbus.ObjectPath, signal string, values ...interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signals = append(b.signals, emitted{
		path:     path,
		signal:   signal,
		revision: values[0].(uint32),
		parent:   values[1].(int32),
	})
	return nil
}

func (b *fakeBus) registerWindow(_ context.Context, windowID uint32, menuPath dbus.ObjectPath) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registerHits++
	if b.registerErr != nil {
		return b.registerErr
	}
	b.registered[windowID] = menuPath
	return nil
}

func (b *fakeBus) unregisterWindow(_ context.Context, windowID uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.registered, windowID)
	return nil
}

func (b *fakeBus) watchOwner(string) (<-chan string, error) {
	return b.owners, nil
}

func (b *fakeBus) close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	close(b.owners)
	return nil
}

func (b *fakeBus) object(path dbus.ObjectPath) *menuObject {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exported[path]
}

func (b *fakeBus) signalCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.signals)
}

// recordingHandler pushes a fixed child list on expansion.
type recordingHandler struct {
	svc       *Service
	handle    uint32
	expanded  []int32
	activated []int32

	mu       sync.Mutex
	presence []bool
}

func (h *recordingHandler) OnAboutToShow(id int32) {
	h.expanded = append(h.expanded, id)
	_ = h.svc.CreateItem(h.handle, id, 100, "New", true, keys.Chord{})
	_ = h.svc.CreateSeparator(h.handle, id)
	_ = h.svc.CreateCheckItem(h.handle, id, 101, "Wrap", true, keys.Chord{}, true)
}

func (h *recordingHandler) OnItemActivated(id int32) {
	h.activated = append(h.activated, id)
}

func (h *recordingHandler) OnRegistrarChanged(present bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.presence = append(h.presence, present)
}

func (h *recordingHandler) seen() []bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]bool(nil), h.presence...)
}

func newTestService(t *testing.T) (*Service, *fakeBus) {
	t.Helper()
	fb := newFakeBus()
	svc := NewService(config.Default(), nil)
	dials := 0
	svc.dial = func() (bus, error) {
		dials++
		require.Equal(t, 1, dials, "session bus dialed more than once")
		return fb, nil
	}
	return svc, fb
}

func TestAcquireIsLazyAndCounted(t *testing.T) {
	svc, fb := newTestService(t)
	assert.ErrorIs(t, svc.RegisterWindow(1, nil), ErrNotConnected)

	require.NoError(t, svc.Acquire(context.Background()))
	require.NoError(t, svc.Acquire(context.Background()))
	assert.Equal(t, 2, svc.Refs())

	svc.Release()
	svc.Release()
	svc.Release()
	assert.Equal(t, 0, svc.Refs())
	assert.False(t, fb.closed, "release must not stop the service")
}

func TestAcquireHonoursCancelledContext(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.Acquire(ctx), context.Canceled)
	assert.Equal(t, 0, svc.Refs())
}

func TestRegisterWindowExportsMenu(t *testing.T) {
	svc, fb := newTestService(t)
	require.NoError(t, svc.Acquire(context.Background()))
	require.NoError(t, svc.RegisterWindow(0x2a, &recordingHandler{}))

	path := dbus.ObjectPath("/com/canonical/menu/2A")
	assert.NotNil(t, fb.object(path))
	assert.Equal(t, path, fb.registered[0x2a])

	require.NoError(t, svc.UnregisterWindow(0x2a))
	assert.Nil(t, fb.object(path))
	assert.NotContains(t, fb.registered, uint32(0x2a))
	assert.ErrorIs(t, svc.UnregisterWindow(0x2a), ErrUnknownWindow)
}

func TestRegisterWindowReportsRegistrarFailure(t *testing.T) {
	svc, fb := newTestService(t)
	fb.registerErr = errors.New("no registrar")
	require.NoError(t, svc.Acquire(context.Background()))

	err := svc.RegisterWindow(7, &recordingHandler{})
	assert.ErrorContains(t, err, "no registrar")
	// The menu stays exported so a later registrar can pick it up.
	assert.NotNil(t, fb.object("/com/canonical/menu/7"))
}

func TestCreateEmitsLayoutUpdated(t *testing.T) {
	svc, fb := newTestService(t)
	require.NoError(t, svc.Acquire(context.Background()))
	require.NoError(t, svc.RegisterWindow(1, &recordingHandler{}))

	require.NoError(t, svc.CreateMenu(1, RootID, 5, "_File", true))
	require.Equal(t, 1, fb.signalCount())
	assert.Equal(t, dbusmenuInterface+".LayoutUpdated", fb.signals[0].signal)
	assert.Equal(t, RootID, fb.signals[0].parent)

	assert.Error(t, svc.CreateItem(1, 99, 6, "Orphan", true, keys.Chord{}))
	assert.ErrorIs(t, svc.CreateMenu(2, RootID, 7, "Other", true), ErrUnknownWindow)
}

func TestAboutToShowRepopulatesOneBatch(t *testing.T) {
	svc, fb := newTestService(t)
	require.NoError(t, svc.Acquire(context.Background()))
	h := &recordingHandler{svc: svc, handle: 1}
	require.NoError(t, svc.RegisterWindow(1, h))
	require.NoError(t, svc.CreateMenu(1, RootID, 5, "File", true))

	obj := fb.object("/com/canonical/menu/1")
	require.NotNil(t, obj)
	before := fb.signalCount()

	changed, derr := obj.AboutToShow(5)
	require.Nil(t, derr)
	assert.True(t, changed)
	assert.Equal(t, []int32{5}, h.expanded)
	assert.Equal(t, before+1, fb.signalCount(), "expansion emits a single LayoutUpdated")

	// A second expansion replaces the children instead of appending.
	_, _ = obj.AboutToShow(5)
	_, layout, derr := obj.GetLayout(5, 1, nil)
	require.Nil(t, derr)
	assert.Len(t, layout.Children, 3)

	changed, _ = obj.AboutToShow(42)
	assert.False(t, changed)
	changed, _ = obj.AboutToShow(RootID)
	assert.False(t, changed)
}

func TestEventRoutesClicksAndOpens(t *testing.T) {
	svc, fb := newTestService(t)
	require.NoError(t, svc.Acquire(context.Background()))
	h := &recordingHandler{svc: svc, handle: 3}
	require.NoError(t, svc.RegisterWindow(3, h))
	require.NoError(t, svc.CreateMenu(3, RootID, 5, "File", true))

	obj := fb.object("/com/canonical/menu/3")
	require.Nil(t, obj.Event(5, "opened", dbus.MakeVariant(""), 0))
	require.Nil(t, obj.Event(100, "clicked", dbus.MakeVariant(""), 0))
	require.Nil(t, obj.Event(555, "clicked", dbus.MakeVariant(""), 0))

	assert.Equal(t, []int32{5}, h.expanded)
	assert.Equal(t, []int32{100}, h.activated)

	missing, derr := obj.EventGroup([]menuEvent{
		{ID: 101, EventID: "clicked"},
		{ID: 999, EventID: "clicked"},
	})
	require.Nil(t, derr)
	assert.Equal(t, []int32{999}, missing)
	assert.Equal(t, []int32{100, 101}, h.activated)
}

func TestOpenedAfterAboutToShowIsNotExpandedTwice(t *testing.T) {
	svc, fb := newTestService(t)
	require.NoError(t, svc.Acquire(context.Background()))
	h := &recordingHandler{svc: svc, handle: 8}
	require.NoError(t, svc.RegisterWindow(8, h))
	require.NoError(t, svc.CreateMenu(8, RootID, 5, "File", true))
	obj := fb.object("/com/canonical/menu/8")
	before := fb.signalCount()

	_, derr := obj.AboutToShow(5)
	require.Nil(t, derr)
	require.Nil(t, obj.Event(5, "opened", dbus.MakeVariant(""), 0))
	assert.Equal(t, []int32{5}, h.expanded)
	assert.Equal(t, before+1, fb.signalCount())

	// Any change to the layout makes the next open expand again.
	require.NoError(t, svc.CreateMenu(8, RootID, 6, "Edit", true))
	require.Nil(t, obj.Event(5, "opened", dbus.MakeVariant(""), 0))
	assert.Equal(t, []int32{5, 5}, h.expanded)
}

func TestGetPropertyErrors(t *testing.T) {
	svc, fb := newTestService(t)
	require.NoError(t, svc.Acquire(context.Background()))
	require.NoError(t, svc.RegisterWindow(4, &recordingHandler{}))
	require.NoError(t, svc.CreateMenu(4, RootID, 5, "File", true))
	obj := fb.object("/com/canonical/menu/4")

	v, derr := obj.GetProperty(5, "label")
	require.Nil(t, derr)
	assert.Equal(t, "File", v.Value())

	_, derr = obj.GetProperty(5, "icon-name")
	require.NotNil(t, derr)
	assert.Equal(t, errUnknownProp, derr.Name)

	_, derr = obj.GetProperty(6, "label")
	require.NotNil(t, derr)
	assert.Equal(t, errUnknownItem, derr.Name)
}

func TestOwnerChangeReregistersWindows(t *testing.T) {
	svc, fb := newTestService(t)
	require.NoError(t, svc.Acquire(context.Background()))
	require.NoError(t, svc.RegisterWindow(1, &recordingHandler{}))
	require.NoError(t, svc.RegisterWindow(2, &recordingHandler{}))

	fb.owners <- ":1.77"
	require.Eventually(t, func() bool {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		return fb.registerHits == 4
	}, time.Second, 5*time.Millisecond)
}

func TestRegistrarVanishAndReturnNotifiesHandlers(t *testing.T) {
	svc, fb := newTestService(t)
	require.NoError(t, svc.Acquire(context.Background()))
	fb.registerErr = errors.New("no registrar")
	h := &recordingHandler{}
	require.Error(t, svc.RegisterWindow(1, h))

	fb.owners <- ""
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]bool{false}, h.seen())
	}, time.Second, 5*time.Millisecond)

	// A new owner that still rejects the window is not reported as present.
	fb.owners <- ":1.80"
	require.Eventually(t, func() bool {
		fb.mu.Lock()
		defer fb.mu.Unlock()
		return fb.registerHits == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []bool{false}, h.seen())

	fb.mu.Lock()
	fb.registerErr = nil
	fb.mu.Unlock()
	fb.owners <- ":1.81"
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]bool{false, true}, h.seen())
	}, time.Second, 5*time.Millisecond)
}

func TestShutdownUnregistersEverything(t *testing.T) {
	svc, fb := newTestService(t)
	require.NoError(t, svc.Acquire(context.Background()))
	require.NoError(t, svc.RegisterWindow(1, &recordingHandler{}))

	svc.Shutdown()
	assert.True(t, fb.closed)
	assert.Empty(t, fb.registered)
	assert.Empty(t, fb.exported)
	assert.Equal(t, 0, svc.Refs())
	assert.ErrorIs(t, svc.CreateMenu(1, RootID, 5, "File", true), ErrUnknownWindow)

	svc.Shutdown()
}
