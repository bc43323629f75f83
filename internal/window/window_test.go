package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerOfAscendsToFrame(t *testing.T) {
	d := NewDesktop()
	f := d.NewFrame(0x2a, "editor")
	inner := NewPanel(NewPanel(f, "outer"), "inner")

	assert.Equal(t, Window(f), OwnerOf(inner))
	assert.Equal(t, Window(f), OwnerOf(f))
	assert.Nil(t, OwnerOf(NewPanel(nil, "detached")))
	assert.Nil(t, OwnerOf(nil))
}

func TestOwnerOfTypedNilSources(t *testing.T) {
	var panel *Panel
	var frame *Frame
	require.NotPanics(t, func() {
		assert.Nil(t, OwnerOf(panel))
		assert.Nil(t, OwnerOf(frame))
		assert.Nil(t, OwnerOf(NewPanel(frame, "orphan")))
	})
}

func TestActivationIsExclusive(t *testing.T) {
	d := NewDesktop()
	a := d.NewFrame(1, "a")
	b := d.NewFrame(2, "b")

	var events []string
	a.AddListener(func(ev Event) { events = append(events, "a:"+ev.Type.String()) })
	b.AddListener(func(ev Event) { events = append(events, "b:"+ev.Type.String()) })

	a.Activate()
	b.Activate()
	b.Activate()

	assert.False(t, a.IsActive())
	assert.True(t, b.IsActive())
	assert.Equal(t, []string{"a:activated", "a:deactivated", "b:activated"}, events)
}

func TestCloseEmitsClosingOnce(t *testing.T) {
	d := NewDesktop()
	f := d.NewFrame(1, "a")
	f.Activate()

	var types []EventType
	remove := f.AddListener(func(ev Event) { types = append(types, ev.Type) })
	f.Close()
	f.Close()
	f.Activate()

	assert.Equal(t, []EventType{EventClosing, EventDeactivated, EventClosed}, types)
	assert.Nil(t, d.Active())

	remove()
	remove()
	assert.Equal(t, 0, f.Listeners())
}

func TestPostKeyReachesListenersInOrder(t *testing.T) {
	d := NewDesktop()
	var got []int
	removeFirst := d.AddKeyListener(func(KeyEvent) { got = append(got, 1) })
	d.AddKeyListener(func(KeyEvent) { got = append(got, 2) })

	d.PostKey(KeyEvent{Type: KeyReleased})
	removeFirst()
	d.PostKey(KeyEvent{Type: KeyReleased})

	require.Equal(t, []int{1, 2, 2}, got)
	assert.Equal(t, 1, d.KeyListeners())
}
