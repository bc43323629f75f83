package mirror

import (
	"sync"

	"github.com/example/appmenu/internal/keys"
	"github.com/example/appmenu/internal/menu"
)

// AcceleratorTable maps keystroke descriptors to the items they fire. It is
// filled as submenus are expanded.
type AcceleratorTable struct {
	mu      sync.Mutex
	entries map[string]menu.Ref
}

// NewAcceleratorTable returns an empty table.
func NewAcceleratorTable() *AcceleratorTable {
	return &AcceleratorTable{entries: make(map[string]menu.Ref)}
}

// Register binds chord to ref. A later registration of the same chord wins;
// zero chords and modifier-only chords are ignored.
func (t *AcceleratorTable) Register(ref menu.Ref, chord keys.Chord) {
	if chord.IsZero() || keys.IsModifier(chord.Code) {
		return
	}
	t.mu.Lock()
	t.entries[BuildAcceleratorKey(chord.Modifiers, chord.Code)] = ref
	t.mu.Unlock()
}

// Dispatch looks up the item bound to descriptor.
func (t *AcceleratorTable) Dispatch(descriptor string) (menu.Ref, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ref, ok := t.entries[descriptor]
	return ref, ok
}

// Clear removes every binding.
func (t *AcceleratorTable) Clear() {
	t.mu.Lock()
	t.entries = make(map[string]menu.Ref)
	t.mu.Unlock()
}

// Len reports the number of bindings.
func (t *AcceleratorTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// BuildAcceleratorKey returns the descriptor used to index the table.
func BuildAcceleratorKey(mods keys.Modifier, code keys.Code) string {
	return keys.Descriptor(mods, code)
}
