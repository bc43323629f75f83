package mirror

import (
	"sync"
	"sync/atomic"

	"github.com/example/appmenu/internal/menu"
)

// lastID is shared by every registry in the process, so an identifier is
// never issued twice and callbacks for a torn-down session cannot resolve.
var lastID atomic.Int32

// Registry maps mirror identifiers to local tree nodes for one install
// session.
type Registry struct {
	mu    sync.Mutex
	ids   map[menu.Ref]int32
	nodes map[int32]menu.Ref
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ids:   make(map[menu.Ref]int32),
		nodes: make(map[int32]menu.Ref),
	}
}

// IDFor returns the identifier of ref, issuing one on first use.
func (r *Registry) IDFor(ref menu.Ref) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[ref]; ok {
		return id
	}
	id := lastID.Add(1)
	r.ids[ref] = id
	r.nodes[id] = ref
	return id
}

// NodeFor resolves an identifier. A miss is a normal race with teardown or
// tree rebuilds.
func (r *Registry) NodeFor(id int32) (menu.Ref, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.nodes[id]
	return ref, ok
}

// Reset forgets every binding.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = make(map[menu.Ref]int32)
	r.nodes = make(map[int32]menu.Ref)
}

// Len reports the number of bound nodes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}
