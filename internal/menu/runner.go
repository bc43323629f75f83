package menu

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/example/appmenu/internal/config"
	"github.com/example/appmenu/internal/logging"
)

const defaultDebounce = 100 * time.Millisecond

// Runner keeps a tree in sync with a menu definition file. Every change to
// the file rebuilds the tree in place, so references handed out before the
// reload become stale.
type Runner struct {
	path     string
	tree     *Tree
	debounce time.Duration

	mu         sync.Mutex
	lastDigest string
	reloaded   []func(*config.Definition)

	refreshRequests chan struct{}
}

// NewRunner returns a runner for the definition at path. An empty path uses
// the built-in definition and never reloads.
func NewRunner(path string, tree *Tree) *Runner {
	return &Runner{
		path:            path,
		tree:            tree,
		debounce:        defaultDebounce,
		refreshRequests: make(chan struct{}, 1),
	}
}

// OnReload registers fn to run after each rebuild of the tree.
func (r *Runner) OnReload(fn func(*config.Definition)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.reloaded = append(r.reloaded, fn)
	r.mu.Unlock()
}

// Start builds the tree and rebuilds it whenever the definition file
// changes. It blocks until ctx is canceled.
func (r *Runner) Start(ctx context.Context) error {
	logging.Debugf("menu runner initialising with definition %q", r.path)

	if _, err := r.syncOnce(ctx); err != nil {
		log.Printf("menu: initial load failed: %v", err)
		if r.tree.Len() == 0 {
			if err := r.apply(ctx, DefaultDefinition(), "default"); err != nil {
				return err
			}
		}
	}

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if r.path != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer watcher.Close()
		// Editors replace files on save, so the directory is watched.
		if err := watcher.Add(filepath.Dir(r.path)); err != nil {
			return fmt.Errorf("watch %s: %w", filepath.Dir(r.path), err)
		}
		events, errs = watcher.Events, watcher.Errors
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Println("menu: definition watcher stopping")
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(r.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(r.debounce, r.RequestRefresh)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			log.Printf("menu: watcher error: %v", err)
		case <-r.refreshRequests:
			logging.Debugf("menu definition refresh requested")
			if _, err := r.syncOnce(ctx); err != nil {
				log.Printf("menu: reload failed, keeping previous menu: %v", err)
			}
		}
	}
}

// RequestRefresh asks a running Start loop to reload the definition.
// Requests made while one is pending are coalesced.
func (r *Runner) RequestRefresh() {
	select {
	case r.refreshRequests <- struct{}{}:
	default:
	}
}

// syncOnce loads the definition and rebuilds the tree when its content
// changed. It reports whether the tree was rebuilt.
func (r *Runner) syncOnce(ctx context.Context) (bool, error) {
	def, err := r.load()
	if err != nil {
		return false, err
	}
	digest := hashItems(def.Items)

	r.mu.Lock()
	unchanged := digest != "" && digest == r.lastDigest
	r.mu.Unlock()
	if unchanged {
		logging.Debugf("menu definition unchanged (digest=%s)", digest)
		return false, nil
	}

	if err := r.apply(ctx, def, digest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Runner) load() (*config.Definition, error) {
	if r.path == "" {
		return DefaultDefinition(), nil
	}
	def, err := config.LoadDefinition(r.path)
	if errors.Is(err, os.ErrNotExist) {
		logging.Debugf("menu definition %s missing; using built-in menu", r.path)
		return DefaultDefinition(), nil
	}
	return def, err
}

func (r *Runner) apply(ctx context.Context, def *config.Definition, digest string) error {
	r.tree.Clear()
	if err := Build(ctx, r.tree, def); err != nil {
		return err
	}

	r.mu.Lock()
	r.lastDigest = digest
	hooks := append([]func(*config.Definition){}, r.reloaded...)
	r.mu.Unlock()

	log.Printf("menu: loaded %d menu items", len(def.Items))
	for _, fn := range hooks {
		fn(def)
	}
	return nil
}

func hashItems(items []config.MenuItem) string {
	if len(items) == 0 {
		return ""
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return ""
	}

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
