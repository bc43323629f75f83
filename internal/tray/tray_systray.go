//go:build cgo
// +build cgo

package tray

import (
	"context"
	"sync"

	"github.com/getlantern/systray"

	"github.com/example/appmenu/internal/logging"
	"github.com/example/appmenu/internal/menu"
)

// Controller keeps a systray menu in step with a menu tree.
type Controller struct {
	tree *menu.Tree
	opts Options

	mu      sync.Mutex
	entries []trayEntry

	renders chan struct{}
}

type trayEntry struct {
	item   *systray.MenuItem
	cancel context.CancelFunc
}

// New returns a controller for tree. Call Run to show it.
func New(tree *menu.Tree, opts Options) *Controller {
	if opts.Title == "" {
		opts.Title = "appmenu"
	}
	c := &Controller{
		tree:    tree,
		opts:    opts,
		renders: make(chan struct{}, 1),
	}
	tree.Subscribe(c.requestRender)
	return c
}

// Run shows the tray icon until ctx is canceled or the user quits.
func (c *Controller) Run(ctx context.Context) error {
	done := make(chan struct{})

	go systray.Run(func() {
		systray.SetTitle(c.opts.Title)
		systray.SetTooltip(c.opts.Title)

		var reload *systray.MenuItem
		if c.opts.OnReload != nil {
			reload = systray.AddMenuItem("Reload menu", "Read the menu definition again")
		}
		quit := systray.AddMenuItem("Quit", "Exit "+c.opts.Title)
		systray.AddSeparator()

		go func() {
			var reloadCh chan struct{}
			if reload != nil {
				reloadCh = reload.ClickedCh
			}
			for {
				select {
				case <-ctx.Done():
					systray.Quit()
					return
				case <-reloadCh:
					c.opts.OnReload()
				case <-quit.ClickedCh:
					if c.opts.OnQuit != nil {
						c.opts.OnQuit()
					}
					systray.Quit()
					return
				}
			}
		}()

		c.requestRender()
		go c.listen(ctx)
	}, func() {
		c.shutdown()
		close(done)
	})

	select {
	case <-ctx.Done():
		systray.Quit()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (c *Controller) requestRender() {
	select {
	case c.renders <- struct{}{}:
	default:
	}
}

func (c *Controller) listen(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.renders:
			c.render(ctx, layout(c.tree))
		}
	}
}

func (c *Controller) render(ctx context.Context, entries []entry) {
	c.mu.Lock()
	old := c.entries
	c.entries = nil
	c.mu.Unlock()

	for _, e := range old {
		e.cancel()
		if e.item != nil {
			e.item.Hide()
		}
	}

	rendered := c.renderGroup(ctx, entries, nil)
	logging.Debugf("tray: rendered %d entries", len(rendered))

	c.mu.Lock()
	c.entries = rendered
	c.mu.Unlock()
}

func (c *Controller) renderGroup(ctx context.Context, entries []entry, parent *systray.MenuItem) []trayEntry {
	out := make([]trayEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, c.addMenuItem(ctx, e, parent)...)
	}
	return out
}

func (c *Controller) addMenuItem(ctx context.Context, e entry, parent *systray.MenuItem) []trayEntry {
	mi := c.makeMenuItem(parent, e, styleOf(e))
	switch e.kind {
	case menu.KindSeparator:
		return []trayEntry{{item: mi, cancel: func() {}}}
	case menu.KindMenu:
		ctxItem, cancel := context.WithCancel(ctx)
		go drainClicks(ctxItem, mi.ClickedCh)
		entries := []trayEntry{{item: mi, cancel: cancel}}
		return append(entries, c.renderGroup(ctx, e.children, mi)...)
	default:
		ctxItem, cancel := context.WithCancel(ctx)
		go func(ch <-chan struct{}, ref menu.Ref) {
			for {
				select {
				case <-ctxItem.Done():
					return
				case _, ok := <-ch:
					if !ok {
						return
					}
					press(c.tree, ref)
				}
			}
		}(mi.ClickedCh, e.ref)
		return []trayEntry{{item: mi, cancel: cancel}}
	}
}

func (c *Controller) makeMenuItem(parent *systray.MenuItem, e entry, style itemStyle) *systray.MenuItem {
	var mi *systray.MenuItem
	switch {
	case parent == nil && style.checkable:
		mi = systray.AddMenuItemCheckbox(style.label, "", e.checked)
	case parent == nil:
		mi = systray.AddMenuItem(style.label, "")
	case style.checkable:
		mi = parent.AddSubMenuItemCheckbox(style.label, "", e.checked)
	default:
		mi = parent.AddSubMenuItem(style.label, "")
	}
	if !style.enabled {
		mi.Disable()
	}
	return mi
}

func drainClicks(ctx context.Context, ch <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
		}
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		e.cancel()
	}
	c.entries = nil
}
