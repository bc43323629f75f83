// Package appmenu is the entry point applications use to move a window's menu
// into the desktop's global menu panel.
package appmenu

import (
	"errors"

	"github.com/example/appmenu/internal/config"
	"github.com/example/appmenu/internal/lifecycle"
	"github.com/example/appmenu/internal/logging"
	"github.com/example/appmenu/internal/menu"
	"github.com/example/appmenu/internal/metrics"
	"github.com/example/appmenu/internal/mirror"
	"github.com/example/appmenu/internal/registrar"
	"github.com/example/appmenu/internal/window"
)

// ErrInvalidArgument reports a nil window or tree.
var ErrInvalidArgument = errors.New("appmenu: window and menu tree are required")

// Service is what a session needs from the registrar connection.
type Service interface {
	lifecycle.Service
	mirror.Proxy
}

// Options configure TryInstall. Zero fields fall back to the loaded defaults,
// the process-wide registrar service and the environment probe.
type Options struct {
	Config  *config.Config
	Metrics *metrics.Recorder
	Service Service
	Probe   func(config.EnvironmentConfig) error
}

// TryInstall arranges for win's menu tree to be mirrored in the global menu
// once the window is activated. It reports false, without side effects, when
// the desktop session cannot host a global menu.
func TryInstall(keySource window.KeySource, win window.Window, tree *menu.Tree, opts Options) (bool, error) {
	mon, err := Attach(keySource, win, tree, opts)
	return mon != nil, err
}

// Attach is TryInstall returning the monitor that drives the session, or nil
// when the desktop session is unsupported.
func Attach(keySource window.KeySource, win window.Window, tree *menu.Tree, opts Options) (*lifecycle.Monitor, error) {
	if win == nil || tree == nil {
		return nil, ErrInvalidArgument
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	probe := opts.Probe
	if probe == nil {
		probe = registrar.Probe
	}
	if err := probe(cfg.Environment); err != nil {
		logging.Debugf("appmenu: not installing for window 0x%x: %v", win.Handle(), err)
		return nil, nil
	}

	svc := opts.Service
	if svc == nil {
		svc = registrar.Default(cfg, opts.Metrics)
	}

	m := mirror.New(svc, tree, win, keySource, mirror.Options{
		PressDelay: cfg.PressDelay(),
		Metrics:    opts.Metrics,
	})
	mon := lifecycle.New(win, tree, m, svc)
	mon.Attach()
	return mon, nil
}
