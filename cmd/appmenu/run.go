package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/example/appmenu/internal/appmenu"
	"github.com/example/appmenu/internal/config"
	"github.com/example/appmenu/internal/metrics"
	"github.com/example/appmenu/internal/menu"
	"github.com/example/appmenu/internal/registrar"
	"github.com/example/appmenu/internal/tray"
	"github.com/example/appmenu/internal/window"
)

const shutdownTimeout = 5 * time.Second

// handleRun mirrors a menu definition onto an existing X11 window until
// interrupted.
func handleRun(cfg *config.Config, args []string) error {
	fs := newFlagSet("run", os.Stdout)
	menuFile := fs.String("menu", cfg.MenuFile, "menu definition file (empty for the built-in menu)")
	metricsAddr := fs.String("metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	windowID := fs.String("window", os.Getenv("WINDOWID"), "X11 window id to attach the menu to (decimal or 0x hex)")
	noTray := fs.Bool("no-tray", false, "do not show the tray fallback")
	if err := fs.Parse(args); err != nil {
		return err
	}

	handle, err := parseWindowID(*windowID)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	svc := registrar.Default(cfg, rec)
	defer svc.Shutdown()

	desktop := window.NewDesktop()
	frame := desktop.NewFrame(handle, "appmenu")
	tree := menu.NewTree()

	mon, err := appmenu.Attach(desktop, frame, tree, appmenu.Options{
		Config:  cfg,
		Metrics: rec,
		Service: svc,
	})
	if err != nil {
		return err
	}
	if mon == nil {
		log.Printf("global menu unavailable (see `appmenu probe`); using the tray menu only")
	}

	runner := menu.NewRunner(*menuFile, tree)
	var activate sync.Once
	runner.OnReload(func(*config.Definition) {
		first := false
		activate.Do(func() {
			first = true
			frame.Activate()
		})
		if !first && mon != nil {
			mon.Reinstall()
		}
	})

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := runner.Start(gCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if *metricsAddr != "" {
		g.Go(func() error { return serveMetrics(gCtx, *metricsAddr, reg) })
	}
	if !*noTray {
		ctl := tray.New(tree, tray.Options{
			Title:    "appmenu",
			OnReload: runner.RequestRefresh,
			OnQuit:   cancel,
		})
		g.Go(func() error {
			err := ctl.Run(gCtx)
			switch {
			case errors.Is(err, tray.ErrUnavailable):
				log.Printf("tray fallback disabled: %v", err)
				return nil
			case errors.Is(err, context.Canceled):
				return nil
			}
			return err
		})
	}

	err = g.Wait()
	frame.Close()
	return err
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen for metrics: %w", err)
	}
	log.Printf("serving metrics on http://%s/metrics", listener.Addr())

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics server shutdown: %v", err)
		}
		return nil
	})
	return g.Wait()
}

func parseWindowID(raw string) (uint32, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("no window id: pass --window or set WINDOWID")
	}
	id, err := strconv.ParseUint(raw, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid window id %q: %w", raw, err)
	}
	if id == 0 {
		return 0, errors.New("window id must not be zero")
	}
	return uint32(id), nil
}
