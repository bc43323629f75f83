package registrar

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/kelseyhightower/envconfig"

	"github.com/example/appmenu/internal/config"
)

// ErrUnsupported reports that the desktop session cannot host a global menu.
var ErrUnsupported = errors.New("global menu not supported in this session")

// sessionEnv is the part of the process environment that decides whether a
// global menu can be installed.
type sessionEnv struct {
	CurrentDesktop string `envconfig:"XDG_CURRENT_DESKTOP"`
	MenuProxy      string `envconfig:"UBUNTU_MENUPROXY"`
	SessionType    string `envconfig:"XDG_SESSION_TYPE"`
}

func readSessionEnv() (sessionEnv, error) {
	var env sessionEnv
	if err := envconfig.Process("", &env); err != nil {
		return sessionEnv{}, fmt.Errorf("read session environment: %w", err)
	}
	return env, nil
}

// Probe checks that the process runs on a Linux desktop recognized by cfg and
// that a menu proxy is enabled. The returned error wraps ErrUnsupported.
func Probe(cfg config.EnvironmentConfig) error {
	env, err := readSessionEnv()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return probe(runtime.GOOS, env, cfg)
}

func probe(goos string, env sessionEnv, cfg config.EnvironmentConfig) error {
	if goos != "linux" {
		return fmt.Errorf("%w: platform %s", ErrUnsupported, goos)
	}
	if env.SessionType == "tty" {
		return fmt.Errorf("%w: no graphical session", ErrUnsupported)
	}
	if !recognizedDesktop(env.CurrentDesktop, cfg.Desktops) {
		if env.CurrentDesktop == "" {
			return fmt.Errorf("%w: XDG_CURRENT_DESKTOP is not set", ErrUnsupported)
		}
		return fmt.Errorf("%w: desktop %q not recognized", ErrUnsupported, env.CurrentDesktop)
	}
	if !contains(cfg.MenuProxies, env.MenuProxy) {
		if env.MenuProxy == "" {
			return fmt.Errorf("%w: UBUNTU_MENUPROXY is not set", ErrUnsupported)
		}
		return fmt.Errorf("%w: menu proxy %q not accepted", ErrUnsupported, env.MenuProxy)
	}
	return nil
}

// recognizedDesktop matches any entry of the colon separated desktop list,
// ignoring case.
func recognizedDesktop(current string, known []string) bool {
	for _, name := range strings.Split(current, ":") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		for _, k := range known {
			if strings.EqualFold(name, k) {
				return true
			}
		}
	}
	return false
}

func contains(values []string, v string) bool {
	if v == "" {
		return false
	}
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
