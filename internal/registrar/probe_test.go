package registrar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/appmenu/internal/config"
)

func TestProbe(t *testing.T) {
	cfg := config.Default().Environment
	ok := sessionEnv{CurrentDesktop: "ubuntu:GNOME", MenuProxy: "libappmenu.so", SessionType: "x11"}

	cases := []struct {
		name string
		goos string
		env  sessionEnv
		ok   bool
	}{
		{name: "supported", goos: "linux", env: ok, ok: true},
		{name: "proxy flag", goos: "linux", env: sessionEnv{CurrentDesktop: "KDE", MenuProxy: "1"}, ok: true},
		{name: "not linux", goos: "darwin", env: ok},
		{name: "tty", goos: "linux", env: sessionEnv{CurrentDesktop: "GNOME", MenuProxy: "1", SessionType: "tty"}},
		{name: "unknown desktop", goos: "linux", env: sessionEnv{CurrentDesktop: "sway", MenuProxy: "1"}},
		{name: "no desktop", goos: "linux", env: sessionEnv{MenuProxy: "1"}},
		{name: "no proxy", goos: "linux", env: sessionEnv{CurrentDesktop: "GNOME"}},
		{name: "wrong proxy", goos: "linux", env: sessionEnv{CurrentDesktop: "GNOME", MenuProxy: "0"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := probe(tc.goos, tc.env, cfg)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrUnsupported)
		})
	}
}

func TestReadSessionEnv(t *testing.T) {
	t.Setenv("XDG_CURRENT_DESKTOP", "Unity")
	t.Setenv("UBUNTU_MENUPROXY", "libappmenu.so")
	t.Setenv("XDG_SESSION_TYPE", "wayland")

	env, err := readSessionEnv()
	require.NoError(t, err)
	assert.Equal(t, sessionEnv{CurrentDesktop: "Unity", MenuProxy: "libappmenu.so", SessionType: "wayland"}, env)
}
