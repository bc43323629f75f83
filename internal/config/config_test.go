package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv("APPMENU_CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultPressDelay, cfg.PressDelay())
	assert.Equal(t, "com.canonical.AppMenu.Registrar", cfg.Registrar.BusName)
	assert.Contains(t, cfg.Environment.MenuProxies, "libappmenu.so")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	t.Setenv("APPMENU_CONFIG_PATH", path)

	cfg := Default()
	cfg.Debug = true
	cfg.PressDelayMs = 10
	cfg.MenuFile = "/tmp/menu.yaml"
	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)
	assert.True(t, loaded.Debug)
	assert.Equal(t, 10*time.Millisecond, loaded.PressDelay())
	assert.Equal(t, "/tmp/menu.yaml", loaded.MenuFile)
}

func TestEnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("debug = false\npress_delay_ms = 50\n"), 0o600))
	t.Setenv("APPMENU_DEBUG", "true")
	t.Setenv("APPMENU_PRESS_DELAY_MS", "5")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 5, cfg.PressDelayMs)
}

func TestValidateRejectsRelativeObjectPath(t *testing.T) {
	cfg := Default()
	cfg.Registrar.ObjectPath = "com/canonical"
	assert.Error(t, cfg.Validate())
}

const sampleDefinition = `
title: Editor
items:
  - id: file
    type: menu
    label: File
  - id: new
    parent: file
    type: action
    label: New
  - id: sep
    parent: file
    type: separator
  - id: exit
    parent: file
    type: Action
    label: Exit
    accelerator: Ctrl+Q
`

func TestParseDefinition(t *testing.T) {
	def, err := ParseDefinition([]byte(sampleDefinition))
	require.NoError(t, err)
	assert.Equal(t, "Editor", def.Title)
	require.Len(t, def.Items, 4)
	assert.Equal(t, MenuItemAction, def.Items[3].Type)
}

func TestDefinitionValidation(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "top-level action", input: "items:\n  - {id: a, type: action, label: A}\n"},
		{name: "unknown parent", input: "items:\n  - {id: m, type: menu, label: M}\n  - {id: a, parent: x, type: action, label: A}\n"},
		{name: "parent not menu", input: "items:\n  - {id: m, type: menu, label: M}\n  - {id: a, parent: m, type: action, label: A}\n  - {id: b, parent: a, type: action, label: B}\n"},
		{name: "duplicate id", input: "items:\n  - {id: m, type: menu, label: M}\n  - {id: m, type: menu, label: N}\n"},
		{name: "bad accelerator", input: "items:\n  - {id: m, type: menu, label: M}\n  - {id: a, parent: m, type: action, label: A, accelerator: Ctrl}\n"},
		{name: "unsupported type", input: "items:\n  - {id: m, type: toolbar, label: M}\n"},
		{name: "cycle", input: "items:\n  - {id: m, parent: n, type: menu, label: M}\n  - {id: n, parent: m, type: menu, label: N}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinition([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}
