package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/appmenu/internal/config"
)

func TestParseGlobalFlagsStripsDebugAndConfig(t *testing.T) {
	args := []string{"list", "--debug", "--config", "/tmp/appmenu.toml", "-menu", "x.yaml"}
	filtered, globals, err := parseGlobalFlags(args)
	if err != nil {
		t.Fatalf("parseGlobalFlags returned error: %v", err)
	}
	if !globals.debug {
		t.Fatalf("expected debug flag to be enabled")
	}
	if globals.configPath != "/tmp/appmenu.toml" {
		t.Fatalf("unexpected config path %q", globals.configPath)
	}
	want := []string{"list", "-menu", "x.yaml"}
	if strings.Join(filtered, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected filtered args: %#v", filtered)
	}
}

func TestParseGlobalFlagsInlineValues(t *testing.T) {
	filtered, globals, err := parseGlobalFlags([]string{"-Debug=false", "--config=/etc/a.toml", "probe"})
	if err != nil {
		t.Fatalf("parseGlobalFlags returned error: %v", err)
	}
	if globals.debug {
		t.Fatalf("debug flag should not be set")
	}
	if globals.configPath != "/etc/a.toml" {
		t.Fatalf("unexpected config path %q", globals.configPath)
	}
	if len(filtered) != 1 || filtered[0] != "probe" {
		t.Fatalf("unexpected filtered args: %#v", filtered)
	}
}

func TestParseGlobalFlagsErrors(t *testing.T) {
	if _, _, err := parseGlobalFlags([]string{"--config"}); err == nil {
		t.Fatalf("expected error for --config without a value")
	}
	if _, _, err := parseGlobalFlags([]string{"--debug=maybe"}); err == nil {
		t.Fatalf("expected error for an invalid --debug value")
	}
}

func TestNormalizeCommand(t *testing.T) {
	for in, want := range map[string]string{"run": "run", "--Probe": "probe", "/LIST": "list"} {
		if got := normalizeCommand(in); got != want {
			t.Fatalf("normalizeCommand(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseWindowID(t *testing.T) {
	cases := map[string]uint32{"0x3a00007": 0x3a00007, "4194311": 4194311, " 42 ": 42}
	for in, want := range cases {
		got, err := parseWindowID(in)
		if err != nil || got != want {
			t.Fatalf("parseWindowID(%q) = %d, %v", in, got, err)
		}
	}
	for _, bad := range []string{"", "0", "window", "0x1ffffffff"} {
		if _, err := parseWindowID(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestListBuiltInMenu(t *testing.T) {
	var out bytes.Buffer
	if err := handleList(&out, config.Default(), nil); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), "file.exit") || !strings.Contains(out.String(), "Ctrl+Q") {
		t.Fatalf("unexpected list output:\n%s", out.String())
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(good, []byte("items:\n  - id: file\n    type: menu\n    label: File\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(bad, []byte("items:\n  - id: file\n    type: action\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	var out bytes.Buffer
	if err := handleValidate(&out, config.Default(), []string{"-menu", good}); err != nil {
		t.Fatalf("validate good: %v", err)
	}
	if !strings.Contains(out.String(), "1 menu items OK") {
		t.Fatalf("unexpected output %q", out.String())
	}
	if err := handleValidate(&out, config.Default(), []string{"-menu", bad}); err == nil {
		t.Fatalf("expected validation error")
	}
	if err := handleValidate(&out, config.Default(), nil); err == nil {
		t.Fatalf("expected error without --menu")
	}
}
