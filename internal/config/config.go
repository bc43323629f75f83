package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

const (
	configDirName  = "appmenu"
	configFileName = "config.toml"
	envPrefix      = "APPMENU"

	// DefaultPressDelay is how long an emulated press is held before release.
	DefaultPressDelay = 68 * time.Millisecond
)

// RegistrarConfig names the D-Bus endpoints of the global menu registrar.
type RegistrarConfig struct {
	BusName    string `toml:"bus_name"`
	ObjectPath string `toml:"object_path"`
	Interface  string `toml:"interface"`
	// MenuPathPrefix is where per-window dbusmenu objects are exported.
	MenuPathPrefix string `toml:"menu_path_prefix"`
	// CallTimeoutMs bounds each registrar method call.
	CallTimeoutMs int `toml:"call_timeout_ms"`
}

// EnvironmentConfig lists the desktop sessions in which installing is allowed.
type EnvironmentConfig struct {
	Desktops    []string `toml:"desktops"`
	MenuProxies []string `toml:"menu_proxies"`
}

// Config represents the persisted configuration file.
type Config struct {
	Debug        bool              `toml:"debug"`
	PressDelayMs int               `toml:"press_delay_ms"`
	MenuFile     string            `toml:"menu_file"`
	MetricsAddr  string            `toml:"metrics_addr"`
	Registrar    RegistrarConfig   `toml:"registrar"`
	Environment  EnvironmentConfig `toml:"environment"`
}

// overrides are read from APPMENU_* environment variables.
type overrides struct {
	Debug        *bool   `envconfig:"DEBUG"`
	PressDelayMs *int    `envconfig:"PRESS_DELAY_MS"`
	MenuFile     *string `envconfig:"MENU_FILE"`
	MetricsAddr  *string `envconfig:"METRICS_ADDR"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		PressDelayMs: int(DefaultPressDelay / time.Millisecond),
		Registrar: RegistrarConfig{
			BusName:        "com.canonical.AppMenu.Registrar",
			ObjectPath:     "/com/canonical/AppMenu/Registrar",
			Interface:      "com.canonical.AppMenu.Registrar",
			MenuPathPrefix: "/com/canonical/menu",
			CallTimeoutMs:  2000,
		},
		Environment: EnvironmentConfig{
			Desktops:    []string{"Unity", "GNOME", "KDE", "XFCE", "MATE", "Budgie", "Pantheon"},
			MenuProxies: []string{"libappmenu.so", "1"},
		},
	}
}

// PressDelay returns the emulated press duration.
func (c *Config) PressDelay() time.Duration {
	if c.PressDelayMs < 0 {
		return 0
	}
	return time.Duration(c.PressDelayMs) * time.Millisecond
}

// CallTimeout returns the registrar call timeout.
func (c *Config) CallTimeout() time.Duration {
	if c.Registrar.CallTimeoutMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Registrar.CallTimeoutMs) * time.Millisecond
}

// Path returns the resolved configuration file path.
func Path() (string, error) {
	if custom := os.Getenv("APPMENU_CONFIG_PATH"); custom != "" {
		return custom, nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("determine user config dir: %w", err)
	}
	return filepath.Join(base, configDirName, configFileName), nil
}

// Load reads the configuration file, falling back to defaults when it does
// not exist, then applies environment overrides.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile is Load for an explicit path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if _, err := toml.Decode(string(raw), cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	if err := applyOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save persists the configuration atomically.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tempFile := path + ".tmp"
	if err := os.WriteFile(tempFile, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tempFile, path)
}

// Validate checks for values that would make the bridge unusable.
func (c *Config) Validate() error {
	if c.Registrar.BusName == "" {
		return errors.New("registrar bus_name must not be empty")
	}
	if c.Registrar.ObjectPath == "" || c.Registrar.ObjectPath[0] != '/' {
		return fmt.Errorf("registrar object_path %q must be an absolute object path", c.Registrar.ObjectPath)
	}
	if c.Registrar.MenuPathPrefix == "" || c.Registrar.MenuPathPrefix[0] != '/' {
		return fmt.Errorf("registrar menu_path_prefix %q must be an absolute object path", c.Registrar.MenuPathPrefix)
	}
	if c.PressDelayMs > 1000 {
		return fmt.Errorf("press_delay_ms %d exceeds 1000", c.PressDelayMs)
	}
	return nil
}

func applyOverrides(cfg *Config) error {
	var env overrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("read environment overrides: %w", err)
	}
	if env.Debug != nil {
		cfg.Debug = *env.Debug
	}
	if env.PressDelayMs != nil {
		cfg.PressDelayMs = *env.PressDelayMs
	}
	if env.MenuFile != nil {
		cfg.MenuFile = *env.MenuFile
	}
	if env.MetricsAddr != nil {
		cfg.MetricsAddr = *env.MetricsAddr
	}
	return nil
}
