package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/example/appmenu/internal/config"
	"github.com/example/appmenu/internal/logging"
	"github.com/example/appmenu/internal/menu"
	"github.com/example/appmenu/internal/registrar"
)

type globalFlags struct {
	debug      bool
	configPath string
}

func main() {
	log.SetFlags(0)

	args, globals, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	var cfg *config.Config
	if globals.configPath != "" {
		cfg, err = config.LoadFile(globals.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if globals.debug || cfg.Debug {
		logging.EnableDebug()
	}

	if err := handleCLI(cfg, args); err != nil {
		log.Fatalf("%v", err)
	}
}

// parseGlobalFlags strips --debug and --config from anywhere in args.
func parseGlobalFlags(args []string) ([]string, globalFlags, error) {
	var globals globalFlags
	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") {
			filtered = append(filtered, arg)
			continue
		}
		switch strings.ToLower(name) {
		case "debug":
			if !hasValue {
				globals.debug = true
				continue
			}
			enabled, err := strconv.ParseBool(value)
			if err != nil {
				return nil, globals, fmt.Errorf("invalid --debug value %q", value)
			}
			globals.debug = enabled
		case "config":
			if !hasValue {
				if i+1 >= len(args) {
					return nil, globals, errors.New("--config requires a path")
				}
				i++
				value = args[i]
			}
			globals.configPath = value
		default:
			filtered = append(filtered, arg)
		}
	}
	return filtered, globals, nil
}

func handleCLI(cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return handleRun(cfg, nil)
	}

	command := normalizeCommand(args[0])
	switch command {
	case "run":
		return handleRun(cfg, args[1:])
	case "probe":
		return handleProbe(os.Stdout, cfg)
	case "list":
		return handleList(os.Stdout, cfg, args[1:])
	case "validate":
		return handleValidate(os.Stdout, cfg, args[1:])
	case "init":
		return handleInit(os.Stdout)
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func normalizeCommand(arg string) string {
	trimmed := strings.TrimLeft(arg, "-/")
	return strings.ToLower(trimmed)
}

func handleProbe(w io.Writer, cfg *config.Config) error {
	if err := registrar.Probe(cfg.Environment); err != nil {
		return err
	}
	fmt.Fprintln(w, "global menu supported in this session")
	return nil
}

func handleList(w io.Writer, cfg *config.Config, args []string) error {
	fs := newFlagSet("list", w)
	path := fs.String("menu", cfg.MenuFile, "menu definition file (empty for the built-in menu)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	def, err := loadDefinition(*path)
	if err != nil {
		return err
	}
	if len(def.Items) == 0 {
		fmt.Fprintln(w, "No menu items defined")
		return nil
	}

	fmt.Fprintf(w, "%-24s %-10s %-24s %-14s %-16s\n", "ID", "Type", "Label", "Accelerator", "Parent")
	for _, item := range def.Items {
		fmt.Fprintf(w, "%-24s %-10s %-24s %-14s %-16s\n",
			truncate(item.ID, 24), item.Type, truncate(item.Label, 24), item.Accelerator, truncate(item.ParentID, 16))
	}
	return nil
}

func handleValidate(w io.Writer, cfg *config.Config, args []string) error {
	fs := newFlagSet("validate", w)
	path := fs.String("menu", cfg.MenuFile, "menu definition file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("missing --menu for validate")
	}

	def, err := config.LoadDefinition(*path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %d menu items OK\n", *path, len(def.Items))
	return nil
}

func handleInit(w io.Writer) error {
	path, err := config.Path()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration already exists at %s", path)
	}
	if err := config.Save(config.Default()); err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote default configuration to %s\n", path)
	return nil
}

func loadDefinition(path string) (*config.Definition, error) {
	if path == "" {
		return menu.DefaultDefinition(), nil
	}
	return config.LoadDefinition(path)
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	if max <= 3 {
		return value[:max]
	}
	return value[:max-3] + "..."
}

func newFlagSet(name string, w io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	return fs
}
