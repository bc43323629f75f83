package registrar

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"github.com/example/appmenu/internal/config"
	"github.com/example/appmenu/internal/logging"
)

const (
	dbusmenuInterface     = "com.canonical.dbusmenu"
	dbusmenuVersion       = uint32(3)
	propertiesInterface   = "org.freedesktop.DBus.Properties"
	introspectInterface   = "org.freedesktop.DBus.Introspectable"
	busDaemonName         = "org.freedesktop.DBus"
	nameOwnerChangedEvent = busDaemonName + ".NameOwnerChanged"
)

// dbusBus is the session bus implementation of bus.
type dbusBus struct {
	conn *dbus.Conn
	cfg  config.RegistrarConfig
}

func dialSessionBus(cfg config.RegistrarConfig) (bus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	return &dbusBus{conn: conn, cfg: cfg}, nil
}

func (b *dbusBus) exportMenu(path dbus.ObjectPath, obj *menuObject) error {
	if err := b.conn.Export(obj, path, dbusmenuInterface); err != nil {
		return err
	}

	props, err := prop.Export(b.conn, path, prop.Map{
		dbusmenuInterface: {
			"Version":       {Value: dbusmenuVersion, Emit: prop.EmitFalse},
			"TextDirection": {Value: "ltr", Emit: prop.EmitFalse},
			"Status":        {Value: "normal", Emit: prop.EmitTrue},
			"IconThemePath": {Value: []string{}, Emit: prop.EmitFalse},
		},
	})
	if err != nil {
		_ = b.unexportMenu(path)
		return err
	}

	node := &introspect.Node{
		Name: string(path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			{
				Name:       dbusmenuInterface,
				Methods:    introspect.Methods(obj),
				Signals:    dbusmenuSignals,
				Properties: props.Introspection(dbusmenuInterface),
			},
		},
	}
	if err := b.conn.Export(introspect.NewIntrospectable(node), path, introspectInterface); err != nil {
		_ = b.unexportMenu(path)
		return err
	}
	return nil
}

func (b *dbusBus) unexportMenu(path dbus.ObjectPath) error {
	var first error
	for _, iface := range []string{dbusmenuInterface, propertiesInterface, introspectInterface} {
		if err := b.conn.Export(nil, path, iface); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (b *dbusBus) emit(path dbus.ObjectPath, signal string, values ...interface{}) error {
	logging.LogSignal(path, signal, values...)
	return b.conn.Emit(path, signal, values...)
}

func (b *dbusBus) registerWindow(ctx context.Context, windowID uint32, menuPath dbus.ObjectPath) error {
	return b.call(ctx, "RegisterWindow", windowID, menuPath)
}

func (b *dbusBus) unregisterWindow(ctx context.Context, windowID uint32) error {
	return b.call(ctx, "UnregisterWindow", windowID)
}

func (b *dbusBus) call(ctx context.Context, method string, args ...interface{}) error {
	path := dbus.ObjectPath(b.cfg.ObjectPath)
	logging.LogCall(b.cfg.BusName, path, method, args...)
	obj := b.conn.Object(b.cfg.BusName, path)
	return obj.CallWithContext(ctx, b.cfg.Interface+"."+method, 0, args...).Err
}

// watchOwner streams the new owner of name each time it changes. An empty
// string means the name was released. The channel closes with the connection.
func (b *dbusBus) watchOwner(name string) (<-chan string, error) {
	err := b.conn.AddMatchSignal(
		dbus.WithMatchSender(busDaemonName),
		dbus.WithMatchInterface(busDaemonName),
		dbus.WithMatchMember("NameOwnerChanged"),
		dbus.WithMatchArg(0, name),
	)
	if err != nil {
		return nil, fmt.Errorf("match NameOwnerChanged: %w", err)
	}

	signals := make(chan *dbus.Signal, 8)
	b.conn.Signal(signals)

	owners := make(chan string, 1)
	go func() {
		defer close(owners)
		for sig := range signals {
			if sig.Name != nameOwnerChangedEvent || len(sig.Body) != 3 {
				continue
			}
			changed, _ := sig.Body[0].(string)
			owner, _ := sig.Body[2].(string)
			if changed == name {
				owners <- owner
			}
		}
	}()
	return owners, nil
}

func (b *dbusBus) close() error {
	return b.conn.Close()
}

var dbusmenuSignals = []introspect.Signal{
	{
		Name: "LayoutUpdated",
		Args: []introspect.Arg{
			{Name: "revision", Type: "u"},
			{Name: "parent", Type: "i"},
		},
	},
	{
		Name: "ItemsPropertiesUpdated",
		Args: []introspect.Arg{
			{Name: "updatedProps", Type: "a(ia{sv})"},
			{Name: "removedProps", Type: "a(ias)"},
		},
	},
	{
		Name: "ItemActivationRequested",
		Args: []introspect.Arg{
			{Name: "id", Type: "i"},
			{Name: "timestamp", Type: "u"},
		},
	},
}
