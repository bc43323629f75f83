package menu

import "github.com/example/appmenu/internal/config"

// DefaultDefinition returns the menu used when no definition file is given.
func DefaultDefinition() *config.Definition {
	return &config.Definition{
		Title: "appmenu",
		Items: []config.MenuItem{
			{ID: "file", Type: config.MenuItemMenu, Label: "_File"},
			{ID: "file.new", ParentID: "file", Type: config.MenuItemAction, Label: "_New", Accelerator: "Ctrl+N"},
			{ID: "file.open", ParentID: "file", Type: config.MenuItemAction, Label: "_Open...", Accelerator: "Ctrl+O"},
			{ID: "file.recent", ParentID: "file", Type: config.MenuItemMenu, Label: "Open _Recent"},
			{ID: "file.recent.none", ParentID: "file.recent", Type: config.MenuItemAction, Label: "No recent files", Disabled: true},
			{ID: "file.sep", ParentID: "file", Type: config.MenuItemSeparator},
			{ID: "file.exit", ParentID: "file", Type: config.MenuItemAction, Label: "E_xit", Accelerator: "Ctrl+Q"},
			{ID: "view", Type: config.MenuItemMenu, Label: "_View"},
			{ID: "view.wrap", ParentID: "view", Type: config.MenuItemCheck, Label: "Word _Wrap", Selected: true},
			{ID: "view.small", ParentID: "view", Type: config.MenuItemRadio, Label: "_Small", Group: "size"},
			{ID: "view.normal", ParentID: "view", Type: config.MenuItemRadio, Label: "_Normal", Group: "size", Selected: true},
			{ID: "view.large", ParentID: "view", Type: config.MenuItemRadio, Label: "_Large", Group: "size"},
			{ID: "help", Type: config.MenuItemMenu, Label: "_Help"},
			{ID: "help.about", ParentID: "help", Type: config.MenuItemAction, Label: "_About", URL: "https://example.com"},
		},
	}
}
