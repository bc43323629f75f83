package registrar

import (
	"github.com/godbus/dbus/v5"
)

const (
	errUnknownItem = "com.canonical.dbusmenu.UnknownId"
	errUnknownProp = "com.canonical.dbusmenu.UnknownProperty"
)

// menuObject serves com.canonical.dbusmenu for one window. Every exported
// method is callable over the bus.
type menuObject struct {
	svc *Service
	win *windowMenu
}

// GetLayout returns the subtree rooted at parentID down to recursionDepth
// levels (-1 for all).
func (o *menuObject) GetLayout(parentID int32, recursionDepth int32, propertyNames []string) (uint32, menuLayout, *dbus.Error) {
	o.win.mu.Lock()
	defer o.win.mu.Unlock()

	layout, ok := o.win.model.layout(parentID, recursionDepth, propertyNames)
	if !ok {
		return 0, menuLayout{}, unknownItem(parentID)
	}
	return o.win.model.revision, layout, nil
}

// GetGroupProperties returns the requested properties of several items.
func (o *menuObject) GetGroupProperties(ids []int32, propertyNames []string) ([]itemProperties, *dbus.Error) {
	o.win.mu.Lock()
	defer o.win.mu.Unlock()
	return o.win.model.properties(ids, propertyNames), nil
}

// GetProperty returns one property of one item.
func (o *menuObject) GetProperty(id int32, name string) (dbus.Variant, *dbus.Error) {
	o.win.mu.Lock()
	defer o.win.mu.Unlock()

	if !o.win.model.has(id) {
		return dbus.Variant{}, unknownItem(id)
	}
	v, ok := o.win.model.property(id, name)
	if !ok {
		return dbus.Variant{}, dbus.NewError(errUnknownProp, []interface{}{name})
	}
	return v, nil
}

// Event delivers a user interaction with an item.
func (o *menuObject) Event(id int32, eventID string, data dbus.Variant, timestamp uint32) *dbus.Error {
	o.dispatch(id, eventID)
	return nil
}

// EventGroup delivers several events and returns the ids that were unknown.
func (o *menuObject) EventGroup(events []menuEvent) ([]int32, *dbus.Error) {
	var missing []int32
	for _, ev := range events {
		if !o.dispatch(ev.ID, ev.EventID) {
			missing = append(missing, ev.ID)
		}
	}
	if missing == nil {
		missing = []int32{}
	}
	return missing, nil
}

// AboutToShow repopulates a submenu before it opens. The layout always
// changes, so the reply asks the caller to refetch.
func (o *menuObject) AboutToShow(id int32) (bool, *dbus.Error) {
	if id == RootID {
		return false, nil
	}
	return o.svc.expand(o.win, id), nil
}

// AboutToShowGroup repopulates several submenus at once.
func (o *menuObject) AboutToShowGroup(ids []int32) ([]int32, []int32, *dbus.Error) {
	updates := []int32{}
	missing := []int32{}
	for _, id := range ids {
		if id == RootID {
			continue
		}
		if o.svc.expand(o.win, id) {
			updates = append(updates, id)
		} else {
			missing = append(missing, id)
		}
	}
	return updates, missing, nil
}

func (o *menuObject) dispatch(id int32, eventID string) bool {
	switch eventID {
	case "clicked":
		return o.svc.activate(o.win, id)
	case "opened":
		if id == RootID {
			return true
		}
		return o.svc.opened(o.win, id)
	default:
		o.win.mu.Lock()
		known := o.win.model.has(id)
		o.win.mu.Unlock()
		return known
	}
}

func unknownItem(id int32) *dbus.Error {
	return dbus.NewError(errUnknownItem, []interface{}{id})
}
